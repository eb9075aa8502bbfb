package agents

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a tenant-owned voice agent provisioned on the Vapi platform.
// Agents are read-only from the webhook engine's perspective; provisioning
// happens elsewhere.
type Agent struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"userId"`
	Name            string    `json:"name"`
	VapiAssistantID string    `json:"vapiAssistantId"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
