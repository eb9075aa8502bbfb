package calls

import (
	"time"

	"github.com/google/uuid"
)

// Call directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Call represents one phone call lifecycle owned by an agent. A call is
// usually created from the first webhook event that mentions it and enriched
// by later events; duration, cost and the recording URL only ever move from
// empty toward richer values.
type Call struct {
	ID              uuid.UUID  `json:"id"`
	AgentID         uuid.UUID  `json:"agentId"`
	VapiCallID      string     `json:"vapiCallId,omitempty"`
	Direction       string     `json:"direction"`
	FromNumber      string     `json:"fromNumber,omitempty"`
	ToNumber        string     `json:"toNumber,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	EndedReason     string     `json:"endedReason,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	Cost            float64    `json:"cost"`
	RecordingURL    string     `json:"recordingUrl,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewCall holds the fields persisted when a call record is first created.
type NewCall struct {
	AgentID         uuid.UUID
	VapiCallID      string
	Direction       string
	FromNumber      string
	ToNumber        string
	Outcome         string
	EndedReason     string
	DurationSeconds int
	Cost            float64
	RecordingURL    string
	StartedAt       *time.Time
}

// Update is a partial update; nil fields are left untouched. The merge
// engine decides which fields go in.
type Update struct {
	VapiCallID      *string
	FromNumber      *string
	ToNumber        *string
	Outcome         *string
	EndedReason     *string
	DurationSeconds *int
	Cost            *float64
	RecordingURL    *string
	StartedAt       *time.Time
}

// IsEmpty reports whether the update would touch nothing.
func (u Update) IsEmpty() bool {
	return u.VapiCallID == nil &&
		u.FromNumber == nil &&
		u.ToNumber == nil &&
		u.Outcome == nil &&
		u.EndedReason == nil &&
		u.DurationSeconds == nil &&
		u.Cost == nil &&
		u.RecordingURL == nil &&
		u.StartedAt == nil
}
