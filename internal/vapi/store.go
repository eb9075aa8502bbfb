package vapi

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dialdeskhq/dialdesk-platform/internal/agents"
	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
	"github.com/dialdeskhq/dialdesk-platform/internal/webhooklog"
)

// ErrAgentNotFound is returned when no agent owns the assistant id carried
// by an event.
var ErrAgentNotFound = errors.New("vapi: no agent for assistant id")

// Store is the persistence surface the webhook engine consumes. The
// storage package implements it over Postgres; tests use an in-memory fake.
type Store interface {
	GetAllAgents(ctx context.Context) ([]agents.Agent, error)
	GetAllCalls(ctx context.Context) ([]calls.Call, error)
	CreateCall(ctx context.Context, req calls.NewCall) (*calls.Call, error)
	UpdateCall(ctx context.Context, id uuid.UUID, upd calls.Update) (*calls.Call, error)
	DeleteCall(ctx context.Context, id uuid.UUID) (bool, error)
	CreateWebhookLog(ctx context.Context, kind string, payload []byte) (*webhooklog.Entry, error)
	UpdateWebhookLog(ctx context.Context, id uuid.UUID, processed bool, errMsg string) error
}

// Notifier pushes a refresh signal to live subscribers of a tenant. Calls
// are fire-and-forget; implementations log failures instead of surfacing
// them.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload any)
}

// NopNotifier is a Notifier that does nothing.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, userID, event string, payload any) {}
