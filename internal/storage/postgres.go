package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dialdeskhq/dialdesk-platform/internal/agents"
	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
	"github.com/dialdeskhq/dialdesk-platform/internal/webhooklog"
)

// DB is the pgx surface the storage layer needs. Both *pgxpool.Pool and
// pgxmock satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres bundles the per-entity repositories into the single storage
// surface the webhook engine consumes.
type Postgres struct {
	agents *agents.Repository
	calls  *calls.Repository
	logs   *webhooklog.Store
}

// NewPostgres wires the repositories over one pool.
func NewPostgres(db DB) *Postgres {
	return &Postgres{
		agents: agents.NewRepository(db),
		calls:  calls.NewRepository(db),
		logs:   webhooklog.NewStore(db),
	}
}

func (p *Postgres) GetAllAgents(ctx context.Context) ([]agents.Agent, error) {
	return p.agents.ListAll(ctx)
}

func (p *Postgres) GetAllCalls(ctx context.Context) ([]calls.Call, error) {
	return p.calls.ListAll(ctx)
}

func (p *Postgres) CreateCall(ctx context.Context, req calls.NewCall) (*calls.Call, error) {
	return p.calls.Create(ctx, req)
}

func (p *Postgres) UpdateCall(ctx context.Context, id uuid.UUID, upd calls.Update) (*calls.Call, error) {
	return p.calls.Update(ctx, id, upd)
}

func (p *Postgres) DeleteCall(ctx context.Context, id uuid.UUID) (bool, error) {
	return p.calls.Delete(ctx, id)
}

func (p *Postgres) CreateWebhookLog(ctx context.Context, kind string, payload []byte) (*webhooklog.Entry, error) {
	return p.logs.Create(ctx, kind, payload)
}

func (p *Postgres) UpdateWebhookLog(ctx context.Context, id uuid.UUID, processed bool, errMsg string) error {
	return p.logs.Finalize(ctx, id, processed, errMsg)
}

// Calls exposes the call repository for read-side handlers.
func (p *Postgres) Calls() *calls.Repository { return p.calls }

// WebhookLogs exposes the audit store for read-side handlers.
func (p *Postgres) WebhookLogs() *webhooklog.Store { return p.logs }
