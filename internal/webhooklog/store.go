package webhooklog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is one row of the append-only webhook audit trail. Exactly one
// entry exists per inbound request; it is finalized at most once to record
// the processing outcome and never touched again.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Payload   []byte    `json:"payload"`
	Processed bool      `json:"processed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists webhook audit entries.
type Store struct {
	db querier
}

// NewStore initializes a store backed by a pgx pool.
func NewStore(db querier) *Store {
	if db == nil {
		panic("webhooklog: pgx pool required")
	}
	return &Store{db: db}
}

// Create appends a new audit entry with the raw payload as received.
func (s *Store) Create(ctx context.Context, kind string, payload []byte) (*Entry, error) {
	id := uuid.New()
	query := `
		INSERT INTO webhook_logs (id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.db.QueryRow(ctx, query, id, kind, payload).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("webhooklog: insert failed: %w", err)
	}
	return &Entry{
		ID:        id,
		Type:      kind,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}

// Finalize records the processing outcome on an existing entry.
func (s *Store) Finalize(ctx context.Context, id uuid.UUID, processed bool, errMsg string) error {
	query := `UPDATE webhook_logs SET processed = $2, error = NULLIF($3, '') WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, processed, errMsg); err != nil {
		return fmt.Errorf("webhooklog: finalize failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit entries for operator inspection.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, type, payload, processed, COALESCE(error, ''), created_at
		FROM webhook_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("webhooklog: select failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &e.Processed, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("webhooklog: scan failed: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("webhooklog: rows: %w", err)
	}
	return out, nil
}
