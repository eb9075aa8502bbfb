package agents

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// querier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads agents from the relational database.
type Repository struct {
	db querier
}

// NewRepository initializes a repo backed by a pgx pool.
func NewRepository(db querier) *Repository {
	if db == nil {
		panic("agents: pgx pool required")
	}
	return &Repository{db: db}
}

// ListAll returns every agent across all tenants.
func (r *Repository) ListAll(ctx context.Context) ([]Agent, error) {
	query := `
		SELECT id, user_id, name, vapi_assistant_id, COALESCE(phone_number, ''), created_at
		FROM agents
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("agents: select failed: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.VapiAssistantID, &a.PhoneNumber, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("agents: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agents: rows: %w", err)
	}
	return out, nil
}
