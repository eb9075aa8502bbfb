package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCallNotFound is returned when a call id does not exist.
var ErrCallNotFound = errors.New("calls: call not found")

// querier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const callColumns = `id, agent_id, COALESCE(vapi_call_id, ''), direction,
	COALESCE(from_number, ''), COALESCE(to_number, ''), COALESCE(outcome, ''),
	COALESCE(ended_reason, ''), duration_seconds, cost, COALESCE(recording_url, ''),
	started_at, created_at, updated_at`

// Repository stores call records in the relational database.
type Repository struct {
	db querier
}

// NewRepository initializes a repo backed by a pgx pool.
func NewRepository(db querier) *Repository {
	if db == nil {
		panic("calls: pgx pool required")
	}
	return &Repository{db: db}
}

// Create inserts a new call record.
func (r *Repository) Create(ctx context.Context, req NewCall) (*Call, error) {
	if req.AgentID == uuid.Nil {
		return nil, errors.New("calls: agent id required")
	}
	if req.Direction == "" {
		req.Direction = DirectionInbound
	}
	id := uuid.New()
	query := `
		INSERT INTO calls (id, agent_id, vapi_call_id, direction, from_number, to_number,
			outcome, ended_reason, duration_seconds, cost, recording_url, started_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), NULLIF($8, ''), $9, $10, NULLIF($11, ''), $12)
		RETURNING ` + callColumns
	row := r.db.QueryRow(ctx, query,
		id,
		req.AgentID,
		req.VapiCallID,
		req.Direction,
		req.FromNumber,
		req.ToNumber,
		req.Outcome,
		req.EndedReason,
		req.DurationSeconds,
		req.Cost,
		req.RecordingURL,
		req.StartedAt,
	)
	call, err := scanCall(row)
	if err != nil {
		return nil, fmt.Errorf("calls: insert failed: %w", err)
	}
	return call, nil
}

// Update applies the non-nil fields of upd to the call and returns the
// updated record.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, upd Update) (*Call, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.VapiCallID != nil {
		add("vapi_call_id", *upd.VapiCallID)
	}
	if upd.FromNumber != nil {
		add("from_number", *upd.FromNumber)
	}
	if upd.ToNumber != nil {
		add("to_number", *upd.ToNumber)
	}
	if upd.Outcome != nil {
		add("outcome", *upd.Outcome)
	}
	if upd.EndedReason != nil {
		add("ended_reason", *upd.EndedReason)
	}
	if upd.DurationSeconds != nil {
		add("duration_seconds", *upd.DurationSeconds)
	}
	if upd.Cost != nil {
		add("cost", *upd.Cost)
	}
	if upd.RecordingURL != nil {
		add("recording_url", *upd.RecordingURL)
	}
	if upd.StartedAt != nil {
		add("started_at", *upd.StartedAt)
	}

	query := fmt.Sprintf(`UPDATE calls SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), callColumns)
	call, err := scanCall(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("calls: update failed: %w", err)
	}
	return call, nil
}

// Delete removes a call record permanently, returning whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM calls WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("calls: delete failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListAll returns every call record. The resolver works over the full set
// and filters in memory; tiered matching needs cross-agent visibility for
// duplicate detection.
func (r *Repository) ListAll(ctx context.Context) ([]Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// ListRecent returns the most recently created calls, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Call, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calls: select failed: %w", err)
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("calls: scan failed: %w", err)
		}
		out = append(out, *call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calls: rows: %w", err)
	}
	return out, nil
}

func scanCall(row pgx.Row) (*Call, error) {
	var c Call
	if err := row.Scan(
		&c.ID,
		&c.AgentID,
		&c.VapiCallID,
		&c.Direction,
		&c.FromNumber,
		&c.ToNumber,
		&c.Outcome,
		&c.EndedReason,
		&c.DurationSeconds,
		&c.Cost,
		&c.RecordingURL,
		&c.StartedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
