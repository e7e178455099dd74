package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is the Postgres-backed Store.
type PostgresStore struct {
	pool execer
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithExec(exec execer) *PostgresStore {
	if exec == nil {
		panic("records: exec required")
	}
	return &PostgresStore{pool: exec}
}

func (s *PostgresStore) AppendLead(ctx context.Context, lead Lead) error {
	query := `
		INSERT INTO leads (captured_at, call_sid, name, phone, email, topic)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		lead.CapturedAt, lead.CallSID, lead.Name, lead.Phone, lead.Email, lead.Topic)
	if err != nil {
		return fmt.Errorf("records: append lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendCallRecord(ctx context.Context, rec CallRecord) error {
	query := `
		INSERT INTO call_records (ended_at, call_sid, duration_seconds, contact_name, contact_phone, contact_email, summary, action_items, transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		rec.EndedAt, rec.CallSID, int(rec.Duration.Seconds()), rec.ContactName, rec.ContactPhone, rec.ContactEmail, rec.Summary, rec.ActionItems, rec.Transcript)
	if err != nil {
		return fmt.Errorf("records: append call record: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
