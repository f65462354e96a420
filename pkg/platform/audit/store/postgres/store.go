package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "molecule/pkg/platform/audit"
	txcontext "molecule/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins a transaction carried in ctx so audit rows commit with the
// registry change they describe.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, subject, action,
			decision, reason, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, subject, action,
			   decision, reason, request_id, actor_id
		FROM audit_events
		WHERE subject = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		if err := rows.Scan(&category, &e.Timestamp, &e.Subject, &e.Action,
			&e.Decision, &e.Reason, &e.RequestID, &e.ActorID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
