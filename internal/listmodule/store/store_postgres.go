package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"molecule/internal/listmodule/models"
	"molecule/pkg/platform/sentinel"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore keeps lists in the lists and list_members tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateList(ctx context.Context, info models.ListInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lists (ref, name, created_at) VALUES ($1, $2, $3)`,
		info.Ref.Hex(), info.Name, info.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("list %s: %w", info.Ref.Hex(), sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLists(ctx context.Context) ([]models.ListInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ref, name, created_at FROM lists`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var out []models.ListInfo
	for rows.Next() {
		var ref string
		var info models.ListInfo
		if err := rows.Scan(&ref, &info.Name, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		info.Ref = common.HexToAddress(ref)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	sortInfos(out)
	return out, nil
}

// AddMembers inserts the batch with a single statement, so it is atomic.
// ON CONFLICT keeps it idempotent per address.
func (s *PostgresStore) AddMembers(ctx context.Context, list common.Address, addrs []common.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_members (list_ref, address)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, list.Hex(), pq.Array(hexStrings(addrs)))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("list %s: %w", list.Hex(), sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert list members: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMembers(ctx context.Context, list common.Address, addrs []common.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM list_members WHERE list_ref = $1 AND address = ANY($2)`,
		list.Hex(), pq.Array(hexStrings(addrs)),
	)
	if err != nil {
		return fmt.Errorf("delete list members: %w", err)
	}
	return nil
}

func (s *PostgresStore) Members(ctx context.Context, list common.Address) ([]common.Address, error) {
	var raw []string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(address), '{}') FROM list_members WHERE list_ref = $1`,
		list.Hex(),
	).Scan(pq.Array(&raw))
	if err != nil {
		return nil, fmt.Errorf("query list members: %w", err)
	}
	return parseMembers(raw)
}

func hexStrings(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
