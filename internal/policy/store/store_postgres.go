package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/logic"
	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	"molecule/pkg/platform/sentinel"
	txcontext "molecule/pkg/platform/tx"
)

// ModuleResolver reattaches module handles to records read back from SQL.
type ModuleResolver interface {
	Lookup(ref common.Address) (logic.Module, bool)
}

// PostgresStore keeps records in policy_records. Ids are NUMERIC(20) so the
// full uint64 range fits. Module handles are not persisted; they are resolved
// by address on every read and stay nil when the module is not deployed in
// this process.
type PostgresStore struct {
	db       *sql.DB
	resolver ModuleResolver
}

func NewPostgres(db *sql.DB, resolver ModuleResolver) *PostgresStore {
	return &PostgresStore{db: db, resolver: resolver}
}

const recordColumns = `id, module_ref, allow_list, name, reverse_logic, enabled, created_at, updated_at`

func (s *PostgresStore) CreateBatch(ctx context.Context, records []*models.Record) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range records {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO policy_records (`+recordColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO NOTHING
			`, r.ID.String(), r.ModuleRef.Hex(), r.IsAllowList, r.Name, r.ReverseLogic, r.Enabled, r.CreatedAt, r.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert policy %s: %w", r.ID, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("insert policy %s: %w", r.ID, err)
			} else if n == 0 {
				return &KeyError{ID: r.ID, Err: sentinel.ErrConflict}
			}
		}
		return nil
	})
}

func (s *PostgresStore) DeleteBatch(ctx context.Context, ids []domain.PolicyID) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM policy_records WHERE id = $1`, id.String())
			if err != nil {
				return fmt.Errorf("delete policy %s: %w", id, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("delete policy %s: %w", id, err)
			} else if n == 0 {
				return &KeyError{ID: id, Err: sentinel.ErrNotFound}
			}
		}
		return nil
	})
}

func (s *PostgresStore) SetEnabled(ctx context.Context, id domain.PolicyID, enabled bool, now time.Time) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE policy_records SET enabled = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+recordColumns,
		id.String(), enabled, now,
	)
	return s.scanOne(row, id)
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PolicyID) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM policy_records WHERE id = $1`, id.String())
	return s.scanOne(row, id)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM policy_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row, id domain.PolicyID) (*models.Record, error) {
	r, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &KeyError{ID: id, Err: sentinel.ErrNotFound}
	}
	return r, err
}

func (s *PostgresStore) scan(row scanner) (*models.Record, error) {
	var (
		r   models.Record
		id  string
		ref string
	)
	if err := row.Scan(&id, &ref, &r.IsAllowList, &r.Name, &r.ReverseLogic, &r.Enabled, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("scan policy id %q: %w", id, err)
	}
	r.ID = domain.PolicyID(parsed)
	r.ModuleRef = common.HexToAddress(ref)
	if s.resolver != nil {
		if m, ok := s.resolver.Lookup(r.ModuleRef); ok {
			r.Module = m
		}
	}
	return &r, nil
}
