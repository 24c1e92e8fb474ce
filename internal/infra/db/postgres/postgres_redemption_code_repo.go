package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
)

var _ repository.RedemptionCodeRepository = (*redemptionCodeRepo)(nil)

type redemptionCodeRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionCodeRepo(pool *pgxpool.Pool) repository.RedemptionCodeRepository {
	return &redemptionCodeRepo{pool: pool}
}

const selectCodeCols = `id, code, category, label, batch_id, created_at, expires_at, used, used_by, used_at, version`

func (r *redemptionCodeRepo) Insert(ctx context.Context, tx repository.Tx, rc *model.RedemptionCode) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO redemption_codes (id, code, category, label, batch_id, created_at, expires_at, used, used_by, used_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err = exec.Exec(ctx, q,
		rc.ID, rc.Code, string(rc.Category), string(rc.Label), rc.BatchID,
		rc.CreatedAt, rc.ExpiresAt, rc.Used, rc.UsedBy, rc.UsedAt, rc.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return storeErr("insert code", err)
	}
	return nil
}

func (r *redemptionCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + selectCodeCols + ` FROM redemption_codes WHERE code = $1;`
	return scanCode(exec.QueryRow(ctx, q, code))
}

func (r *redemptionCodeRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.RedemptionCode, error) {
	if len(ids) == 0 {
		return []*model.RedemptionCode{}, nil
	}
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + selectCodeCols + ` FROM redemption_codes WHERE id::text = ANY($1) ORDER BY created_at DESC;`
	rows, err := exec.Query(ctx, q, ids)
	if err != nil {
		return nil, storeErr("find codes by id", err)
	}
	return collectCodes(rows)
}

// CompareAndSetUsed relies on the WHERE used = FALSE guard: Postgres row
// locking lets exactly one concurrent UPDATE match. A miss is then resolved
// into ErrNotFound or ErrConflict with a follow-up read.
func (r *redemptionCodeRepo) CompareAndSetUsed(ctx context.Context, tx repository.Tx, id, usedBy string, usedAt time.Time) (*model.RedemptionCode, error) {
	if usedBy == "" {
		return nil, domain.ErrInvalidArgument
	}
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `
UPDATE redemption_codes
   SET used = TRUE, used_by = $2, used_at = $3, version = version + 1
 WHERE id = $1 AND used = FALSE
RETURNING ` + selectCodeCols + `;`
	rc, err := scanCode(exec.QueryRow(ctx, q, id, usedBy, usedAt))
	if err == nil {
		return rc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var used bool
	err = exec.QueryRow(ctx, `SELECT used FROM redemption_codes WHERE id = $1;`, id).Scan(&used)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, domain.ErrNotFound
	case err != nil:
		return nil, storeErr("resolve cas miss", err)
	case used:
		return nil, domain.ErrConflict
	}
	// Row exists and is unused yet the update missed; treat as a lost race.
	return nil, domain.ErrConflict
}

func (r *redemptionCodeRepo) List(ctx context.Context, tx repository.Tx, filter model.CodeFilter) ([]*model.RedemptionCode, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		where []string
		args  []interface{}
	)
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Used != nil {
		args = append(args, *filter.Used)
		where = append(where, fmt.Sprintf("used = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		where = append(where, fmt.Sprintf("batch_id = $%d", len(args)))
	}
	q := `SELECT ` + selectCodeCols + ` FROM redemption_codes`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id;`

	rows, err := exec.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("list codes", err)
	}
	return collectCodes(rows)
}

func (r *redemptionCodeRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := exec.Exec(ctx, `DELETE FROM redemption_codes WHERE id::text = ANY($1);`, ids)
	if err != nil {
		return 0, storeErr("delete codes", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanCode(row pgx.Row) (*model.RedemptionCode, error) {
	var (
		rc       model.RedemptionCode
		category string
		label    string
	)
	err := row.Scan(&rc.ID, &rc.Code, &category, &label, &rc.BatchID, &rc.CreatedAt,
		&rc.ExpiresAt, &rc.Used, &rc.UsedBy, &rc.UsedAt, &rc.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("scan code", err)
	}
	rc.Category = model.Category(category)
	rc.Label = model.DistributionLabel(label)
	return &rc, nil
}

func collectCodes(rows pgx.Rows) ([]*model.RedemptionCode, error) {
	defer rows.Close()
	out := make([]*model.RedemptionCode, 0)
	for rows.Next() {
		rc, err := scanCode(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate codes", err)
	}
	return out, nil
}
