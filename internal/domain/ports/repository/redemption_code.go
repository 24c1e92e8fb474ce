package repository

import (
	"context"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
)

// RedemptionCodeRepository is the port for the durable code store.
// Implementations wrap transport failures with domain.ErrStoreUnavailable.
type RedemptionCodeRepository interface {
	// Insert stores a new code. A duplicate code string yields domain.ErrAlreadyExists.
	Insert(ctx context.Context, tx Tx, code *model.RedemptionCode) error
	// FindByCode returns the record regardless of state, or domain.ErrNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedemptionCode, error)
	// FindByIDs returns the records that exist among ids.
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.RedemptionCode, error)
	// CompareAndSetUsed flips used=false to true atomically and returns the
	// updated record. domain.ErrConflict when the record is already used,
	// domain.ErrNotFound when it no longer exists.
	CompareAndSetUsed(ctx context.Context, tx Tx, id, usedBy string, usedAt time.Time) (*model.RedemptionCode, error)
	// List returns records matching filter, newest first.
	List(ctx context.Context, tx Tx, filter model.CodeFilter) ([]*model.RedemptionCode, error)
	// DeleteMany removes records unconditionally and returns how many were removed.
	DeleteMany(ctx context.Context, tx Tx, ids []string) (int, error)
}
