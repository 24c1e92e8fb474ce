package memory

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
)

var _ repository.TransactionManager = TxManager{}

// TxManager runs fn directly. The memory store has no rollback; each
// repository call is atomic on its own.
type TxManager struct{}

func (TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
