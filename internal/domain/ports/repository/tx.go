package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque, infra-defined transaction handle (pgx.Tx for postgres).
// Repositories accept nil to mean "no transaction".
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside a transaction and commits when fn returns nil.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
