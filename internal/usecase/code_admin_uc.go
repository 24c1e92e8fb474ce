package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// CodeAdminUseCase backs the administrative console.
type CodeAdminUseCase interface {
	List(ctx context.Context, filter model.CodeFilter) ([]*model.RedemptionCode, error)
	Get(ctx context.Context, code string) (*model.RedemptionCode, error)
	Delete(ctx context.Context, ids []string) (*model.DeleteResult, error)
	DeleteOne(ctx context.Context, id string) (*model.DeleteResult, error)
	Stats(ctx context.Context) ([]model.CategoryStats, error)
}

var _ CodeAdminUseCase = (*CodeAdminUC)(nil)

type CodeAdminUC struct {
	repo   repository.RedemptionCodeRepository
	txm    repository.TransactionManager
	format CodeFormat
	clock  adapter.Clock
	log    *zerolog.Logger
}

// NewCodeAdminUseCase builds the admin use case. txm may be nil, in which
// case Delete runs its lookup and delete without a transaction.
func NewCodeAdminUseCase(repo repository.RedemptionCodeRepository, txm repository.TransactionManager, format CodeFormat, clock adapter.Clock, logger *zerolog.Logger) *CodeAdminUC {
	if clock == nil {
		clock = adapter.SystemClock{}
	}
	al := logger.With().Str("component", "CodeAdminUC").Logger()
	return &CodeAdminUC{repo: repo, txm: txm, format: format, clock: clock, log: &al}
}

func (uc *CodeAdminUC) List(ctx context.Context, filter model.CodeFilter) ([]*model.RedemptionCode, error) {
	codes, err := uc.repo.List(ctx, repository.NoTX, filter)
	if err != nil {
		return nil, asStoreError(err)
	}
	return codes, nil
}

// Get looks a code up by its (possibly unnormalised) string.
func (uc *CodeAdminUC) Get(ctx context.Context, code string) (*model.RedemptionCode, error) {
	normalized, err := uc.format.Normalize(code)
	if err != nil {
		return nil, domain.ErrCodeNotFound
	}
	rc, err := uc.repo.FindByCode(ctx, repository.NoTX, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, asStoreError(err)
	}
	return rc, nil
}

// Delete removes the given records unconditionally. Used codes are deleted
// too; they are listed in UsedDeleted and logged so the caller can warn.
func (uc *CodeAdminUC) Delete(ctx context.Context, ids []string) (*model.DeleteResult, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no ids given", domain.ErrInvalidArgument)
	}

	res := &model.DeleteResult{UsedDeleted: []string{}}
	run := func(ctx context.Context, tx repository.Tx) error {
		existing, err := uc.repo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, rc := range existing {
			if rc.Used {
				res.UsedDeleted = append(res.UsedDeleted, rc.Code)
			}
		}
		res.Deleted, err = uc.repo.DeleteMany(ctx, tx, ids)
		return err
	}

	var err error
	if uc.txm != nil {
		err = uc.txm.WithTx(ctx, pgx.TxOptions{}, run)
	} else {
		err = run(ctx, repository.NoTX)
	}
	if err != nil {
		return nil, asStoreError(err)
	}
	n := res.Deleted

	for _, code := range res.UsedDeleted {
		uc.log.Warn().Str("code", code).Msg("deleted a redeemed code; its redemption record is gone")
	}
	used := len(res.UsedDeleted)
	if used > n {
		used = n
	}
	metrics.AddCodesDeleted(used, n-used)
	uc.log.Info().Int("requested", len(ids)).Int("deleted", n).Int("used_deleted", len(res.UsedDeleted)).Msg("codes deleted")
	return res, nil
}

func (uc *CodeAdminUC) DeleteOne(ctx context.Context, id string) (*model.DeleteResult, error) {
	res, err := uc.Delete(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if res.Deleted == 0 {
		return nil, domain.ErrCodeNotFound
	}
	return res, nil
}

// Stats counts codes per category and state at the current instant.
func (uc *CodeAdminUC) Stats(ctx context.Context) ([]model.CategoryStats, error) {
	codes, err := uc.repo.List(ctx, repository.NoTX, model.CodeFilter{})
	if err != nil {
		return nil, asStoreError(err)
	}
	now := uc.clock.Now()
	byCat := make(map[model.Category]*model.CategoryStats, len(model.Categories))
	out := make([]model.CategoryStats, len(model.Categories))
	for i, c := range model.Categories {
		out[i].Category = c
		byCat[c] = &out[i]
	}
	for _, rc := range codes {
		s, ok := byCat[rc.Category]
		if !ok {
			continue
		}
		s.Issued++
		switch rc.Status(now) {
		case model.CodeStatusRedeemed:
			s.Redeemed++
		case model.CodeStatusExpired:
			s.Expired++
		default:
			s.Active++
		}
	}
	return out, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
