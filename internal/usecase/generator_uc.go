package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// CodeGenerator issues single codes with a globally unique code string.
type CodeGenerator interface {
	Generate(ctx context.Context, req model.GenerateRequest) (*model.RedemptionCode, error)
}

var _ CodeGenerator = (*GeneratorUseCase)(nil)

type GeneratorUseCase struct {
	repo       repository.RedemptionCodeRepository
	format     CodeFormat
	maxRetries int
	src        io.Reader
	clock      adapter.Clock
	log        *zerolog.Logger
}

type GeneratorOption func(*GeneratorUseCase)

// WithRandomSource replaces crypto/rand, e.g. with a seeded reader in tests.
func WithRandomSource(r io.Reader) GeneratorOption {
	return func(g *GeneratorUseCase) { g.src = r }
}

func WithGeneratorClock(c adapter.Clock) GeneratorOption {
	return func(g *GeneratorUseCase) { g.clock = c }
}

func NewGeneratorUseCase(repo repository.RedemptionCodeRepository, format CodeFormat, maxRetries int, logger *zerolog.Logger, opts ...GeneratorOption) *GeneratorUseCase {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	genLog := logger.With().Str("component", "GeneratorUC").Logger()
	g := &GeneratorUseCase{
		repo:       repo,
		format:     format,
		maxRetries: maxRetries,
		clock:      adapter.SystemClock{},
		log:        &genLog,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate draws candidates until one is unused, then inserts it. Both the
// pre-check and a unique-constraint race on insert count as a collision.
func (g *GeneratorUseCase) Generate(ctx context.Context, req model.GenerateRequest) (*model.RedemptionCode, error) {
	if !req.Category.Valid() || req.ExpireInDays <= 0 {
		metrics.IncGenerationFailure("invalid")
		return nil, fmt.Errorf("%w: category=%q expire_in_days=%d", domain.ErrInvalidArgument, req.Category, req.ExpireInDays)
	}

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := GenerateCandidate(g.src, g.format.Alphabet, g.format.Length)
		if err != nil {
			metrics.IncGenerationFailure("entropy")
			return nil, fmt.Errorf("draw candidate: %w", err)
		}
		candidate := g.format.Format(raw)

		_, err = g.repo.FindByCode(ctx, repository.NoTX, candidate)
		switch {
		case err == nil:
			g.log.Debug().Int("attempt", attempt).Msg("code collision on lookup")
			continue
		case !errors.Is(err, domain.ErrNotFound):
			metrics.IncGenerationFailure("store")
			return nil, asStoreError(err)
		}

		rc, err := model.NewRedemptionCode(candidate, req.Category, req.ExpireInDays, g.clock.Now())
		if err != nil {
			return nil, err
		}
		rc.Label = req.Label
		rc.BatchID = req.BatchID

		if err := g.repo.Insert(ctx, repository.NoTX, rc); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				g.log.Debug().Int("attempt", attempt).Msg("code collision on insert")
				continue
			}
			metrics.IncGenerationFailure("store")
			return nil, asStoreError(err)
		}
		metrics.IncCodeIssued(string(rc.Category))
		return rc, nil
	}

	metrics.IncGenerationFailure("exhausted")
	g.log.Error().Int("retries", g.maxRetries).Msg("code space exhausted for this call")
	return nil, domain.ErrGenerationExhausted
}

// asStoreError keeps infrastructure failures recognisable as ErrStoreUnavailable.
func asStoreError(err error) error {
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
