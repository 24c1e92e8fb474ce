package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// RedemptionUseCase decides whether a presented code may be redeemed and
// performs the used=false -> true transition.
type RedemptionUseCase interface {
	Redeem(ctx context.Context, code, identity string) (*model.RedemptionCode, error)
	RedeemPayload(ctx context.Context, payload, identity string) (*model.RedemptionCode, error)
	Check(ctx context.Context, code string) (model.CodeStatus, *model.RedemptionCode, error)
}

// AttemptLimiter bounds redemption attempts per key within a window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PayloadDecoder recovers a code from a scanned QR value.
type PayloadDecoder interface {
	Decode(input string) (*model.DecodedPayload, error)
}

var _ RedemptionUseCase = (*RedemptionUC)(nil)

type RedemptionUC struct {
	repo    repository.RedemptionCodeRepository
	format  CodeFormat
	decoder PayloadDecoder
	clock   adapter.Clock
	log     *zerolog.Logger
	dev     bool

	limiter     AttemptLimiter
	limit       int
	limitWindow time.Duration
}

type RedemptionOption func(*RedemptionUC)

func WithRedemptionClock(c adapter.Clock) RedemptionOption {
	return func(uc *RedemptionUC) { uc.clock = c }
}

func WithAttemptLimiter(l AttemptLimiter, limit int, window time.Duration) RedemptionOption {
	return func(uc *RedemptionUC) {
		uc.limiter, uc.limit, uc.limitWindow = l, limit, window
	}
}

// WithDevLogging disables code redaction in logs.
func WithDevLogging(dev bool) RedemptionOption {
	return func(uc *RedemptionUC) { uc.dev = dev }
}

func NewRedemptionUseCase(repo repository.RedemptionCodeRepository, format CodeFormat, decoder PayloadDecoder, logger *zerolog.Logger, opts ...RedemptionOption) *RedemptionUC {
	rl := logger.With().Str("component", "RedemptionUC").Logger()
	uc := &RedemptionUC{
		repo:    repo,
		format:  format,
		decoder: decoder,
		clock:   adapter.SystemClock{},
		log:     &rl,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// Redeem checks existence, then used, then expiry, and finally performs the
// conditional write. The conditional write is the only thing that decides a
// winner under concurrency; the earlier checks only short-circuit.
func (uc *RedemptionUC) Redeem(ctx context.Context, code, identity string) (*model.RedemptionCode, error) {
	defer logging.TraceDuration(uc.log, "RedemptionUC.Redeem")()

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, fmt.Errorf("%w: redeemer identity is required", domain.ErrInvalidArgument)
	}
	ctx = logging.WithRedeemer(ctx, identity)
	l := logging.With(ctx, uc.log)

	if err := uc.allow(ctx, identity); err != nil {
		return nil, uc.outcome(l, code, err)
	}

	normalized, err := uc.format.Normalize(code)
	if err != nil {
		// a string that cannot be a code has no record
		return nil, uc.outcome(l, code, domain.ErrCodeNotFound)
	}

	rc, err := uc.repo.FindByCode(ctx, repository.NoTX, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, uc.outcome(l, normalized, domain.ErrCodeNotFound)
		}
		return nil, uc.outcome(l, normalized, asStoreError(err))
	}

	now := uc.clock.Now()
	if rc.Used {
		return nil, uc.outcome(l, normalized, domain.ErrAlreadyRedeemed)
	}
	if rc.IsExpired(now) {
		return nil, uc.outcome(l, normalized, domain.ErrCodeExpired)
	}

	updated, err := uc.repo.CompareAndSetUsed(ctx, repository.NoTX, rc.ID, identity, now)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConflict):
		return nil, uc.outcome(l, normalized, domain.ErrAlreadyRedeemed)
	case errors.Is(err, domain.ErrNotFound):
		return nil, uc.outcome(l, normalized, domain.ErrCodeNotFound)
	default:
		return nil, uc.outcome(l, normalized, asStoreError(err))
	}

	metrics.IncRedemption("redeemed")
	l.Info().Str("code", logging.Redact(normalized, uc.dev)).Str("type", string(updated.Category)).Msg("code redeemed")
	return updated, nil
}

// RedeemPayload decodes a QR value before any store access. A malformed
// payload never reaches the validator.
func (uc *RedemptionUC) RedeemPayload(ctx context.Context, payload, identity string) (*model.RedemptionCode, error) {
	if uc.decoder == nil {
		return nil, fmt.Errorf("%w: no payload decoder configured", domain.ErrInvalidArgument)
	}
	decoded, err := uc.decoder.Decode(payload)
	if err != nil {
		metrics.IncRedemption("malformed")
		return nil, err
	}
	return uc.Redeem(ctx, decoded.Code, identity)
}

// Check reports the current status without mutating anything.
func (uc *RedemptionUC) Check(ctx context.Context, code string) (model.CodeStatus, *model.RedemptionCode, error) {
	normalized, err := uc.format.Normalize(code)
	if err != nil {
		return model.CodeStatusNotFound, nil, nil
	}
	rc, err := uc.repo.FindByCode(ctx, repository.NoTX, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.CodeStatusNotFound, nil, nil
		}
		return "", nil, asStoreError(err)
	}
	return rc.Status(uc.clock.Now()), rc, nil
}

func (uc *RedemptionUC) allow(ctx context.Context, identity string) error {
	if uc.limiter == nil || uc.limit <= 0 {
		return nil
	}
	ok, err := uc.limiter.Allow(ctx, "redeem:"+identity, uc.limit, uc.limitWindow)
	if err != nil {
		// fail open: the limiter is a guard, not part of correctness
		uc.log.Error().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

// outcome records metrics and logs for a failed attempt and returns err unchanged.
func (uc *RedemptionUC) outcome(l *zerolog.Logger, code string, err error) error {
	label := "error"
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		label = "not_found"
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		label = "already_redeemed"
	case errors.Is(err, domain.ErrCodeExpired):
		label = "expired"
	case errors.Is(err, domain.ErrRateLimited):
		label = "rate_limited"
	}
	metrics.IncRedemption(label)

	ev := l.Info()
	if label == "error" {
		ev = l.Error()
	}
	ev.Err(err).Str("code", logging.Redact(code, uc.dev)).Str("outcome", label).Msg("redemption refused")
	return err
}
