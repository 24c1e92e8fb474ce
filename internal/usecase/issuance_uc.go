package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/i18n"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// IssuanceUseCase issues single codes and bulk batches with optional distribution.
type IssuanceUseCase interface {
	IssueOne(ctx context.Context, req model.GenerateRequest) (*model.RedemptionCode, error)
	IssueBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, error)
}

// Messages resolves distribution mail text.
type Messages interface {
	T(key string, args ...interface{}) string
}

var _ IssuanceUseCase = (*IssuanceUC)(nil)

type IssuanceUC struct {
	gen      CodeGenerator
	dist     adapter.Distributor
	qr       QRUseCase
	msgs     Messages
	maxBatch int
	log      *zerolog.Logger
}

func NewIssuanceUseCase(gen CodeGenerator, dist adapter.Distributor, qr QRUseCase, msgs Messages, maxBatch int, logger *zerolog.Logger) *IssuanceUC {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	if msgs == nil {
		msgs = i18n.MustDefault("en")
	}
	il := logger.With().Str("component", "IssuanceUC").Logger()
	return &IssuanceUC{gen: gen, dist: dist, qr: qr, msgs: msgs, maxBatch: maxBatch, log: &il}
}

func (uc *IssuanceUC) IssueOne(ctx context.Context, req model.GenerateRequest) (*model.RedemptionCode, error) {
	return uc.gen.Generate(ctx, req)
}

// IssueBatch generates up to req.Amount codes sequentially, skipping failures,
// then makes at most one distribution call with every generated code.
// A delivery failure is reported on the result, not as the returned error.
func (uc *IssuanceUC) IssueBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, error) {
	if req.Amount < 1 || req.Amount > uc.maxBatch {
		return nil, fmt.Errorf("%w: amount must be 1..%d", domain.ErrInvalidArgument, uc.maxBatch)
	}
	if !req.Category.Valid() || req.ExpireInDays <= 0 {
		return nil, fmt.Errorf("%w: category=%q expire_in_days=%d", domain.ErrInvalidArgument, req.Category, req.ExpireInDays)
	}

	res := &model.BatchResult{
		BatchID:        ulid.Make().String(),
		Requested:      req.Amount,
		FailureReasons: map[string]int{},
	}
	ctx = logging.WithBatchID(ctx, res.BatchID)
	l := logging.With(ctx, uc.log)
	defer logging.TraceDuration(l, "IssuanceUC.IssueBatch")()

	for i := 0; i < req.Amount; i++ {
		if ctx.Err() != nil {
			// already issued codes stay valid; the rest is not attempted
			skipped := req.Amount - i
			res.Failed += skipped
			res.FailureReasons["cancelled"] += skipped
			l.Warn().Int("issued", len(res.Codes)).Int("skipped", skipped).Msg("batch stopped early")
			break
		}
		rc, err := uc.gen.Generate(ctx, model.GenerateRequest{
			Category:     req.Category,
			ExpireInDays: req.ExpireInDays,
			Label:        req.Label,
			BatchID:      res.BatchID,
		})
		if err != nil {
			res.Failed++
			res.FailureReasons[failureReason(err)]++
			l.Warn().Err(err).Int("index", i).Msg("code generation failed; continuing batch")
			continue
		}
		res.Codes = append(res.Codes, rc)
	}

	if len(res.Codes) == 0 {
		metrics.IncBatch("failed")
		l.Error().Int("requested", req.Amount).Interface("reasons", res.FailureReasons).Msg("batch produced no codes")
		return res, fmt.Errorf("%w: %d requested, %d failed", domain.ErrNoCodesGenerated, req.Amount, res.Failed)
	}

	if target := strings.TrimSpace(req.Target); target != "" {
		uc.distribute(ctx, l, target, req, res)
	}

	metrics.IncBatch(string(res.Outcome()))
	l.Info().
		Int("succeeded", res.Succeeded()).
		Int("failed", res.Failed).
		Str("outcome", string(res.Outcome())).
		Msg("batch issued")
	return res, nil
}

func (uc *IssuanceUC) distribute(ctx context.Context, l *zerolog.Logger, target string, req model.BatchRequest, res *model.BatchResult) {
	if uc.dist == nil {
		res.DeliveryErr = fmt.Errorf("%w: no distributor configured", domain.ErrDeliveryFailed)
		metrics.IncDistribution("failed")
		return
	}
	subject, body := uc.compose(req, res)
	if err := uc.dist.Send(ctx, target, subject, body, res.Codes); err != nil {
		res.DeliveryErr = fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
		metrics.IncDistribution("failed")
		l.Error().Err(err).Str("target", target).Msg("codes generated, delivery failed")
		return
	}
	res.Delivered = true
	metrics.IncDistribution("sent")
}

func (uc *IssuanceUC) compose(req model.BatchRequest, res *model.BatchResult) (string, string) {
	label := string(req.Label)
	if label == "" {
		label = string(req.Category)
	}
	subject := uc.t("codes.mail.subject", len(res.Codes), label)

	var b strings.Builder
	b.WriteString(uc.t("codes.mail.greeting"))
	b.WriteString("\n\n")
	b.WriteString(uc.t("codes.mail.intro", req.Category, res.BatchID, label))
	b.WriteString("\n\n")
	for i, rc := range res.Codes {
		exp := uc.t("codes.mail.no_expiry")
		if rc.ExpiresAt != nil {
			exp = rc.ExpiresAt.UTC().Format("2006-01-02")
		}
		b.WriteString(uc.t("codes.mail.line", i+1, rc.Code, exp))
		b.WriteString("\n")
		if uc.qr != nil {
			if u, _, err := uc.qr.Encode(rc, "", true); err == nil {
				b.WriteString(uc.t("codes.mail.line_qr", u))
				b.WriteString("\n")
			}
		}
	}
	b.WriteString("\n")
	b.WriteString(uc.t("codes.mail.footer"))
	return subject, b.String()
}

func (uc *IssuanceUC) t(key string, args ...interface{}) string {
	return uc.msgs.T(key, args...)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrGenerationExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "other"
}
