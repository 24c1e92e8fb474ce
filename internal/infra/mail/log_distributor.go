package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
)

var _ adapter.Distributor = (*LogDistributor)(nil)

// LogDistributor writes the would-be message to the log. Used in dev mode
// and whenever no SMTP host is configured.
type LogDistributor struct {
	log *zerolog.Logger
}

func NewLogDistributor(logger *zerolog.Logger) *LogDistributor {
	ll := logger.With().Str("component", "LogDistributor").Logger()
	return &LogDistributor{log: &ll}
}

func (d *LogDistributor) Send(_ context.Context, target, subject, body string, codes []*model.RedemptionCode) error {
	d.log.Info().
		Str("target", target).
		Str("subject", subject).
		Int("codes", len(codes)).
		Msg(body)
	return nil
}
