package adapter

import (
	"context"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
)

// Distributor hands a fully formed list of codes to an external delivery channel.
type Distributor interface {
	Send(ctx context.Context, target, subject, body string, codes []*model.RedemptionCode) error
}
