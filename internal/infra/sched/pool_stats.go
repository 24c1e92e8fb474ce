package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"
)

// PoolStatsSampler copies connection pool counters into the metrics gauges.
type PoolStatsSampler struct {
	pool     *pgxpool.Pool
	interval time.Duration
}

func NewPoolStatsSampler(pool *pgxpool.Pool, interval time.Duration) *PoolStatsSampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PoolStatsSampler{pool: pool, interval: interval}
}

func (s *PoolStatsSampler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.sample()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *PoolStatsSampler) sample() {
	st := s.pool.Stat()
	metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
}
