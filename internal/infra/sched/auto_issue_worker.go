package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/usecase"
)

// Locker is satisfied by the redis lock. A nil Locker runs every tick locally.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// AutoIssueWorker runs each configured issuance job on its own interval.
type AutoIssueWorker struct {
	jobs     []config.AutoIssueJob
	issuance usecase.IssuanceUseCase
	locker   Locker
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewAutoIssueWorker(cfg config.AutoIssueConfig, issuance usecase.IssuanceUseCase, locker Locker, logger *zerolog.Logger) *AutoIssueWorker {
	wl := logger.With().Str("component", "AutoIssueWorker").Logger()
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AutoIssueWorker{jobs: cfg.Jobs, issuance: issuance, locker: locker, lockTTL: ttl, log: &wl}
}

// Run blocks until ctx is done.
func (w *AutoIssueWorker) Run(ctx context.Context) error {
	if len(w.jobs) == 0 {
		w.log.Info().Msg("no auto issue jobs configured")
		<-ctx.Done()
		return ctx.Err()
	}
	w.log.Info().Int("jobs", len(w.jobs)).Msg("Starting auto issue worker")

	var wg sync.WaitGroup
	for _, j := range w.jobs {
		wg.Add(1)
		go func(j config.AutoIssueJob) {
			defer wg.Done()
			w.loop(ctx, j)
		}(j)
	}
	wg.Wait()
	w.log.Info().Msg("Stopping auto issue worker")
	return ctx.Err()
}

func (w *AutoIssueWorker) loop(ctx context.Context, j config.AutoIssueJob) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.RunJob(ctx, j)
		}
	}
}

// RunJob issues one batch for j under the job lock. A nil result with a nil
// error means another instance held the lock.
func (w *AutoIssueWorker) RunJob(ctx context.Context, j config.AutoIssueJob) (*model.BatchResult, error) {
	l := w.log.With().Str("job", j.Name).Logger()

	if w.locker != nil {
		key := "auto_issue:" + j.Name
		token, err := w.locker.TryLock(ctx, key, w.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				l.Debug().Msg("job locked by another instance; skipping tick")
				return nil, nil
			}
			l.Error().Err(err).Msg("lock unavailable; skipping tick")
			return nil, err
		}
		defer func() {
			// the run context may already be cancelled; release on a fresh one
			uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := w.locker.Unlock(uctx, key, token); err != nil {
				l.Warn().Err(err).Msg("unlock failed; lease will expire")
			}
		}()
	}

	cat, err := model.ParseCategory(j.Category)
	if err != nil {
		l.Error().Str("category", j.Category).Msg("invalid job category")
		return nil, err
	}
	res, err := w.issuance.IssueBatch(ctx, model.BatchRequest{
		Amount:       j.Amount,
		Category:     cat,
		ExpireInDays: j.ExpireInDays,
		Label:        model.NewDistributionLabel(j.Label),
		Target:       j.Target,
	})
	if err != nil {
		l.Error().Err(err).Msg("auto issue failed")
		return res, err
	}
	l.Info().Str("batch_id", res.BatchID).Str("result", res.String()).Msg("auto issue done")
	return res, nil
}
