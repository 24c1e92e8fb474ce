//go:build !integration

package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/db/memory"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// virtualClock is a manually advanced clock.
type virtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newVirtualClock() *virtualClock {
	return &virtualClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// faultyRepo wraps the memory store and injects failures per call.
type faultyRepo struct {
	*memory.RedemptionCodeRepo

	mu         sync.Mutex
	findErr    error
	insertErr  error
	casErr     error
	listErr    error
	failInsert func(n int) bool // decides per insert call (1-based)
	inserts    int
	finds      int
}

func newFaultyRepo() *faultyRepo {
	return &faultyRepo{RedemptionCodeRepo: memory.NewRedemptionCodeRepo()}
}

func (r *faultyRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	r.mu.Lock()
	r.finds++
	err := r.findErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.RedemptionCodeRepo.FindByCode(ctx, tx, code)
}

func (r *faultyRepo) Insert(ctx context.Context, tx repository.Tx, rc *model.RedemptionCode) error {
	r.mu.Lock()
	r.inserts++
	n := r.inserts
	err := r.insertErr
	fail := r.failInsert
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if fail != nil && fail(n) {
		return errors.New("connection reset by peer")
	}
	return r.RedemptionCodeRepo.Insert(ctx, tx, rc)
}

func (r *faultyRepo) CompareAndSetUsed(ctx context.Context, tx repository.Tx, id, usedBy string, usedAt time.Time) (*model.RedemptionCode, error) {
	if r.casErr != nil {
		return nil, r.casErr
	}
	return r.RedemptionCodeRepo.CompareAndSetUsed(ctx, tx, id, usedBy, usedAt)
}

func (r *faultyRepo) List(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.RedemptionCode, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.RedemptionCodeRepo.List(ctx, tx, f)
}

// repeatingSource replays the same bytes forever so every candidate is identical.
type repeatingSource struct{ b byte }

func (s repeatingSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.b
	}
	return len(p), nil
}

// recordingDistributor counts Send calls and keeps the last message.
type recordingDistributor struct {
	mu      sync.Mutex
	calls   int
	target  string
	subject string
	body    string
	codes   []*model.RedemptionCode
	err     error
}

func (d *recordingDistributor) Send(_ context.Context, target, subject, body string, codes []*model.RedemptionCode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.target, d.subject, d.body, d.codes = target, subject, body, codes
	return d.err
}

// memLimiter is a fixed-window limiter without expiry.
type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (l *memLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

type fakeRenderer struct{ last string }

func (f *fakeRenderer) PNG(content string, _ int) ([]byte, error) {
	f.last = content
	return append([]byte("\x89PNG"), content...), nil
}
