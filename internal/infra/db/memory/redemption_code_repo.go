// Package memory holds process-local repository implementations used by the
// demo binary, dev mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
)

var _ repository.RedemptionCodeRepository = (*RedemptionCodeRepo)(nil)

// RedemptionCodeRepo keeps codes in two maps guarded by one mutex. Records are
// cloned on the way in and out so callers never share state with the store.
type RedemptionCodeRepo struct {
	mu     sync.RWMutex
	byID   map[string]*model.RedemptionCode
	byCode map[string]string
	seq    map[string]int64 // insertion order, breaks CreatedAt ties in List
	next   int64
}

func NewRedemptionCodeRepo() *RedemptionCodeRepo {
	return &RedemptionCodeRepo{
		byID:   make(map[string]*model.RedemptionCode),
		byCode: make(map[string]string),
		seq:    make(map[string]int64),
	}
}

func (r *RedemptionCodeRepo) Insert(ctx context.Context, _ repository.Tx, code *model.RedemptionCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if code == nil || code.ID == "" || code.Code == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[code.Code]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := r.byID[code.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.byID[code.ID] = code.Clone()
	r.byCode[code.Code] = code.ID
	r.next++
	r.seq[code.ID] = r.next
	return nil
}

func (r *RedemptionCodeRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.RedemptionCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *RedemptionCodeRepo) FindByIDs(ctx context.Context, _ repository.Tx, ids []string) ([]*model.RedemptionCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.RedemptionCode, 0, len(ids))
	for _, id := range ids {
		if rc, ok := r.byID[id]; ok {
			out = append(out, rc.Clone())
		}
	}
	return out, nil
}

// CompareAndSetUsed performs the used=false -> true transition under the write
// lock, so of any number of concurrent callers exactly one observes success.
func (r *RedemptionCodeRepo) CompareAndSetUsed(ctx context.Context, _ repository.Tx, id, usedBy string, usedAt time.Time) (*model.RedemptionCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := rc.MarkUsed(usedBy, usedAt); err != nil {
		return nil, err
	}
	return rc.Clone(), nil
}

func (r *RedemptionCodeRepo) List(ctx context.Context, _ repository.Tx, filter model.CodeFilter) ([]*model.RedemptionCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*model.RedemptionCode, 0, len(r.byID))
	for _, rc := range r.byID {
		if filter.Match(rc) {
			out = append(out, rc.Clone())
		}
	}
	seq := make(map[string]int64, len(out))
	for _, rc := range out {
		seq[rc.ID] = r.seq[rc.ID]
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seq[out[i].ID] > seq[out[j].ID]
	})
	return out, nil
}

func (r *RedemptionCodeRepo) DeleteMany(ctx context.Context, _ repository.Tx, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		rc, ok := r.byID[id]
		if !ok {
			continue
		}
		delete(r.byCode, rc.Code)
		delete(r.byID, id)
		delete(r.seq, id)
		n++
	}
	return n, nil
}

// Len reports how many records are stored.
func (r *RedemptionCodeRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
