//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
)

func TestRedemptionCodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewRedemptionCodeRepo(testPool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	mustInsert := func(t *testing.T, code string, cat model.Category) *model.RedemptionCode {
		t.Helper()
		rc, err := model.NewRedemptionCode(code, cat, 30, now)
		if err != nil {
			t.Fatalf("NewRedemptionCode: %v", err)
		}
		if err := repo.Insert(ctx, nil, rc); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		return rc
	}

	t.Run("should insert and find a code", func(t *testing.T) {
		cleanup(t)
		rc := mustInsert(t, "ABCD-EFGH-JKLM", model.CategoryStudent)

		got, err := repo.FindByCode(ctx, nil, "ABCD-EFGH-JKLM")
		if err != nil {
			t.Fatalf("FindByCode failed: %v", err)
		}
		if got.ID != rc.ID || got.Category != model.CategoryStudent || got.Used {
			t.Errorf("unexpected record: %+v", got)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*rc.ExpiresAt) {
			t.Errorf("expiry not round-tripped: %v", got.ExpiresAt)
		}
	})

	t.Run("should map duplicate code strings to ErrAlreadyExists", func(t *testing.T) {
		cleanup(t)
		mustInsert(t, "ABCD-EFGH-JKLN", model.CategoryStudent)
		dup, _ := model.NewRedemptionCode("ABCD-EFGH-JKLN", model.CategoryEmployer, 30, now)
		if err := repo.Insert(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should let one of many concurrent updates win", func(t *testing.T) {
		cleanup(t)
		rc := mustInsert(t, "ABCD-EFGH-JKLP", model.CategoryEmployer)

		const workers = 10
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.CompareAndSetUsed(ctx, nil, rc.ID, "bob", now)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
		got, _ := repo.FindByCode(ctx, nil, rc.Code)
		if !got.Used || got.UsedBy == nil || *got.UsedBy != "bob" || got.Version != 1 {
			t.Errorf("unexpected stored state: %+v", got)
		}
	})

	t.Run("should report not found for a missing id", func(t *testing.T) {
		cleanup(t)
		_, err := repo.CompareAndSetUsed(ctx, nil, "00000000-0000-0000-0000-000000000000", "bob", now)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should filter, list and delete", func(t *testing.T) {
		cleanup(t)
		a := mustInsert(t, "AAAA-AAAA-AAAA", model.CategoryStudent)
		b := mustInsert(t, "BBBB-BBBB-BBBB", model.CategoryEmployer)
		if _, err := repo.CompareAndSetUsed(ctx, nil, b.ID, "carol", now); err != nil {
			t.Fatalf("CompareAndSetUsed: %v", err)
		}

		used := true
		list, err := repo.List(ctx, nil, model.CodeFilter{Used: &used})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 || list[0].ID != b.ID {
			t.Errorf("expected only the used code, got %d records", len(list))
		}

		found, err := repo.FindByIDs(ctx, nil, []string{a.ID, b.ID, "nope"})
		if err != nil || len(found) != 2 {
			t.Fatalf("FindByIDs: %d records, err %v", len(found), err)
		}

		n, err := repo.DeleteMany(ctx, nil, []string{a.ID, b.ID, "nope"})
		if err != nil || n != 2 {
			t.Fatalf("DeleteMany: n=%d err=%v", n, err)
		}
	})

	t.Run("should roll back an insert when the transaction fails", func(t *testing.T) {
		cleanup(t)
		txm := NewTxManager(testPool)
		boom := errors.New("boom")
		err := txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			rc, _ := model.NewRedemptionCode("ROLL-BACK-CODE", model.CategoryStudent, 1, now)
			if err := repo.Insert(ctx, tx, rc); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := repo.FindByCode(ctx, nil, "ROLL-BACK-CODE"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected rolled back insert, got %v", err)
		}
	})
}
