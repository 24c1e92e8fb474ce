//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
)

type redemptionFixture struct {
	repo  *faultyRepo
	clock *virtualClock
	gen   *GeneratorUseCase
	qr    *QRCodec
	uc    *RedemptionUC
}

func newRedemptionFixture(t *testing.T, opts ...RedemptionOption) *redemptionFixture {
	t.Helper()
	repo := newFaultyRepo()
	clock := newVirtualClock()
	qr := NewQRCodec("https://jobs.example.org/redeem", "code", newTestLogger(), WithQRClock(clock))
	opts = append([]RedemptionOption{WithRedemptionClock(clock)}, opts...)
	return &redemptionFixture{
		repo:  repo,
		clock: clock,
		gen:   NewGeneratorUseCase(repo, DefaultCodeFormat(), 5, newTestLogger(), WithGeneratorClock(clock)),
		qr:    qr,
		uc:    NewRedemptionUseCase(repo, DefaultCodeFormat(), qr, newTestLogger(), opts...),
	}
}

func (f *redemptionFixture) issue(t *testing.T, days int) *model.RedemptionCode {
	t.Helper()
	rc, err := f.gen.Generate(context.Background(), model.GenerateRequest{Category: model.CategoryStudent, ExpireInDays: days})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return rc
}

func TestRedemption_AliceAndBob(t *testing.T) {
	ctx := context.Background()
	f := newRedemptionFixture(t)
	rc := f.issue(t, 30)

	f.clock.Advance(time.Hour)
	aliceAt := f.clock.Now()
	got, err := f.uc.Redeem(ctx, rc.Code, "alice")
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if !got.Used || *got.UsedBy != "alice" || !got.UsedAt.Equal(aliceAt) {
		t.Fatalf("unexpected record after alice: %+v", got)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.uc.Redeem(ctx, rc.Code, "bob"); !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("bob: expected ErrAlreadyRedeemed, got %v", err)
	}

	stored, _ := f.repo.FindByCode(ctx, nil, rc.Code)
	if *stored.UsedBy != "alice" || !stored.UsedAt.Equal(aliceAt) {
		t.Fatalf("a losing attempt changed the record: %+v", stored)
	}

	// once redeemed the answer stays "already redeemed", even past expiry
	f.clock.Advance(60 * 24 * time.Hour)
	if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed after expiry, got %v", err)
	}
}

func TestRedemption_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("should still accept one instant before expiry", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 1)
		f.clock.Advance(24*time.Hour - time.Nanosecond)
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("should reject at the expiry instant and leave the record untouched", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 1)
		f.clock.Advance(24 * time.Hour)
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); !errors.Is(err, domain.ErrCodeExpired) {
			t.Fatalf("expected ErrCodeExpired, got %v", err)
		}
		stored, _ := f.repo.FindByCode(ctx, nil, rc.Code)
		if stored.Used {
			t.Fatal("expired redemption must not mark the code used")
		}
	})
}

func TestRedemption_ConcurrentAttempts(t *testing.T) {
	ctx := context.Background()
	f := newRedemptionFixture(t)
	rc := f.issue(t, 30)

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := "user-" + string(rune('a'+i%26)) + strings.Repeat("x", i/26)
			_, err := f.uc.Redeem(ctx, rc.Code, who)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, who)
			case errors.Is(err, domain.ErrAlreadyRedeemed):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d conflicts", len(winners), conflicts)
	}
	stored, _ := f.repo.FindByCode(ctx, nil, rc.Code)
	if *stored.UsedBy != winners[0] {
		t.Fatalf("stored redeemer %q is not the winner %q", *stored.UsedBy, winners[0])
	}
}

func TestRedemption_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("should report unknown and malformed codes as not found", func(t *testing.T) {
		f := newRedemptionFixture(t)
		for _, in := range []string{"ZZZZ-ZZZZ-ZZZZ", "not a code", ""} {
			if _, err := f.uc.Redeem(ctx, in, "alice"); !errors.Is(err, domain.ErrCodeNotFound) {
				t.Errorf("Redeem(%q): expected ErrCodeNotFound, got %v", in, err)
			}
		}
	})

	t.Run("should accept lowercase and spaced input", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		in := strings.ToLower(strings.ReplaceAll(rc.Code, "-", " "))
		if _, err := f.uc.Redeem(ctx, in, "alice"); err != nil {
			t.Fatalf("Redeem(%q): %v", in, err)
		}
	})

	t.Run("should require an identity", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		if _, err := f.uc.Redeem(ctx, rc.Code, "  "); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should map a lost conditional write to already redeemed", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		f.repo.casErr = domain.ErrConflict
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); !errors.Is(err, domain.ErrAlreadyRedeemed) {
			t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
		}
	})

	t.Run("should map a concurrent delete to not found", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		f.repo.casErr = domain.ErrNotFound
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); !errors.Is(err, domain.ErrCodeNotFound) {
			t.Fatalf("expected ErrCodeNotFound, got %v", err)
		}
	})

	t.Run("should keep infrastructure failures distinct from business outcomes", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		f.repo.findErr = errors.New("i/o timeout")
		_, err := f.uc.Redeem(ctx, rc.Code, "alice")
		if !errors.Is(err, domain.ErrStoreUnavailable) || domain.IsBusinessOutcome(err) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestRedemption_RateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse attempts beyond the limit per identity", func(t *testing.T) {
		f := newRedemptionFixture(t, WithAttemptLimiter(&memLimiter{}, 2, time.Minute))
		for i := 0; i < 2; i++ {
			if _, err := f.uc.Redeem(ctx, "ZZZZ-ZZZZ-ZZZZ", "mallory"); !errors.Is(err, domain.ErrCodeNotFound) {
				t.Fatalf("attempt %d: expected ErrCodeNotFound, got %v", i, err)
			}
		}
		if _, err := f.uc.Redeem(ctx, "ZZZZ-ZZZZ-ZZZZ", "mallory"); !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		rc := f.issue(t, 30)
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); err != nil {
			t.Fatalf("other identities must not be limited: %v", err)
		}
	})

	t.Run("should fail open when the limiter is down", func(t *testing.T) {
		f := newRedemptionFixture(t, WithAttemptLimiter(&memLimiter{err: errors.New("redis down")}, 1, time.Minute))
		rc := f.issue(t, 30)
		if _, err := f.uc.Redeem(ctx, rc.Code, "alice"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})
}

func TestRedemption_Payload(t *testing.T) {
	ctx := context.Background()

	t.Run("should redeem from a secure qr url", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		u, _, err := f.qr.Encode(rc, "", true)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := f.uc.RedeemPayload(ctx, u, "alice")
		if err != nil {
			t.Fatalf("RedeemPayload: %v", err)
		}
		if got.ID != rc.ID || !got.Used {
			t.Fatalf("unexpected record: %+v", got)
		}
	})

	t.Run("should redeem from a plain qr url", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		u, _, _ := f.qr.Encode(rc, "", false)
		if _, err := f.uc.RedeemPayload(ctx, u, "alice"); err != nil {
			t.Fatalf("RedeemPayload: %v", err)
		}
	})

	t.Run("should reject a corrupted bare segment before the store", func(t *testing.T) {
		f := newRedemptionFixture(t)
		rc := f.issue(t, 30)
		u, _, _ := f.qr.Encode(rc, "", true)
		seg := u[strings.Index(u, "code=")+len("code="):]
		seg = seg[:strings.Index(seg, "&")]
		corrupted := seg[:10] + "!!" + seg[12:]

		before := f.repo.finds
		if _, err := f.uc.RedeemPayload(ctx, corrupted, "alice"); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
		if f.repo.finds != before {
			t.Fatal("malformed payload reached the store")
		}
		stored, _ := f.repo.FindByCode(ctx, nil, rc.Code)
		if stored.Used {
			t.Fatal("a rejected payload must not redeem the code")
		}
	})

	t.Run("should stop malformed payloads before the store", func(t *testing.T) {
		f := newRedemptionFixture(t)
		before := f.repo.finds
		_, err := f.uc.RedeemPayload(ctx, "https://jobs.example.org/redeem?code=***&v=2", "alice")
		if !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
		if f.repo.finds != before {
			t.Fatal("malformed payload reached the store")
		}
	})
}

func TestRedemption_Check(t *testing.T) {
	ctx := context.Background()
	f := newRedemptionFixture(t)
	rc := f.issue(t, 2)

	status, _, err := f.uc.Check(ctx, rc.Code)
	if err != nil || status != model.CodeStatusIssued {
		t.Fatalf("fresh code: status=%q err=%v", status, err)
	}
	if status, _, _ := f.uc.Check(ctx, "ZZZZ-ZZZZ-ZZZZ"); status != model.CodeStatusNotFound {
		t.Fatalf("unknown code: status=%q", status)
	}

	f.clock.Advance(3 * 24 * time.Hour)
	if status, _, _ := f.uc.Check(ctx, rc.Code); status != model.CodeStatusExpired {
		t.Fatalf("expired code: status=%q", status)
	}

	other := f.issue(t, 2)
	_, _ = f.uc.Redeem(ctx, other.Code, "alice")
	if status, got, _ := f.uc.Check(ctx, other.Code); status != model.CodeStatusRedeemed || got.UsedBy == nil {
		t.Fatalf("redeemed code: status=%q", status)
	}

	stored, _ := f.repo.FindByCode(ctx, nil, rc.Code)
	if stored.Used {
		t.Fatal("Check must not mutate")
	}
}
