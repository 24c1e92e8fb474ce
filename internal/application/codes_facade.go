package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/usecase"
)

// CodesFacade composes use cases into operator commands whose results are
// plain text, so command line tools only print what they get back.
type CodesFacade struct {
	Issuance   usecase.IssuanceUseCase
	Redemption usecase.RedemptionUseCase
	Admin      usecase.CodeAdminUseCase
	QR         usecase.QRUseCase
}

// NewCodesFacade constructs a facade. Any use case may be nil; the commands
// that need it then return an error.
func NewCodesFacade(issuance usecase.IssuanceUseCase, redemption usecase.RedemptionUseCase, admin usecase.CodeAdminUseCase, qr usecase.QRUseCase) *CodesFacade {
	return &CodesFacade{Issuance: issuance, Redemption: redemption, Admin: admin, QR: qr}
}

// FromContainer builds the facade over a wired container.
func FromContainer(c *Container) *CodesFacade {
	return NewCodesFacade(c.Issuance, c.Redemption, c.Admin, c.QR)
}

// HandleIssue issues a batch and describes the outcome line by line.
// A batch whose delivery failed still lists its codes.
func (f *CodesFacade) HandleIssue(ctx context.Context, req model.BatchRequest) (string, error) {
	if f.Issuance == nil {
		return "", fmt.Errorf("issuance usecase not available")
	}
	res, err := f.Issuance.IssueBatch(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s: %s\n", res.BatchID, res)
	for _, rc := range res.Codes {
		fmt.Fprintf(&b, "  %s  %s  expires %s\n", rc.Code, rc.Category, formatExpiry(rc))
		if f.QR != nil {
			if u, _, err := f.QR.Encode(rc, "", true); err == nil {
				fmt.Fprintf(&b, "    %s\n", u)
			}
		}
	}
	reasons := make([]string, 0, len(res.FailureReasons))
	for reason := range res.FailureReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, "  failed (%s): %d\n", reason, res.FailureReasons[reason])
	}
	switch {
	case res.DeliveryErr != nil:
		fmt.Fprintf(&b, "Delivery to %s failed: %v\n", req.Target, res.DeliveryErr)
	case res.Delivered:
		fmt.Fprintf(&b, "Delivered to %s\n", req.Target)
	}
	return b.String(), nil
}

// HandleRedeem redeems code (or a scanned QR value) for identity and
// phrases business outcomes as user-facing text. Infrastructure failures
// are returned as errors.
func (f *CodesFacade) HandleRedeem(ctx context.Context, input, identity string) (string, error) {
	if f.Redemption == nil {
		return "", fmt.Errorf("redemption usecase not available")
	}
	var (
		rc  *model.RedemptionCode
		err error
	)
	if strings.Contains(input, "://") || strings.Contains(input, "=") {
		rc, err = f.Redemption.RedeemPayload(ctx, input, identity)
	} else {
		rc, err = f.Redemption.Redeem(ctx, input, identity)
	}
	switch {
	case err == nil:
		return fmt.Sprintf("%s redeemed %s (%s) at %s", *rc.UsedBy, rc.Code, rc.Category, rc.UsedAt.UTC().Format("2006-01-02 15:04:05")), nil
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return "This code has already been used.", nil
	case errors.Is(err, domain.ErrCodeExpired):
		return "This code has expired.", nil
	case errors.Is(err, domain.ErrCodeNotFound):
		return "This code does not exist.", nil
	case errors.Is(err, domain.ErrMalformedPayload):
		return "The scanned QR code could not be read.", nil
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many attempts, try again later.", nil
	}
	return "", fmt.Errorf("redeem: %w", err)
}

// HandleCheck reports a code's status without redeeming it.
func (f *CodesFacade) HandleCheck(ctx context.Context, code string) (string, error) {
	if f.Redemption == nil {
		return "", fmt.Errorf("redemption usecase not available")
	}
	status, rc, err := f.Redemption.Check(ctx, code)
	if err != nil {
		return "", err
	}
	if rc == nil {
		return fmt.Sprintf("%s: %s", code, status), nil
	}
	return fmt.Sprintf("%s: %s (%s, expires %s)", rc.Code, status, rc.Category, formatExpiry(rc)), nil
}

// HandleStats renders the per-category statistics table.
func (f *CodesFacade) HandleStats(ctx context.Context) (string, error) {
	if f.Admin == nil {
		return "", fmt.Errorf("admin usecase not available")
	}
	stats, err := f.Admin.Stats(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %7s %9s %8s %7s\n", "type", "issued", "redeemed", "expired", "active")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-10s %7d %9d %8d %7d\n", s.Category, s.Issued, s.Redeemed, s.Expired, s.Active)
	}
	return b.String(), nil
}

func formatExpiry(rc *model.RedemptionCode) string {
	if rc.ExpiresAt == nil {
		return "never"
	}
	return rc.ExpiresAt.UTC().Format("2006-01-02")
}
