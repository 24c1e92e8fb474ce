package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
)

// GenerateRequest describes a single code to issue.
type GenerateRequest struct {
	Category     Category
	ExpireInDays int
	Label        DistributionLabel
	BatchID      string
}

// BatchRequest is one logical bulk-issuance request. Target is an optional
// distribution address; empty means no distribution step.
type BatchRequest struct {
	Amount       int
	Category     Category
	ExpireInDays int
	Label        DistributionLabel
	Target       string
}

// BatchOutcome summarises a BatchResult for callers and metrics.
type BatchOutcome string

const (
	BatchComplete              BatchOutcome = "complete"
	BatchPartial               BatchOutcome = "partial"
	BatchDeliveryFailed        BatchOutcome = "delivery_failed"
	BatchPartialDeliveryFailed BatchOutcome = "partial_delivery_failed"
)

// BatchResult reports every generated code, failures by reason, and the
// distribution result separately from generation.
type BatchResult struct {
	BatchID        string
	Requested      int
	Codes          []*RedemptionCode
	Failed         int
	FailureReasons map[string]int
	Delivered      bool
	DeliveryErr    error
}

func (r *BatchResult) Succeeded() int { return len(r.Codes) }

func (r *BatchResult) Outcome() BatchOutcome {
	partial := r.Failed > 0
	switch {
	case r.DeliveryErr != nil && partial:
		return BatchPartialDeliveryFailed
	case r.DeliveryErr != nil:
		return BatchDeliveryFailed
	case partial:
		return BatchPartial
	}
	return BatchComplete
}

func (r *BatchResult) String() string {
	s := fmt.Sprintf("%d succeeded, %d failed", r.Succeeded(), r.Failed)
	if r.DeliveryErr != nil {
		s += ", delivery failed"
	}
	return s
}

// DeliveryFailed reports whether the distribution step failed after generation.
func (r *BatchResult) DeliveryFailed() bool {
	return r.DeliveryErr != nil && errors.Is(r.DeliveryErr, domain.ErrDeliveryFailed)
}

// TargetForDomain builds a distribution address such as codes@school.edu.
func TargetForDomain(local, mailDomain string) (string, error) {
	local = strings.TrimSpace(local)
	mailDomain = strings.TrimPrefix(strings.TrimSpace(mailDomain), "@")
	if local == "" || mailDomain == "" || strings.ContainsAny(local+mailDomain, " @") || !strings.Contains(mailDomain, ".") {
		return "", domain.ErrInvalidArgument
	}
	return local + "@" + strings.ToLower(mailDomain), nil
}

// CodeFilter narrows List. Nil fields match everything.
type CodeFilter struct {
	Category *Category
	Used     *bool
	BatchID  string
}

func (f CodeFilter) Match(c *RedemptionCode) bool {
	if f.Category != nil && c.Category != *f.Category {
		return false
	}
	if f.Used != nil && c.Used != *f.Used {
		return false
	}
	if f.BatchID != "" && c.BatchID != f.BatchID {
		return false
	}
	return true
}

// DeleteResult reports an unconditional delete. UsedDeleted holds the codes
// that had already been redeemed, so callers can warn about them.
type DeleteResult struct {
	Deleted     int      `json:"deleted"`
	UsedDeleted []string `json:"used_deleted"`
}

// CategoryStats is one row of the admin statistics view.
type CategoryStats struct {
	Category Category `json:"type"`
	Issued   int      `json:"issued"`
	Redeemed int      `json:"redeemed"`
	Expired  int      `json:"expired"`
	Active   int      `json:"active"`
}
