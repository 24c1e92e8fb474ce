package model

import (
	"strings"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"

	"github.com/google/uuid"
)

// Category is the closed set of code categories the redemption state machine knows about.
type Category string

const (
	CategoryStudent  Category = "student"
	CategoryEmployer Category = "employer"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryStudent, CategoryEmployer}

// ParseCategory accepts only the closed set; anything else is ErrInvalidArgument.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryStudent, CategoryEmployer:
		return c, nil
	}
	return "", domain.ErrInvalidArgument
}

// ParseCategoryOr coerces unknown input to def. Intended for callers that
// prefer a safe default over rejecting the request.
func ParseCategoryOr(s string, def Category) Category {
	c, err := ParseCategory(s)
	if err != nil {
		return def
	}
	return c
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// DistributionLabel is a cosmetic tag (teacher, admin, partner...) used for
// mail routing and display only.
type DistributionLabel string

const maxLabelLen = 32

func NewDistributionLabel(s string) DistributionLabel {
	s = strings.TrimSpace(s)
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return DistributionLabel(s)
}

// CodeStatus is the derived lifecycle state of a code at a given instant.
type CodeStatus string

const (
	CodeStatusIssued   CodeStatus = "issued"
	CodeStatusRedeemed CodeStatus = "redeemed"
	CodeStatusExpired  CodeStatus = "expired"
	CodeStatusNotFound CodeStatus = "not_found"
)

// RedemptionCode is a single-use code exchanged for an account privilege.
// Used, UsedBy and UsedAt change together and only once.
type RedemptionCode struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Category  Category          `json:"type"`
	Label     DistributionLabel `json:"label,omitempty"`
	BatchID   string            `json:"batch_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Used      bool              `json:"used"`
	UsedBy    *string           `json:"used_by,omitempty"`
	UsedAt    *time.Time        `json:"used_at,omitempty"`
	Version   int64             `json:"-"`
}

// NewRedemptionCode builds an unused code that expires expireInDays after now.
func NewRedemptionCode(code string, category Category, expireInDays int, now time.Time) (*RedemptionCode, error) {
	if code == "" || !category.Valid() || expireInDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	exp := now.Add(time.Duration(expireInDays) * 24 * time.Hour)
	return &RedemptionCode{
		ID:        uuid.NewString(),
		Code:      code,
		Category:  category,
		CreatedAt: now,
		ExpiresAt: &exp,
	}, nil
}

// IsExpired is true once now has reached ExpiresAt. Codes without an expiry never expire.
func (c *RedemptionCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Status derives the lifecycle state. A used code reports redeemed even when
// it has also expired.
func (c *RedemptionCode) Status(now time.Time) CodeStatus {
	switch {
	case c == nil:
		return CodeStatusNotFound
	case c.Used:
		return CodeStatusRedeemed
	case c.IsExpired(now):
		return CodeStatusExpired
	}
	return CodeStatusIssued
}

// MarkUsed applies the single false->true transition. It refuses a second call.
func (c *RedemptionCode) MarkUsed(by string, at time.Time) error {
	if c.Used {
		return domain.ErrConflict
	}
	if by == "" {
		return domain.ErrInvalidArgument
	}
	c.Used = true
	c.UsedBy = &by
	c.UsedAt = &at
	c.Version++
	return nil
}

func (c *RedemptionCode) Clone() *RedemptionCode {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	if c.UsedBy != nil {
		s := *c.UsedBy
		cp.UsedBy = &s
	}
	if c.UsedAt != nil {
		t := *c.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}
