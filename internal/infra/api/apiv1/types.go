package apiv1

import (
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
)

type Error struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Code struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Label     string     `json:"label,omitempty"`
	BatchID   string     `json:"batch_id,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Used      bool       `json:"used"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

type CodeList struct {
	Items []Code `json:"items"`
}

type CreateCodeRequest struct {
	Type         string `json:"type"`
	ExpireInDays *int   `json:"expire_in_days,omitempty"`
	Label        string `json:"label,omitempty"`
}

type CreateBatchRequest struct {
	Amount       int    `json:"amount"`
	Type         string `json:"type"`
	ExpireInDays *int   `json:"expire_in_days,omitempty"`
	Label        string `json:"label,omitempty"`
	Target       string `json:"target,omitempty"`
	// Domain builds the target as codes@<domain> when Target is empty.
	Domain string `json:"domain,omitempty"`
}

type BatchResponse struct {
	BatchID        string         `json:"batch_id"`
	Requested      int            `json:"requested"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	FailureReasons map[string]int `json:"failure_reasons,omitempty"`
	Outcome        string         `json:"outcome"`
	Summary        string         `json:"summary"`
	Delivered      bool           `json:"delivered"`
	DeliveryError  string         `json:"delivery_error,omitempty"`
	Codes          []Code         `json:"codes"`
}

type DeleteCodesRequest struct {
	IDs []string `json:"ids"`
}

type DeleteResponse struct {
	Deleted     int      `json:"deleted"`
	UsedDeleted []string `json:"used_deleted"`
	Warning     string   `json:"warning,omitempty"`
}

type StatsResponse struct {
	Items []Stats `json:"items"`
}

type Stats struct {
	Type     string `json:"type"`
	Issued   int    `json:"issued"`
	Redeemed int    `json:"redeemed"`
	Expired  int    `json:"expired"`
	Active   int    `json:"active"`
}

type QRResponse struct {
	URL     string     `json:"url"`
	Payload *QRPayload `json:"payload,omitempty"`
}

type QRPayload struct {
	Code       string     `json:"code"`
	Hash       string     `json:"hash"`
	Timestamp  time.Time  `json:"timestamp"`
	OneTimeUse bool       `json:"oneTimeUse"`
	Type       string     `json:"type,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type RedeemRequest struct {
	Code     string `json:"code,omitempty"`
	Payload  string `json:"payload,omitempty"`
	Identity string `json:"identity"`
}

type CheckResponse struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
}

// ListCodesParams are the optional filters of GET /api/v1/codes.
type ListCodesParams struct {
	Type  *string `json:"type,omitempty"`
	Used  *bool   `json:"used,omitempty"`
	Batch *string `json:"batch,omitempty"`
}

type CheckCodeParams struct {
	Code string `json:"code"`
}

func toCode(rc *model.RedemptionCode, now time.Time) Code {
	return Code{
		ID:        rc.ID,
		Code:      rc.Code,
		Type:      string(rc.Category),
		Label:     string(rc.Label),
		BatchID:   rc.BatchID,
		Status:    string(rc.Status(now)),
		CreatedAt: rc.CreatedAt,
		ExpiresAt: rc.ExpiresAt,
		Used:      rc.Used,
		UsedBy:    rc.UsedBy,
		UsedAt:    rc.UsedAt,
	}
}

func toQRPayload(p *model.QRPayload) *QRPayload {
	if p == nil {
		return nil
	}
	return &QRPayload{
		Code:       p.Code,
		Hash:       p.Hash,
		Timestamp:  p.Timestamp,
		OneTimeUse: p.OneTimeUse,
		Type:       string(p.Category),
		ExpiresAt:  p.ExpiresAt,
	}
}

func toCodes(rcs []*model.RedemptionCode, now time.Time) []Code {
	out := make([]Code, 0, len(rcs))
	for _, rc := range rcs {
		out = append(out, toCode(rc, now))
	}
	return out
}
