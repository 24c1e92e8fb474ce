// Package apiv1 is the JSON HTTP surface for code administration and redemption.
package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/usecase"
)

var _ ServerInterface = (*Server)(nil)

// Deps collects the use cases the handlers call. Any of them may be nil; the
// matching routes then answer 501.
type Deps struct {
	Issuance          usecase.IssuanceUseCase
	Redemption        usecase.RedemptionUseCase
	Admin             usecase.CodeAdminUseCase
	QR                usecase.QRUseCase
	Clock             adapter.Clock
	DefaultExpireDays int
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.Clock == nil {
		d.Clock = adapter.SystemClock{}
	}
	if d.DefaultExpireDays <= 0 {
		d.DefaultExpireDays = 30
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sl := logger.With().Str("component", "apiv1").Logger()
	return &Server{d: d, log: &sl}
}

func (s *Server) CreateCode(w http.ResponseWriter, r *http.Request) {
	if s.d.Issuance == nil {
		writeNotImplemented(w)
		return
	}
	var body CreateCodeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	cat, err := model.ParseCategory(body.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.d.Issuance.IssueOne(r.Context(), model.GenerateRequest{
		Category:     cat,
		ExpireInDays: s.expireDays(body.ExpireInDays),
		Label:        model.NewDistributionLabel(body.Label),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCode(rc, s.d.Clock.Now()))
}

func (s *Server) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if s.d.Issuance == nil {
		writeNotImplemented(w)
		return
	}
	var body CreateBatchRequest
	if !decodeBody(w, r, &body) {
		return
	}
	cat, err := model.ParseCategory(body.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	target := strings.TrimSpace(body.Target)
	if target == "" && strings.TrimSpace(body.Domain) != "" {
		if target, err = model.TargetForDomain("codes", body.Domain); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.d.Issuance.IssueBatch(r.Context(), model.BatchRequest{
		Amount:       body.Amount,
		Category:     cat,
		ExpireInDays: s.expireDays(body.ExpireInDays),
		Label:        model.NewDistributionLabel(body.Label),
		Target:       target,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := BatchResponse{
		BatchID:        res.BatchID,
		Requested:      res.Requested,
		Succeeded:      res.Succeeded(),
		Failed:         res.Failed,
		FailureReasons: res.FailureReasons,
		Outcome:        string(res.Outcome()),
		Summary:        res.String(),
		Delivered:      res.Delivered,
		Codes:          toCodes(res.Codes, s.d.Clock.Now()),
	}
	status := http.StatusCreated
	if res.DeliveryErr != nil {
		out.DeliveryError = res.DeliveryErr.Error()
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, out)
}

func (s *Server) ListCodes(w http.ResponseWriter, r *http.Request, params ListCodesParams) {
	if s.d.Admin == nil {
		writeNotImplemented(w)
		return
	}
	var filter model.CodeFilter
	if params.Type != nil && *params.Type != "" {
		cat, err := model.ParseCategory(*params.Type)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Category = &cat
	}
	filter.Used = params.Used
	if params.Batch != nil {
		filter.BatchID = *params.Batch
	}

	codes, err := s.d.Admin.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CodeList{Items: toCodes(codes, s.d.Clock.Now())})
}

func (s *Server) CodeStats(w http.ResponseWriter, r *http.Request) {
	if s.d.Admin == nil {
		writeNotImplemented(w)
		return
	}
	stats, err := s.d.Admin.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := StatsResponse{Items: make([]Stats, 0, len(stats))}
	for _, st := range stats {
		out.Items = append(out.Items, Stats{
			Type:     string(st.Category),
			Issued:   st.Issued,
			Redeemed: st.Redeemed,
			Expired:  st.Expired,
			Active:   st.Active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteCodes(w http.ResponseWriter, r *http.Request) {
	if s.d.Admin == nil {
		writeNotImplemented(w)
		return
	}
	var body DeleteCodesRequest
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.d.Admin.Delete(r.Context(), body.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeleteResponse(res))
}

func (s *Server) DeleteCode(w http.ResponseWriter, r *http.Request, id string) {
	if s.d.Admin == nil {
		writeNotImplemented(w)
		return
	}
	res, err := s.d.Admin.DeleteOne(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeleteResponse(res))
}

func (s *Server) GetCodeQR(w http.ResponseWriter, r *http.Request, code string) {
	rc, ok := s.lookup(w, r, code)
	if !ok {
		return
	}
	secure := r.URL.Query().Get("plain") != "true"
	u, p, err := s.d.QR.Encode(rc, "", secure)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QRResponse{URL: u, Payload: toQRPayload(p)})
}

func (s *Server) GetCodeQRImage(w http.ResponseWriter, r *http.Request, code string) {
	rc, ok := s.lookup(w, r, code)
	if !ok {
		return
	}
	png, err := s.d.QR.RenderPNG(rc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) Redeem(w http.ResponseWriter, r *http.Request) {
	if s.d.Redemption == nil {
		writeNotImplemented(w)
		return
	}
	var body RedeemRequest
	if !decodeBody(w, r, &body) {
		return
	}
	var (
		rc  *model.RedemptionCode
		err error
	)
	switch {
	case body.Payload != "":
		rc, err = s.d.Redemption.RedeemPayload(r.Context(), body.Payload, body.Identity)
	case body.Code != "":
		rc, err = s.d.Redemption.Redeem(r.Context(), body.Code, body.Identity)
	default:
		writeJSON(w, http.StatusUnprocessableEntity, Error{Error: "invalid_argument", Message: "code or payload is required"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCode(rc, s.d.Clock.Now()))
}

func (s *Server) CheckCode(w http.ResponseWriter, r *http.Request, params CheckCodeParams) {
	if s.d.Redemption == nil {
		writeNotImplemented(w)
		return
	}
	status, rc, err := s.d.Redemption.Check(r.Context(), params.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := CheckResponse{Code: params.Code, Status: string(status)}
	if rc != nil {
		out.Code = rc.Code
		out.Type = string(rc.Category)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, code string) (*model.RedemptionCode, bool) {
	if s.d.Admin == nil || s.d.QR == nil {
		writeNotImplemented(w)
		return nil, false
	}
	rc, err := s.d.Admin.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return rc, true
}

func (s *Server) expireDays(v *int) int {
	if v == nil {
		return s.d.DefaultExpireDays
	}
	return *v
}

func toDeleteResponse(res *model.DeleteResult) DeleteResponse {
	out := DeleteResponse{Deleted: res.Deleted, UsedDeleted: res.UsedDeleted}
	if out.UsedDeleted == nil {
		out.UsedDeleted = []string{}
	}
	if len(out.UsedDeleted) > 0 {
		out.Warning = "some deleted codes had already been redeemed"
	}
	return out
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrCodeNotFound), errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		status, code = http.StatusConflict, "already_redeemed"
	case errors.Is(err, domain.ErrCodeExpired):
		status, code = http.StatusGone, "expired"
	case errors.Is(err, domain.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "malformed_payload"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusUnprocessableEntity, "invalid_argument"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrNoCodesGenerated):
		status, code = http.StatusBadGateway, "no_codes_generated"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, code = http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, domain.ErrGenerationExhausted):
		status, code = http.StatusInternalServerError, "generation_exhausted"
	}
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, Error{Error: code, Message: err.Error()})
}

func writeNotImplemented(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, Error{Error: "not_implemented"})
}

// decodeBody writes a 400 itself and reports false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, Error{Error: "bad_request", Message: "missing body"})
		return false
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "missing body"
		}
		writeJSON(w, http.StatusBadRequest, Error{Error: "bad_request", Message: msg})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
