package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// QRUseCase builds scannable payloads for codes and recovers codes from them.
//
// The embedded hash is a deterrent against casual tampering, not a security
// control: without a server secret it is a non-cryptographic diffusion of the
// code and timestamp, and decoding treats it as advisory. The store lookup in
// the redemption path is always the authoritative check.
type QRUseCase interface {
	Encode(rc *model.RedemptionCode, baseURL string, withSecurityFeatures bool) (string, *model.QRPayload, error)
	Decode(input string) (*model.DecodedPayload, error)
	RenderPNG(rc *model.RedemptionCode) ([]byte, error)
}

var (
	_ QRUseCase      = (*QRCodec)(nil)
	_ PayloadDecoder = (*QRCodec)(nil)
)

const (
	// structuredVersion marks URLs whose parameter carries base64 JSON.
	structuredVersion = "2"
	isoMillis         = "2006-01-02T15:04:05.000Z"
)

type QRCodec struct {
	format   CodeFormat
	param    string
	baseURL  string
	secret   []byte
	clock    adapter.Clock
	renderer adapter.QRRenderer
	pngSize  int
	log      *zerolog.Logger
}

type QROption func(*QRCodec)

// WithHMACSecret switches the payload hash to HMAC-SHA256 and makes Decode verify it.
func WithHMACSecret(secret string) QROption {
	return func(c *QRCodec) {
		if secret != "" {
			c.secret = []byte(secret)
		}
	}
}

// WithCodeFormat sets the format a plain (non-structured) value must match.
func WithCodeFormat(f CodeFormat) QROption {
	return func(c *QRCodec) { c.format = f }
}

func WithQRClock(clock adapter.Clock) QROption {
	return func(c *QRCodec) { c.clock = clock }
}

func WithRenderer(r adapter.QRRenderer, size int) QROption {
	return func(c *QRCodec) { c.renderer, c.pngSize = r, size }
}

func NewQRCodec(baseURL, param string, logger *zerolog.Logger, opts ...QROption) *QRCodec {
	if param == "" {
		param = "code"
	}
	ql := logger.With().Str("component", "QRCodec").Logger()
	c := &QRCodec{
		format:  DefaultCodeFormat(),
		param:   param,
		baseURL: baseURL,
		clock:   adapter.SystemClock{},
		pngSize: 256,
		log:     &ql,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type wirePayload struct {
	Code       string `json:"code"`
	Hash       string `json:"hash"`
	Timestamp  string `json:"timestamp"`
	OneTimeUse bool   `json:"oneTimeUse"`
	Type       string `json:"type,omitempty"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
}

// Encode returns the URL to embed in the QR image. With security features the
// parameter carries base64url(JSON payload); without, it carries the raw code.
func (c *QRCodec) Encode(rc *model.RedemptionCode, baseURL string, withSecurityFeatures bool) (string, *model.QRPayload, error) {
	if rc == nil || rc.Code == "" {
		return "", nil, fmt.Errorf("%w: code is required", domain.ErrInvalidArgument)
	}
	if baseURL == "" {
		baseURL = c.baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return "", nil, fmt.Errorf("%w: invalid base url %q", domain.ErrInvalidArgument, baseURL)
	}

	q := u.Query()
	if !withSecurityFeatures {
		q.Set(c.param, rc.Code)
		u.RawQuery = q.Encode()
		metrics.IncQRPayload("encode", "plain")
		return u.String(), nil, nil
	}

	ts := c.clock.Now().UTC()
	tsStr := ts.Format(isoMillis)
	p := &model.QRPayload{
		Code:       rc.Code,
		Hash:       c.hash(rc.Code, tsStr),
		Timestamp:  ts,
		OneTimeUse: true,
		Category:   rc.Category,
		ExpiresAt:  rc.ExpiresAt,
	}
	w := wirePayload{
		Code:       p.Code,
		Hash:       p.Hash,
		Timestamp:  tsStr,
		OneTimeUse: true,
		Type:       string(p.Category),
	}
	if p.ExpiresAt != nil {
		w.ExpiresAt = p.ExpiresAt.UTC().Format(isoMillis)
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", nil, err
	}
	q.Set(c.param, base64.RawURLEncoding.EncodeToString(b))
	q.Set("v", structuredVersion)
	u.RawQuery = q.Encode()
	metrics.IncQRPayload("encode", "structured")
	return u.String(), p, nil
}

// Decode accepts a full URL, a query string, or a bare parameter value.
// It never panics; anything unusable is ErrMalformedPayload.
func (c *QRCodec) Decode(input string) (dp *model.DecodedPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			dp, err = nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, r)
		}
		status := "ok"
		if err != nil {
			status = "malformed"
		}
		metrics.IncQRPayload("decode", status)
	}()

	input = strings.TrimSpace(input)
	if input != "" && !strings.Contains(input, "://") {
		// a bare segment may carry base64 padding, which looks like a query string
		if w, derr := decodeWire(input); derr == nil {
			return c.fromWire(w)
		}
	}

	value, version, err := c.extract(input)
	if err != nil {
		return nil, err
	}

	w, derr := decodeWire(value)
	if derr == nil {
		return c.fromWire(w)
	}
	if version == structuredVersion {
		return nil, derr
	}
	// only something shaped like a code counts as the plain form
	code, nerr := c.format.Normalize(value)
	if nerr != nil {
		return nil, fmt.Errorf("%w: neither a structured payload nor a code", domain.ErrMalformedPayload)
	}
	return &model.DecodedPayload{Code: code}, nil
}

// RenderPNG renders the secure URL for rc as a PNG image.
func (c *QRCodec) RenderPNG(rc *model.RedemptionCode) ([]byte, error) {
	if c.renderer == nil {
		return nil, errors.New("qr renderer not configured")
	}
	u, _, err := c.Encode(rc, "", true)
	if err != nil {
		return nil, err
	}
	return c.renderer.PNG(u, c.pngSize)
}

func (c *QRCodec) extract(input string) (value, version string, err error) {
	if input == "" {
		return "", "", fmt.Errorf("%w: empty payload", domain.ErrMalformedPayload)
	}
	if !strings.Contains(input, "://") && !strings.Contains(input, "=") {
		return input, "", nil
	}

	var q url.Values
	if strings.Contains(input, "://") {
		u, perr := url.Parse(input)
		if perr != nil {
			return "", "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, perr)
		}
		q = u.Query()
	} else {
		q, err = url.ParseQuery(strings.TrimPrefix(input, "?"))
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
	}
	value = strings.TrimSpace(q.Get(c.param))
	if value == "" {
		return "", "", fmt.Errorf("%w: missing %q parameter", domain.ErrMalformedPayload, c.param)
	}
	return value, q.Get("v"), nil
}

func decodeWire(value string) (*wirePayload, error) {
	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if raw, err = enc.DecodeString(value); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", domain.ErrMalformedPayload, err)
	}
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: bad json: %v", domain.ErrMalformedPayload, err)
	}
	if strings.TrimSpace(w.Code) == "" {
		return nil, fmt.Errorf("%w: missing code field", domain.ErrMalformedPayload)
	}
	return &w, nil
}

func (c *QRCodec) fromWire(w *wirePayload) (*model.DecodedPayload, error) {
	p := &model.QRPayload{
		Code:       w.Code,
		Hash:       w.Hash,
		OneTimeUse: w.OneTimeUse,
	}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
			p.Timestamp = ts
		}
	}
	if cat, err := model.ParseCategory(w.Type); err == nil {
		p.Category = cat
	}
	if w.ExpiresAt != "" {
		if exp, err := time.Parse(time.RFC3339Nano, w.ExpiresAt); err == nil {
			p.ExpiresAt = &exp
		}
	}

	out := &model.DecodedPayload{Code: w.Code, Structured: true, Payload: p}
	if len(c.secret) > 0 {
		want := c.hash(w.Code, w.Timestamp)
		if !hmac.Equal([]byte(want), []byte(w.Hash)) {
			c.log.Warn().Msg("qr payload hash mismatch")
			return nil, fmt.Errorf("%w: hash mismatch", domain.ErrMalformedPayload)
		}
		out.HashVerified = true
	}
	return out, nil
}

func (c *QRCodec) hash(code, ts string) string {
	if len(c.secret) == 0 {
		return ShortHash(code + ts)
	}
	m := hmac.New(sha256.New, c.secret)
	m.Write([]byte(code + "|" + ts))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(m.Sum(nil))[:12]
}

// ShortHash is a 32-bit multiplicative string diffusion (h = h*31 + c with
// wrap-around) rendered as base36. It is not a cryptographic hash.
func ShortHash(s string) string {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
