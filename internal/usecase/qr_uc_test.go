//go:build !integration

package usecase

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
)

const testBaseURL = "https://jobs.example.org/redeem"

func sampleCode(t *testing.T, now time.Time) *model.RedemptionCode {
	t.Helper()
	rc, err := model.NewRedemptionCode("ABCD-EFGH-JKLM", model.CategoryEmployer, 30, now)
	if err != nil {
		t.Fatalf("NewRedemptionCode: %v", err)
	}
	return rc
}

func TestQRCodec_RoundTrip(t *testing.T) {
	clock := newVirtualClock()
	c := NewQRCodec(testBaseURL, "code", newTestLogger(), WithQRClock(clock))
	rc := sampleCode(t, clock.Now())

	t.Run("should round trip the secure form", func(t *testing.T) {
		u, p, err := c.Encode(rc, "", true)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !strings.HasPrefix(u, testBaseURL+"?") || !strings.Contains(u, "v=2") {
			t.Fatalf("unexpected url %q", u)
		}
		if p == nil || !p.OneTimeUse || p.Code != rc.Code || p.Category != model.CategoryEmployer {
			t.Fatalf("unexpected payload %+v", p)
		}

		got, err := c.Decode(u)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Code != rc.Code || !got.Structured || got.HashVerified {
			t.Fatalf("unexpected decode %+v", got)
		}
		if got.Payload.Hash != p.Hash || !got.Payload.Timestamp.Equal(clock.Now()) {
			t.Fatalf("payload fields lost: %+v", got.Payload)
		}
		if got.Payload.ExpiresAt == nil || !got.Payload.ExpiresAt.Equal(*rc.ExpiresAt) {
			t.Fatalf("expiry lost: %+v", got.Payload.ExpiresAt)
		}
	})

	t.Run("should round trip the plain form", func(t *testing.T) {
		u, p, err := c.Encode(rc, "", false)
		if err != nil || p != nil {
			t.Fatalf("Encode: p=%v err=%v", p, err)
		}
		parsed, _ := url.Parse(u)
		if parsed.Query().Get("code") != rc.Code {
			t.Fatalf("plain url %q does not carry the code", u)
		}
		got, err := c.Decode(u)
		if err != nil || got.Code != rc.Code || got.Structured {
			t.Fatalf("Decode: %+v %v", got, err)
		}
	})

	t.Run("should honour an explicit base url", func(t *testing.T) {
		u, _, err := c.Encode(rc, "https://other.example.org/r?src=poster", false)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !strings.HasPrefix(u, "https://other.example.org/r?") || !strings.Contains(u, "src=poster") {
			t.Fatalf("unexpected url %q", u)
		}
	})

	t.Run("should accept a bare code and a bare query string", func(t *testing.T) {
		got, err := c.Decode(rc.Code)
		if err != nil || got.Code != rc.Code {
			t.Fatalf("bare code: %+v %v", got, err)
		}
		got, err = c.Decode("?code=" + rc.Code)
		if err != nil || got.Code != rc.Code {
			t.Fatalf("query string: %+v %v", got, err)
		}
	})
}

func TestQRCodec_Malformed(t *testing.T) {
	c := NewQRCodec(testBaseURL, "code", newTestLogger())
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	cases := map[string]string{
		"empty input":           "",
		"corrupted base64":      testBaseURL + "?code=%%%%&v=2",
		"base64 of garbage":     testBaseURL + "?code=" + enc("not json") + "&v=2",
		"json array":            testBaseURL + "?code=" + enc(`["ABCD-EFGH-JKLM"]`) + "&v=2",
		"json without code":     testBaseURL + "?code=" + enc(`{"hash":"x"}`) + "&v=2",
		"missing parameter":     testBaseURL + "?other=1",
		"unparseable structure": testBaseURL + "?code=***&v=2",
	}
	for name, in := range cases {
		t.Run("should reject "+name, func(t *testing.T) {
			if _, err := c.Decode(in); !errors.Is(err, domain.ErrMalformedPayload) {
				t.Fatalf("Decode(%q): expected ErrMalformedPayload, got %v", in, err)
			}
		})
	}

	t.Run("should reject a bare segment with a corrupted character", func(t *testing.T) {
		clock := newVirtualClock()
		rc := sampleCode(t, clock.Now())
		u, _, err := c.Encode(rc, "", true)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		parsed, _ := url.Parse(u)
		seg := parsed.Query().Get("code")
		if _, err := c.Decode(seg); err != nil {
			t.Fatalf("intact bare segment: %v", err)
		}
		corrupted := seg[:10] + "!!" + seg[12:]
		if _, err := c.Decode(corrupted); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("Decode(%q): expected ErrMalformedPayload, got %v", corrupted, err)
		}
	})

	t.Run("should reject bare values that are not shaped like a code", func(t *testing.T) {
		for _, in := range []string{"hello", "ABCD-EFGH", "\x00\x01"} {
			if _, err := c.Decode(in); !errors.Is(err, domain.ErrMalformedPayload) {
				t.Errorf("Decode(%q): expected ErrMalformedPayload, got %v", in, err)
			}
		}
	})

	t.Run("should never panic on garbage", func(t *testing.T) {
		inputs := []string{"://", "%", "=", "?=", "\x00\x01", strings.Repeat("A", 4096), "http://[::1", "code=" + enc("{}")}
		for _, in := range inputs {
			_, _ = c.Decode(in)
		}
	})

	t.Run("should reject an encode without a code", func(t *testing.T) {
		if _, _, err := c.Encode(&model.RedemptionCode{}, "", true); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestQRCodec_BareStructured(t *testing.T) {
	c := NewQRCodec(testBaseURL, "code", newTestLogger())
	raw := `{"code":"ABCD-EFGH-JKLM","hash":"xy","timestamp":"2026-02-01T08:00:00.000Z","oneTimeUse":true}`

	for name, enc := range map[string]*base64.Encoding{
		"raw url":    base64.RawURLEncoding,
		"padded url": base64.URLEncoding,
		"padded std": base64.StdEncoding,
	} {
		t.Run("should decode a bare "+name+" segment", func(t *testing.T) {
			seg := enc.EncodeToString([]byte(raw))
			if strings.Contains(name, "padded") && !strings.HasSuffix(seg, "=") {
				t.Fatalf("fixture should carry padding, got %q", seg)
			}
			got, err := c.Decode(seg)
			if err != nil {
				t.Fatalf("Decode(%q): %v", seg, err)
			}
			if got.Code != "ABCD-EFGH-JKLM" || !got.Structured {
				t.Fatalf("unexpected decode %+v", got)
			}
		})
	}

	t.Run("should normalize a plain value with the configured format", func(t *testing.T) {
		short := NewQRCodec(testBaseURL, "code", newTestLogger(), WithCodeFormat(CodeFormat{Alphabet: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", Length: 8, GroupSize: 4}))
		got, err := short.Decode("abcd efgh")
		if err != nil || got.Code != "ABCD-EFGH" {
			t.Fatalf("Decode: %+v %v", got, err)
		}
		if _, err := short.Decode("ABCD-EFGH-JKLM"); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload for a code of another length, got %v", err)
		}
	})
}

func TestQRCodec_HMAC(t *testing.T) {
	clock := newVirtualClock()
	signer := NewQRCodec(testBaseURL, "code", newTestLogger(), WithQRClock(clock), WithHMACSecret("s3cret"))
	rc := sampleCode(t, clock.Now())

	u, p, err := signer.Encode(rc, "", true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(p.Hash) != 12 {
		t.Fatalf("unexpected hmac digest %q", p.Hash)
	}

	t.Run("should verify with the same secret", func(t *testing.T) {
		got, err := signer.Decode(u)
		if err != nil || !got.HashVerified {
			t.Fatalf("Decode: %+v %v", got, err)
		}
	})

	t.Run("should reject with a different secret", func(t *testing.T) {
		other := NewQRCodec(testBaseURL, "code", newTestLogger(), WithHMACSecret("other"))
		if _, err := other.Decode(u); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
	})

	t.Run("should treat the hash as advisory without a secret", func(t *testing.T) {
		plain := NewQRCodec(testBaseURL, "code", newTestLogger())
		got, err := plain.Decode(u)
		if err != nil || got.HashVerified {
			t.Fatalf("Decode: %+v %v", got, err)
		}
	})
}

func TestShortHash(t *testing.T) {
	cases := map[string]string{
		"":  "0",
		"a": "2p",
		"b": "2q",
	}
	for in, want := range cases {
		if got := ShortHash(in); got != want {
			t.Errorf("ShortHash(%q) = %q, want %q", in, got, want)
		}
	}
	if ShortHash("ABCD-EFGH-JKLM2026") == ShortHash("ABCD-EFGH-JKLN2026") {
		t.Error("adjacent inputs should diffuse")
	}
	long := strings.Repeat("z", 10_000)
	if got := ShortHash(long); got == "" || strings.HasPrefix(got, "-") {
		t.Errorf("ShortHash overflow produced %q", got)
	}
}

func TestQRCodec_RenderPNG(t *testing.T) {
	clock := newVirtualClock()
	rc := sampleCode(t, clock.Now())

	t.Run("should render the secure url", func(t *testing.T) {
		r := &fakeRenderer{}
		c := NewQRCodec(testBaseURL, "code", newTestLogger(), WithQRClock(clock), WithRenderer(r, 128))
		png, err := c.RenderPNG(rc)
		if err != nil {
			t.Fatalf("RenderPNG: %v", err)
		}
		if !strings.HasPrefix(string(png), "\x89PNG") || !strings.Contains(r.last, "v=2") {
			t.Fatalf("renderer saw %q", r.last)
		}
	})

	t.Run("should fail without a renderer", func(t *testing.T) {
		c := NewQRCodec(testBaseURL, "code", newTestLogger())
		if _, err := c.RenderPNG(rc); err == nil {
			t.Fatal("expected an error")
		}
	})
}
