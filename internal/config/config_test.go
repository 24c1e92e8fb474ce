//go:build !integration

package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Run("should fill defaults in dev mode from an empty file", func(t *testing.T) {
		cfg, err := Parse([]byte("{}"), true)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if cfg.Codes.Alphabet != DefaultAlphabet || cfg.Codes.Length != 12 || cfg.Codes.GroupSize != 4 {
			t.Errorf("unexpected code defaults: %+v", cfg.Codes)
		}
		if cfg.Codes.MaxBatch != 100 || cfg.Codes.MaxRetries != 5 || cfg.Codes.DefaultExpireDays != 30 {
			t.Errorf("unexpected limits: %+v", cfg.Codes)
		}
		if cfg.QR.Param != "code" || cfg.Redeem.RateWindow != time.Minute || cfg.HTTP.Port != 8080 {
			t.Errorf("unexpected defaults: qr=%+v redeem=%+v http=%+v", cfg.QR, cfg.Redeem, cfg.HTTP)
		}
	})

	t.Run("should require database url and api key outside dev", func(t *testing.T) {
		if _, err := Parse([]byte("{}"), false); err == nil || !strings.Contains(err.Error(), "database.url") {
			t.Fatalf("expected database.url error, got %v", err)
		}
		_, err := Parse([]byte("database:\n  url: postgres://x\n"), false)
		if err == nil || !strings.Contains(err.Error(), "api_key") {
			t.Fatalf("expected api_key error, got %v", err)
		}
	})

	t.Run("should reject a code space that is too small", func(t *testing.T) {
		_, err := Parse([]byte("codes:\n  alphabet: AB\n  length: 8\n"), true)
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("should reject duplicate alphabet characters", func(t *testing.T) {
		_, err := Parse([]byte("codes:\n  alphabet: ABCDEFGHJKLMNPQRSTUVWXYZ2345678A\n"), true)
		if err == nil || !strings.Contains(err.Error(), "duplicate") {
			t.Fatalf("expected duplicate error, got %v", err)
		}
	})

	t.Run("should default and validate auto issue jobs", func(t *testing.T) {
		yml := `
auto_issue:
  jobs:
    - category: employer
      amount: 5
      target: codes@school.edu
`
		cfg, err := Parse([]byte(yml), true)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		j := cfg.AutoIssue.Jobs[0]
		if j.Name != "job-1" || j.Interval != 24*time.Hour || j.ExpireInDays != 30 {
			t.Errorf("unexpected job defaults: %+v", j)
		}

		if _, err := Parse([]byte("auto_issue:\n  jobs:\n    - category: employer\n      amount: 500\n"), true); err == nil {
			t.Error("expected amount above max_batch to fail")
		}
		if _, err := Parse([]byte("auto_issue:\n  jobs:\n    - category: admin\n      amount: 5\n"), true); err == nil {
			t.Error("expected unknown category to fail")
		}
	})

	t.Run("should allow disabling grouping", func(t *testing.T) {
		cfg, err := Parse([]byte("codes:\n  group_size: -1\n"), true)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if cfg.Codes.GroupSize != 0 {
			t.Errorf("expected grouping disabled, got %d", cfg.Codes.GroupSize)
		}
	})
}
