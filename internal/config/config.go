// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CodesConfig struct {
	Alphabet          string `yaml:"alphabet"`
	// Length is enforced on lookup too. Codes issued under a different
	// length no longer normalize, so changing it orphans stored codes.
	Length            int    `yaml:"length"`
	GroupSize         int    `yaml:"group_size"` // -1 disables dash grouping
	MaxRetries        int    `yaml:"max_retries"`
	MaxBatch          int    `yaml:"max_batch"`
	DefaultExpireDays int    `yaml:"default_expire_days"`
}

type QRConfig struct {
	BaseURL    string `yaml:"base_url"`
	Param      string `yaml:"param"`
	HMACSecret string `yaml:"hmac_secret"`
	PNGSize    int    `yaml:"png_size"`
}

type MailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
	UseTLS      bool   `yaml:"use_tls"`
	Language    string `yaml:"language"`
}

type RedeemConfig struct {
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type AutoIssueJob struct {
	Name         string        `yaml:"name"`
	Category     string        `yaml:"category"`
	Amount       int           `yaml:"amount"`
	ExpireInDays int           `yaml:"expire_in_days"`
	Label        string        `yaml:"label"`
	Target       string        `yaml:"target"`
	Interval     time.Duration `yaml:"interval"`
}

type AutoIssueConfig struct {
	LockTTL time.Duration  `yaml:"lock_ttl"`
	Jobs    []AutoIssueJob `yaml:"jobs"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Codes     CodesConfig     `yaml:"codes"`
	QR        QRConfig        `yaml:"qr"`
	Mail      MailConfig      `yaml:"mail"`
	Redeem    RedeemConfig    `yaml:"redeem"`
	AutoIssue AutoIssueConfig `yaml:"auto_issue"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// minCodeSpace keeps collisions negligible at expected issuance volumes.
	minCodeSpace = 1e9
)

// LoadConfig reads the YAML file at path, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 10 * time.Second
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Codes.Alphabet == "" {
		c.Codes.Alphabet = DefaultAlphabet
	}
	if c.Codes.Length <= 0 {
		// keep in step with the codes already in the store
		c.Codes.Length = 12
	}
	if c.Codes.GroupSize < 0 {
		c.Codes.GroupSize = 0
	} else if c.Codes.GroupSize == 0 {
		c.Codes.GroupSize = 4
	}
	if c.Codes.MaxRetries <= 0 {
		c.Codes.MaxRetries = 5
	}
	if c.Codes.MaxBatch <= 0 {
		c.Codes.MaxBatch = 100
	}
	if c.Codes.DefaultExpireDays <= 0 {
		c.Codes.DefaultExpireDays = 30
	}
	if c.QR.Param == "" {
		c.QR.Param = "code"
	}
	if c.QR.PNGSize <= 0 {
		c.QR.PNGSize = 256
	}
	if c.Mail.Language == "" {
		c.Mail.Language = "en"
	}
	if c.Redeem.RateLimit <= 0 {
		c.Redeem.RateLimit = 10
	}
	if c.Redeem.RateWindow <= 0 {
		c.Redeem.RateWindow = time.Minute
	}
	if c.AutoIssue.LockTTL <= 0 {
		c.AutoIssue.LockTTL = 5 * time.Minute
	}
	for i := range c.AutoIssue.Jobs {
		j := &c.AutoIssue.Jobs[i]
		if j.Interval <= 0 {
			j.Interval = 24 * time.Hour
		}
		if j.ExpireInDays <= 0 {
			j.ExpireInDays = c.Codes.DefaultExpireDays
		}
		if j.Name == "" {
			j.Name = fmt.Sprintf("job-%d", i+1)
		}
	}
}

// Validate performs the minimal checks needed to run safely.
func (c *Config) Validate() error {
	if c.Database.URL == "" && !c.Runtime.Dev {
		return errors.New("database.url is required")
	}
	if c.HTTP.APIKey == "" && !c.Runtime.Dev {
		return errors.New("http.api_key is required")
	}
	if CodeSpace(c.Codes.Alphabet, c.Codes.Length) < minCodeSpace {
		return fmt.Errorf("codes: alphabet^length must reach %.0e combinations", minCodeSpace)
	}
	if hasDuplicateRunes(c.Codes.Alphabet) {
		return errors.New("codes.alphabet contains duplicate characters")
	}
	if c.QR.BaseURL != "" && !strings.HasPrefix(c.QR.BaseURL, "http") {
		return errors.New("qr.base_url must be an http(s) URL")
	}
	for _, j := range c.AutoIssue.Jobs {
		if j.Amount <= 0 || j.Amount > c.Codes.MaxBatch {
			return fmt.Errorf("auto_issue job %q: amount must be 1..%d", j.Name, c.Codes.MaxBatch)
		}
		if j.Category != "student" && j.Category != "employer" {
			return fmt.Errorf("auto_issue job %q: category must be student or employer", j.Name)
		}
	}
	return nil
}

// CodeSpace is the number of distinct codes for an alphabet and length.
func CodeSpace(alphabet string, length int) float64 {
	return math.Pow(float64(len(alphabet)), float64(length))
}

func hasDuplicateRunes(s string) bool {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if _, ok := seen[r]; ok {
			return true
		}
		seen[r] = struct{}{}
	}
	return false
}
