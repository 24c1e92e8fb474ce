// Package mail delivers issued code batches by email.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
)

// CodeImager renders the QR image attached next to each code.
type CodeImager interface {
	RenderPNG(rc *model.RedemptionCode) ([]byte, error)
}

// sendFunc is the transport step, replaced in tests.
type sendFunc func(e *email.Email) error

var _ adapter.Distributor = (*SMTPDistributor)(nil)

type SMTPDistributor struct {
	cfg        config.MailConfig
	imager     CodeImager
	send       sendFunc
	retryDelay time.Duration
	log        *zerolog.Logger
}

// NewSMTPDistributor validates the port/TLS combination up front:
// 465 means implicit TLS, 587 STARTTLS, anything else plain SMTP unless
// use_tls is set.
func NewSMTPDistributor(cfg config.MailConfig, imager CodeImager, logger *zerolog.Logger) (*SMTPDistributor, error) {
	if cfg.Host == "" || cfg.FromAddress == "" {
		return nil, fmt.Errorf("%w: mail host and from_address are required", domain.ErrInvalidArgument)
	}
	if cfg.UseTLS && cfg.Port != 465 && cfg.Port != 587 {
		return nil, fmt.Errorf("%w: use_tls needs port 465 or 587, got %d", domain.ErrInvalidArgument, cfg.Port)
	}
	ml := logger.With().Str("component", "SMTPDistributor").Logger()
	d := &SMTPDistributor{cfg: cfg, imager: imager, retryDelay: 2 * time.Second, log: &ml}
	d.send = d.deliver
	return d, nil
}

func (d *SMTPDistributor) Send(ctx context.Context, target, subject, body string, codes []*model.RedemptionCode) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: empty target", domain.ErrDeliveryFailed)
	}
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", d.cfg.FromName, d.cfg.FromAddress)
	e.To = []string{target}
	e.Subject = subject
	e.Text = []byte(body)

	if d.imager != nil {
		for _, rc := range codes {
			png, err := d.imager.RenderPNG(rc)
			if err != nil {
				d.log.Warn().Err(err).Str("code", rc.Code).Msg("qr attachment skipped")
				continue
			}
			if _, err := e.Attach(bytes.NewReader(png), rc.Code+".png", "image/png"); err != nil {
				d.log.Warn().Err(err).Str("code", rc.Code).Msg("qr attachment skipped")
			}
		}
	}

	err := d.send(e)
	if err != nil && shouldRetry(err) {
		d.log.Warn().Err(err).Str("target", target).Msg("transient smtp error, retrying once")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, ctx.Err())
		case <-time.After(d.retryDelay):
		}
		err = d.send(e)
	}
	if isShortResponse(err) {
		d.log.Warn().Err(err).Str("target", target).Msg("smtp server closed early after accepting the message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	d.log.Info().Str("target", target).Int("codes", len(codes)).Msg("codes mailed")
	return nil
}

func (d *SMTPDistributor) deliver(e *email.Email) error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	tlsConfig := &tls.Config{ServerName: d.cfg.Host, MinVersion: tls.VersionTLS12}

	switch {
	case d.cfg.Port == 465:
		return e.SendWithTLS(addr, auth, tlsConfig)
	case d.cfg.Port == 587 || d.cfg.UseTLS:
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	default:
		return e.Send(addr, auth)
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, frag := range []string{"connection refused", "timeout", "connection reset", "broken pipe"} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}

// isShortResponse matches servers that drop the connection after DATA was
// accepted; the message has been queued at that point.
func isShortResponse(err error) bool {
	return err != nil && strings.Contains(err.Error(), "short response")
}
