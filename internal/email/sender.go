package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer dialer
	from   string
	name   string
	cb     *circuitbreaker.CircuitBreaker
}

func NewSMTPSender(cfg Config, log *logger.Logger) *SMTPSender {
	return newSMTPSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg, log)
}

func newSMTPSender(d dialer, cfg Config, log *logger.Logger) *SMTPSender {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:             "smtp",
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}, log)

	return &SMTPSender{
		dialer: d,
		from:   cfg.From,
		name:   cfg.FromName,
		cb:     cb,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.name != "" {
		m.SetAddressHeader("From", s.from, s.name)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.cb.Execute(func() error {
		return s.dialer.DialAndSend(m)
	}); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
