package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	gomail "github.com/go-gomail/gomail"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
)

// Attachment is a file shipped with an outbound message. Content is read
// from Path at send time so queued tasks stay small.
type Attachment struct {
	Path        string
	Filename    string
	ContentType string
}

type Message struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a single message. Implementations must be safe for
// concurrent use by dispatcher workers.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the provider from config. Unknown providers fall back to
// the stub so a misconfigured worker degrades to logging instead of
// crash-looping.
func NewMailer(cfg config.MailConfig, logger zerolog.Logger) Mailer {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPMailer(cfg)
	case "sendgrid":
		return NewSendGridMailer(cfg)
	default:
		if cfg.Provider != "stub" {
			logger.Warn().Str("provider", cfg.Provider).Msg("unknown mail provider, using stub")
		}
		return NewStubMailer(logger)
	}
}

type SMTPMailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	for _, att := range msg.Attachments {
		m.Attach(att.Path, gomail.Rename(att.Filename))
	}

	// gomail has no context support; run the dial in a goroutine so callers
	// still get cancellation.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SendGridMailer struct {
	cfg    config.MailConfig
	client *sendgrid.Client
}

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{cfg: cfg, client: sendgrid.NewSendClient(cfg.SendGridKey)}
}

func (s *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(s.cfg.FromName, s.cfg.From)
	to := sgmail.NewEmail(msg.ToName, msg.To)
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	m := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, html)

	for _, att := range msg.Attachments {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			return fmt.Errorf("read attachment %s: %w", att.Path, err)
		}
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(data))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// StubMailer logs instead of sending. Used in dev and as the fallback when
// no real provider is configured.
type StubMailer struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewStubMailer(logger zerolog.Logger) *StubMailer {
	return &StubMailer{logger: logger}
}

func (s *StubMailer) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("stub mail sent")
	return nil
}

// Sent returns a copy of everything delivered so far.
func (s *StubMailer) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
