package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/rancho/rancho-backend/pkg/config"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Channel is a minimal outbound delivery interface. Send returns false
// when the channel is not configured or the recipient is unreachable on
// it; delivery errors are returned separately.
type Channel interface {
	Send(ctx context.Context, to, subject, body string) (bool, error)
}

// EmailChannel delivers over SMTP
type EmailChannel struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
}

// NewEmailChannel creates the email channel
func NewEmailChannel(cfg config.SMTPConfig, log *logger.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, logger: log}
}

// Send delivers one message. A channel without configuration or a user
// without an email address is a no-op returning false.
func (c *EmailChannel) Send(ctx context.Context, to, subject, body string) (bool, error) {
	if !c.cfg.Configured() || to == "" {
		return false, nil
	}

	msg := strings.Join([]string{
		"From: " + c.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	var auth smtp.Auth
	if c.cfg.User != "" {
		auth = smtp.PlainAuth("", c.cfg.User, c.cfg.Password, c.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, c.cfg.From, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return true, fmt.Errorf("smtp send: %w", err)
		}
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// SMSChannel delivers over a Twilio-shaped HTTPS form endpoint
type SMSChannel struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *logger.Logger
}

// NewSMSChannel creates the SMS channel
func NewSMSChannel(cfg config.SMSConfig, log *logger.Logger) *SMSChannel {
	return &SMSChannel{
		cfg:    cfg,
		client: &http.Client{},
		logger: log,
	}
}

// Send delivers one message. A channel without configuration or a user
// without a phone number is a no-op returning false.
func (c *SMSChannel) Send(ctx context.Context, to, subject, body string) (bool, error) {
	if !c.cfg.Configured() || to == "" {
		return false, nil
	}

	endpoint := c.cfg.Endpoint
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, c.cfg.AccountSID)
	}

	form := url.Values{}
	form.Set("From", c.cfg.From)
	form.Set("To", to)
	form.Set("Body", subject+"\n"+body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return true, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return true, fmt.Errorf("sms send: status %d", resp.StatusCode)
	}
	return true, nil
}
