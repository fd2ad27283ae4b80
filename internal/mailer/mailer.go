// Package mailer delivers registration OTP codes through an EmailJS
// compatible REST endpoint.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/billiard-reservation/internal/config"
)

var logger = log.New("mailer")

// ErrNotConfigured is returned when the service, template or public key is
// missing.
var ErrNotConfigured = errors.New("mailer: email API is not configured")

// OTPMessage is the content of one verification email.
type OTPMessage struct {
	ToEmail string
	ToName  string
	Code    string
	Expiry  time.Duration
}

type request struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Client sends templated emails.
type Client struct {
	cfg  config.MailConfig
	http *http.Client
}

// New returns a client for cfg.  A nil httpClient gets one with cfg.Timeout.
func New(cfg config.MailConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// SendOTP emails a verification code.
func (c *Client) SendOTP(ctx context.Context, msg OTPMessage) error {
	if c.cfg.ServiceID == "" || c.cfg.TemplateID == "" || c.cfg.PublicKey == "" {
		return ErrNotConfigured
	}
	body := request{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"to_email":    msg.ToEmail,
			"to_name":     msg.ToName,
			"otp_code":    msg.Code,
			"expiry_time": humanMinutes(msg.Expiry),
			"reply_to":    msg.ToEmail,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("mailer: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailer: API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	logger.Infof("otp sent to %s", msg.ToEmail)
	return nil
}

func humanMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
