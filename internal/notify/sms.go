package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/pkg/logging"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// SMSSender defines the interface for sending text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioSMSConfig controls how the Twilio sender behaves.
type TwilioSMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TwilioSMSSender sends SMS through the Twilio Messages REST endpoint.
type TwilioSMSSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSMSSender creates a configured sender. Returns nil when any
// credential is missing so SMS degrades to unavailable rather than erring.
func NewTwilioSMSSender(cfg TwilioSMSConfig, logger *logging.Logger) *TwilioSMSSender {
	if strings.TrimSpace(cfg.AccountSID) == "" ||
		strings.TrimSpace(cfg.AuthToken) == "" ||
		strings.TrimSpace(cfg.FromNumber) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TwilioSMSSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SendSMS posts a message to the Twilio API.
func (s *TwilioSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("notify: sms recipient is required")
	}

	form := url.Values{}
	form.Set("From", s.fromNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("twilio send failed", "error", err, "to", to)
		return fmt.Errorf("notify: twilio send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &apiErr)
		s.logger.Error("twilio returned error status", "status", resp.StatusCode, "message", apiErr.Message, "to", to)
		return fmt.Errorf("notify: twilio returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent via twilio", "to", to)
	return nil
}

var _ SMSSender = (*TwilioSMSSender)(nil)

// StubSMSSender logs instead of sending.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs the message but doesn't actually send it.
func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to)
	return nil
}
