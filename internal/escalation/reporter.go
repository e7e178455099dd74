package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// HTTPStatusReporter posts call statuses to the call-routing layer's
// /report-status endpoint.
type HTTPStatusReporter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHTTPStatusReporter creates a reporter targeting baseURL. Returns nil
// when no base URL is configured so reporting degrades silently.
func NewHTTPStatusReporter(baseURL string, logger *logging.Logger) *HTTPStatusReporter {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPStatusReporter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// ReportStatus posts {call_sid, status} as JSON.
func (r *HTTPStatusReporter) ReportStatus(ctx context.Context, callSID, status string) error {
	payload, err := json.Marshal(map[string]string{
		"call_sid": callSID,
		"status":   status,
	})
	if err != nil {
		return fmt.Errorf("escalation: marshal status payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/report-status", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("escalation: build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("escalation: status report failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("escalation: status report returned %d", resp.StatusCode)
	}
	return nil
}

var _ StatusReporter = (*HTTPStatusReporter)(nil)
