package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPSMSGateway implements SMSGateway against a JSON POST gateway (Twilio
// relay or a compatible self-hosted broker).
type HTTPSMSGateway struct {
	url        string
	token      string
	from       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSMSGateway creates an SMS gateway client.
func NewHTTPSMSGateway(url, token, from string, timeout time.Duration, logger *slog.Logger) *HTTPSMSGateway {
	return &HTTPSMSGateway{
		url:   url,
		token: token,
		from:  from,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendSMS posts one message to the gateway.
func (g *HTTPSMSGateway) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(smsRequest{From: g.from, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway error: status %d: %s", resp.StatusCode, respBody)
	}

	g.logger.Debug("sms delivered", "to", to)
	return nil
}
