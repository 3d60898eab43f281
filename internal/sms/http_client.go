package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://www.smslocal.com/dev/bulkV2"
	maxErrorBody   = 512
)

// HTTPClient отправляет коды через HTTP JSON API SMS-шлюза.
type HTTPClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	ValidFor   time.Duration
	HTTPClient *http.Client
}

// NewHTTPClient создаёт клиент шлюза. Пустой baseURL заменяется адресом по умолчанию.
func NewHTTPClient(apiKey, baseURL, sender string, validFor time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		ValidFor:   validFor,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type sendRequest struct {
	Route     string `json:"route"`
	Numbers   string `json:"numbers"`
	Variables string `json:"variables"`
	Message   string `json:"message"`
	SenderID  string `json:"sender_id,omitempty"`
}

// SendCode отправляет код на номер phone (только цифры, с кодом страны).
// Код в логи не попадает.
func (c *HTTPClient) SendCode(ctx context.Context, phone, code, purpose string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}

	raw, err := json.Marshal(sendRequest{
		Route:     "otp",
		Numbers:   phone,
		Variables: code,
		Message:   FormatMessage(code, purpose, c.ValidFor),
		SenderID:  c.Sender,
	})
	if err != nil {
		return fmt.Errorf("sms: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
