package sms

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carepulse/carepulse/pkg/logging"
)

const (
	defaultTelnyxBaseURL = "https://api.telnyx.com/v2"
	defaultUserAgent     = "carepulse-sms/1.0"
)

var telnyxTracer = otel.Tracer("carepulse.internal.platform.sms.telnyx")

// TelnyxConfig controls the Telnyx sender.
type TelnyxConfig struct {
	BaseURL            string
	APIKey             string
	MessagingProfileID string
	Timeout            time.Duration
	HTTPClient         *http.Client
	Logger             *logging.Logger
}

// TelnyxSender posts messages to the Telnyx V2 messages endpoint.
type TelnyxSender struct {
	apiKey     string
	profileID  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTelnyxSender validates cfg and fills in defaults.
func NewTelnyxSender(cfg TelnyxConfig) (*TelnyxSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms: telnyx API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultTelnyxBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxSender{
		apiKey:     cfg.APIKey,
		profileID:  cfg.MessagingProfileID,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Send makes one POST /messages call.
func (s *TelnyxSender) Send(ctx context.Context, msg Outbound) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}
	ctx, span := telnyxTracer.Start(ctx, "sms.telnyx.send")
	defer span.End()
	span.SetAttributes(attribute.String("carepulse.sms.to", msg.To))

	body, err := json.Marshal(struct {
		From               string `json:"from"`
		To                 string `json:"to"`
		Text               string `json:"text"`
		MessagingProfileID string `json:"messaging_profile_id,omitempty"`
	}{
		From:               msg.From,
		To:                 msg.To,
		Text:               msg.Body,
		MessagingProfileID: s.profileID,
	})
	if err != nil {
		return nil, fmt.Errorf("sms: marshal telnyx body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sms: build telnyx request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("sms: telnyx http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("sms: read telnyx response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeTelnyxError(resp.StatusCode, data)
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var wrapper struct {
		Data struct {
			ID string `json:"id"`
			To []struct {
				Status string `json:"status"`
			} `json:"to"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("sms: decode telnyx response: %w", err)
	}
	receipt := &Receipt{ProviderMessageID: wrapper.Data.ID, Status: "queued"}
	if len(wrapper.Data.To) > 0 && wrapper.Data.To[0].Status != "" {
		receipt.Status = wrapper.Data.To[0].Status
	}
	s.logger.Info("telnyx sms sent", "provider_message_id", receipt.ProviderMessageID)
	return receipt, nil
}

// TelnyxError is a non-2xx answer from the Telnyx API.
type TelnyxError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *TelnyxError) Error() string {
	switch {
	case e.Title != "":
		return fmt.Sprintf("sms: telnyx %s (status=%d)", e.Title, e.StatusCode)
	case e.Detail != "":
		return fmt.Sprintf("sms: telnyx %s (status=%d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("sms: telnyx http status %d", e.StatusCode)
}

func decodeTelnyxError(status int, body []byte) error {
	var parsed struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Errors) == 0 {
		return &TelnyxError{StatusCode: status, Detail: strings.TrimSpace(string(body))}
	}
	return &TelnyxError{StatusCode: status, Title: parsed.Errors[0].Title, Detail: parsed.Errors[0].Detail}
}
