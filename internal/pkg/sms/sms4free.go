package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
)

// SMS4FreeProvider talks to the sms4free.co.il JSON API. There is no
// published Go SDK for it, so this is a small hand-rolled client.
type SMS4FreeProvider struct {
	cfg    config.SMS4FreeConfig
	sender string
	client *http.Client
}

func NewSMS4FreeProvider(cfg config.SMS4FreeConfig, sender string) *SMS4FreeProvider {
	return &SMS4FreeProvider{
		cfg:    cfg,
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *SMS4FreeProvider) Name() string {
	return "sms4free"
}

func (p *SMS4FreeProvider) Configured() bool {
	return p.cfg.APIKey != "" && p.cfg.User != ""
}

type sms4freeRequest struct {
	Key       string `json:"key"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Msg       string `json:"msg"`
}

type sms4freeResponse struct {
	Status int `json:"status"` // positive = number of messages sent
}

func (p *SMS4FreeProvider) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(sms4freeRequest{
		Key:       p.cfg.APIKey,
		User:      p.cfg.User,
		Pass:      p.cfg.Password,
		Sender:    p.sender,
		Recipient: phone,
		Msg:       message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms4free: unexpected status %d", resp.StatusCode)
	}

	var out sms4freeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("sms4free: decode response: %w", err)
	}
	// Zero or negative status is the API's error signal.
	if out.Status <= 0 {
		return fmt.Errorf("sms4free: send rejected, status %d", out.Status)
	}
	return nil
}

var _ Provider = (*SMS4FreeProvider)(nil)
