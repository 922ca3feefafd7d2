package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"estate/internal/models"
)

type SMSSettings struct {
	Endpoint   string
	APIKey     string
	FromNumber string
}

// SMSSink posts text messages to an HTTP SMS gateway as JSON.
type SMSSink struct {
	settings SMSSettings
	client   *http.Client
}

func NewSMSSink(settings SMSSettings, client *http.Client) *SMSSink {
	if client == nil {
		client = &http.Client{}
	}
	return &SMSSink{settings: settings, client: client}
}

func (s *SMSSink) Name() string { return "sms" }

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SMSSink) Send(ctx context.Context, to models.Contact, n Notification) error {
	if to.Phone == nil || *to.Phone == "" {
		return nil
	}
	payload, err := json.Marshal(smsRequest{
		From: s.settings.FromNumber,
		To:   *to.Phone,
		Text: n.Subject + ": " + n.Body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.settings.APIKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
