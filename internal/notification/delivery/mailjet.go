package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mailjet sends email through the Send API v3.1.
type Mailjet struct {
	baseURL   string
	apiKey    string
	apiSecret string
	fromEmail string
	fromName  string
	http      *http.Client
}

func NewMailjet(baseURL, apiKey, apiSecret, fromEmail, fromName string) *Mailjet {
	return &Mailjet{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		fromEmail: fromEmail,
		fromName:  fromName,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart,omitempty"`
	HTMLPart string           `json:"HTMLPart"`
	CustomID string           `json:"CustomID,omitempty"`
}

type mailjetRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

type mailjetResponse struct {
	Messages []struct {
		Status string `json:"Status"`
		Errors []struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
	} `json:"Messages"`
}

func (m *Mailjet) SendEmail(ctx context.Context, e Email) error {
	body, err := json.Marshal(mailjetRequest{Messages: []mailjetMessage{{
		From:     mailjetAddress{Email: m.fromEmail, Name: m.fromName},
		To:       []mailjetAddress{{Email: e.To, Name: e.ToName}},
		Subject:  e.Subject,
		HTMLPart: e.HTML,
		CustomID: e.CustomID,
	}}})
	if err != nil {
		return fmt.Errorf("marshal mailjet request: %w", err)
	}
	endpoint, err := url.JoinPath(m.baseURL, "v3.1", "send")
	if err != nil {
		return fmt.Errorf("build mailjet url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mailjet request: %w", err)
	}
	req.SetBasicAuth(m.apiKey, m.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailjet request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailjet returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out mailjetResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode mailjet response: %w", err)
	}
	for _, msg := range out.Messages {
		if msg.Status != "success" {
			if len(msg.Errors) > 0 {
				return fmt.Errorf("mailjet rejected message: %s", msg.Errors[0].ErrorMessage)
			}
			return fmt.Errorf("mailjet message status %s", msg.Status)
		}
	}
	return nil
}
