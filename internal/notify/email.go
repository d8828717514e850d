package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type emailPayload struct {
	ServiceID      string      `json:"service_id"`
	TemplateID     string      `json:"template_id"`
	UserID         string      `json:"user_id"`
	TemplateParams emailParams `json:"template_params"`
}

type emailParams struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// EmailChannel sends messages through an EmailJS-compatible HTTP endpoint.
type EmailChannel struct {
	url        string
	serviceID  string
	templateID string
	userID     string
	client     *http.Client
}

// EmailOption configures the email channel.
type EmailOption func(*EmailChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) EmailOption {
	return func(ch *EmailChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewEmailChannel constructs an email channel.
func NewEmailChannel(url, serviceID, templateID, userID string, opts ...EmailOption) (*EmailChannel, error) {
	if url == "" {
		return nil, errors.New("email channel: empty url")
	}
	if serviceID == "" || templateID == "" {
		return nil, errors.New("email channel: service and template ids required")
	}
	channel := &EmailChannel{
		url:        url,
		serviceID:  serviceID,
		templateID: templateID,
		userID:     userID,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Send posts the content for one recipient.
func (e *EmailChannel) Send(ctx context.Context, recipient, subject, content string) error {
	if e == nil || e.url == "" {
		return errors.New("email channel: empty url")
	}
	if recipient == "" {
		return errors.New("email channel: empty recipient")
	}
	payload := emailPayload{
		ServiceID:  e.serviceID,
		TemplateID: e.templateID,
		UserID:     e.userID,
		TemplateParams: emailParams{
			ToEmail: recipient,
			Subject: subject,
			Message: content,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email channel: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
