package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

// Recipient carries the addressing data channel senders need. Fields left
// empty disable the corresponding channel for that dispatch.
type Recipient struct {
	UserID string
	Email  string
	Phone  string
}

// ChannelSender delivers one notification over one medium.
type ChannelSender interface {
	Channel() enums.NotificationChannel
	Send(ctx context.Context, recipient Recipient, notification *models.Notification) error
}

const senderTimeout = 10 * time.Second

// emailSender delivers over the SendGrid v3 mail send API.
type emailSender struct {
	httpClient *http.Client
	apiKey     string
	from       string
}

// NewEmailSender builds the SendGrid-backed email channel.
func NewEmailSender(cfg config.SendgridConfig) ChannelSender {
	return &emailSender{
		httpClient: &http.Client{Timeout: senderTimeout},
		apiKey:     cfg.APIKey,
		from:       cfg.DefaultFrom,
	}
}

func (s *emailSender) Channel() enums.NotificationChannel {
	return enums.ChannelEmail
}

func (s *emailSender) Send(ctx context.Context, recipient Recipient, notification *models.Notification) error {
	if s.apiKey == "" {
		return fmt.Errorf("email channel not configured")
	}
	if recipient.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}

	payload := map[string]any{
		"personalizations": []map[string]any{{
			"to": []map[string]string{{"email": recipient.Email}},
		}},
		"from":    map[string]string{"email": s.from},
		"subject": notification.Title,
		"content": []map[string]string{{
			"type":  "text/plain",
			"value": notification.Message,
		}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.sendgrid.com/v3/mail/send", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("mail send rejected with status %d", resp.StatusCode)
	}
	return nil
}

// webhookSender posts a JSON payload to a provider endpoint. Both the SMS and
// push providers expose this shape.
type webhookSender struct {
	httpClient *http.Client
	channel    enums.NotificationChannel
	apiURL     string
	apiKey     string
}

// NewSMSSender builds the SMS provider channel.
func NewSMSSender(cfg config.SMSConfig) ChannelSender {
	return &webhookSender{
		httpClient: &http.Client{Timeout: senderTimeout},
		channel:    enums.ChannelSMS,
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
	}
}

// NewPushSender builds the push provider channel.
func NewPushSender(cfg config.PushConfig) ChannelSender {
	return &webhookSender{
		httpClient: &http.Client{Timeout: senderTimeout},
		channel:    enums.ChannelPush,
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
	}
}

func (s *webhookSender) Channel() enums.NotificationChannel {
	return s.channel
}

func (s *webhookSender) Send(ctx context.Context, recipient Recipient, notification *models.Notification) error {
	if s.apiURL == "" || s.apiKey == "" {
		return fmt.Errorf("%s channel not configured", s.channel)
	}

	target := recipient.Phone
	if s.channel == enums.ChannelPush {
		target = recipient.UserID
	}
	if target == "" {
		return fmt.Errorf("recipient has no %s target", s.channel)
	}

	payload := map[string]string{
		"to":      target,
		"title":   notification.Title,
		"message": notification.Message,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", s.channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", s.channel, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", s.channel, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s send rejected with status %d", s.channel, resp.StatusCode)
	}
	return nil
}
