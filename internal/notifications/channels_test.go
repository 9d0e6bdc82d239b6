package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

func TestSMSSenderPostsProviderPayload(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSMSSender(config.SMSConfig{APIURL: server.URL, APIKey: "sms-key"})
	if sender.Channel() != enums.ChannelSMS {
		t.Fatalf("unexpected channel %s", sender.Channel())
	}

	err := sender.Send(context.Background(), Recipient{UserID: "u1", Phone: "+573001234567"}, &models.Notification{
		Title:   "Payment received",
		Message: "Payment for order SPG-1 was approved.",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer sms-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPayload["to"] != "+573001234567" || gotPayload["title"] != "Payment received" {
		t.Fatalf("unexpected payload %v", gotPayload)
	}
}

func TestPushSenderTargetsUserID(t *testing.T) {
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewPushSender(config.PushConfig{APIURL: server.URL, APIKey: "push-key"})
	err := sender.Send(context.Background(), Recipient{UserID: "user-1", Phone: "+573001234567"}, &models.Notification{Title: "t", Message: "m"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPayload["to"] != "user-1" {
		t.Fatalf("push should target the user id, got %q", gotPayload["to"])
	}
}

func TestWebhookSenderFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSMSSender(config.SMSConfig{APIURL: server.URL, APIKey: "sms-key"})
	notification := &models.Notification{Title: "t", Message: "m"}

	if err := sender.Send(context.Background(), Recipient{Phone: "+57300"}, notification); err == nil {
		t.Fatal("expected error for provider rejection")
	}

	unconfigured := NewSMSSender(config.SMSConfig{})
	if err := unconfigured.Send(context.Background(), Recipient{Phone: "+57300"}, notification); err == nil {
		t.Fatal("expected error for unconfigured channel")
	}

	noTarget := NewSMSSender(config.SMSConfig{APIURL: server.URL, APIKey: "k"})
	if err := noTarget.Send(context.Background(), Recipient{}, notification); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestEmailSenderRequiresConfiguration(t *testing.T) {
	sender := NewEmailSender(config.SendgridConfig{})
	err := sender.Send(context.Background(), Recipient{Email: "cliente@example.com"}, &models.Notification{Title: "t", Message: "m"})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}

	configured := NewEmailSender(config.SendgridConfig{APIKey: "sg-key", DefaultFrom: "noreply@test"})
	if err := configured.Send(context.Background(), Recipient{}, &models.Notification{Title: "t", Message: "m"}); err == nil {
		t.Fatal("expected error for missing recipient email")
	}
}
