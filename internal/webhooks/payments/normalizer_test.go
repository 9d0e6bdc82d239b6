package paymentwebhook

import (
	"fmt"
	"testing"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

func transactionUpdatedBody(eventID, txID, status, reference string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event": "transaction.updated",
		"data": {"transaction": {
			"id": %q,
			"status": %q,
			"reference": %q,
			"amount_in_cents": 620000,
			"status_message": "INSUFFICIENT_FUNDS"
		}}
	}`, eventID, txID, status, reference))
}

func TestNormalizeTransactionUpdated(t *testing.T) {
	event, reason, err := Normalize(transactionUpdatedBody("evt_1", "trx_1", "APPROVED", "SPG-1"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if reason != DropReasonNone {
		t.Fatalf("unexpected drop reason %q", reason)
	}
	if event.EventID != "evt_1" || event.TransactionID != "trx_1" || event.Reference != "SPG-1" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.AmountCents != 620000 {
		t.Fatalf("unexpected amount %d", event.AmountCents)
	}
	if event.FailureReason != "INSUFFICIENT_FUNDS" {
		t.Fatalf("unexpected failure reason %q", event.FailureReason)
	}
}

func TestNormalizeDropsNonOrderEvents(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		reason DropReason
	}{
		{"other event type", []byte(`{"event":"nequi_token.updated","data":{}}`), DropReasonUnsupportedType},
		{"charge event", []byte(`{"event":"charge.created","data":{"transaction":{"id":"trx","reference":"SPG-1","status":"APPROVED"}}}`), DropReasonUnsupportedType},
		{"missing transaction id", transactionUpdatedBody("evt", "", "APPROVED", "SPG-1"), DropReasonMissingID},
		{"missing reference", transactionUpdatedBody("evt", "trx", "APPROVED", ""), DropReasonMissingReference},
		{"unknown status", transactionUpdatedBody("evt", "trx", "VOIDED", "SPG-1"), DropReasonUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason, err := Normalize(tt.body)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if reason != tt.reason {
				t.Fatalf("expected drop reason %q, got %q", tt.reason, reason)
			}
		})
	}
}

func TestNormalizeRejectsUndecodableBody(t *testing.T) {
	if _, _, err := Normalize([]byte(`{"event":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeStatusIsCaseInsensitive(t *testing.T) {
	event, reason, err := Normalize(transactionUpdatedBody("evt", "trx", "approved", "SPG-1"))
	if err != nil || reason != DropReasonNone {
		t.Fatalf("unexpected result: reason=%q err=%v", reason, err)
	}
	if event.GatewayStatus != "APPROVED" {
		t.Fatalf("expected upper-cased status, got %q", event.GatewayStatus)
	}
}

func TestOutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		gateway string
		order   enums.OrderStatus
		payment enums.PaymentStatus
	}{
		{"APPROVED", enums.OrderStatusPaid, enums.PaymentStatusApproved},
		{"DECLINED", enums.OrderStatusPaymentFailed, enums.PaymentStatusDeclined},
		{"PENDING", enums.OrderStatusPaymentPending, enums.PaymentStatusPending},
		{"ERROR", enums.OrderStatusPaymentFailed, enums.PaymentStatusError},
	}
	for _, tt := range tests {
		order, payment, ok := NormalizedEvent{GatewayStatus: tt.gateway}.Outcome()
		if !ok {
			t.Fatalf("status %s should map", tt.gateway)
		}
		if order != tt.order || payment != tt.payment {
			t.Fatalf("status %s mapped to (%s,%s)", tt.gateway, order, payment)
		}
	}

	if _, _, ok := (NormalizedEvent{GatewayStatus: "VOIDED"}).Outcome(); ok {
		t.Fatal("unknown status must not map")
	}
}

func TestDedupKeyFallsBackToTransaction(t *testing.T) {
	withID := NormalizedEvent{EventID: "evt_1", TransactionID: "trx_1", GatewayStatus: "APPROVED"}
	if withID.DedupKey() != "evt_1" {
		t.Fatalf("expected event id as dedup key, got %q", withID.DedupKey())
	}

	withoutID := NormalizedEvent{TransactionID: "trx_1", GatewayStatus: "APPROVED"}
	if withoutID.DedupKey() != "trx_1:APPROVED" {
		t.Fatalf("unexpected fallback key %q", withoutID.DedupKey())
	}

	// The same transaction in a new state is a distinct delivery.
	declined := NormalizedEvent{TransactionID: "trx_1", GatewayStatus: "DECLINED"}
	if declined.DedupKey() == withoutID.DedupKey() {
		t.Fatal("different states must not collide")
	}
}
