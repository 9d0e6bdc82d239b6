package paymentwebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

// eventTypeTransactionUpdated is the only gateway event that can change an
// order. Everything else is acknowledged and dropped.
const eventTypeTransactionUpdated = "transaction.updated"

// Gateway transaction statuses.
const (
	gatewayStatusApproved = "APPROVED"
	gatewayStatusDeclined = "DECLINED"
	gatewayStatusPending  = "PENDING"
	gatewayStatusError    = "ERROR"
)

// DropReason explains why an event was acknowledged without processing.
type DropReason string

const (
	DropReasonNone             DropReason = ""
	DropReasonUnsupportedType  DropReason = "unsupported_type"
	DropReasonMissingReference DropReason = "missing_reference"
	DropReasonMissingID        DropReason = "missing_transaction_id"
	DropReasonUnknownStatus    DropReason = "unknown_status"
)

// NormalizedEvent is the gateway-agnostic shape handed to the processor.
type NormalizedEvent struct {
	EventID       string
	TransactionID string
	Reference     string
	GatewayStatus string
	AmountCents   int64
	FailureReason string
}

// DedupKey identifies one logical delivery. Gateways that omit an event id
// fall back to the transaction id plus status, which is stable across
// redeliveries of the same state change.
func (e NormalizedEvent) DedupKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return fmt.Sprintf("%s:%s", e.TransactionID, e.GatewayStatus)
}

// Outcome maps the gateway status onto the ledger's target state.
func (e NormalizedEvent) Outcome() (enums.OrderStatus, enums.PaymentStatus, bool) {
	switch e.GatewayStatus {
	case gatewayStatusApproved:
		return enums.OrderStatusPaid, enums.PaymentStatusApproved, true
	case gatewayStatusDeclined:
		return enums.OrderStatusPaymentFailed, enums.PaymentStatusDeclined, true
	case gatewayStatusPending:
		return enums.OrderStatusPaymentPending, enums.PaymentStatusPending, true
	case gatewayStatusError:
		return enums.OrderStatusPaymentFailed, enums.PaymentStatusError, true
	default:
		return "", "", false
	}
}

type gatewayEnvelope struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		Transaction struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			Reference     string `json:"reference"`
			AmountCents   int64  `json:"amount_in_cents"`
			StatusMessage string `json:"status_message"`
		} `json:"transaction"`
	} `json:"data"`
}

// Normalize decodes a verified payload and decides whether it affects an
// order. A non-empty DropReason means the event must be acknowledged with a
// 200 and discarded.
func Normalize(body []byte) (*NormalizedEvent, DropReason, error) {
	var envelope gatewayEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, DropReasonNone, fmt.Errorf("decode webhook payload: %w", err)
	}

	if envelope.Event != eventTypeTransactionUpdated {
		return nil, DropReasonUnsupportedType, nil
	}

	tx := envelope.Data.Transaction
	if strings.TrimSpace(tx.ID) == "" {
		return nil, DropReasonMissingID, nil
	}
	if strings.TrimSpace(tx.Reference) == "" {
		return nil, DropReasonMissingReference, nil
	}

	event := &NormalizedEvent{
		EventID:       envelope.ID,
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		GatewayStatus: strings.ToUpper(strings.TrimSpace(tx.Status)),
		AmountCents:   tx.AmountCents,
		FailureReason: tx.StatusMessage,
	}
	if _, _, known := event.Outcome(); !known {
		return event, DropReasonUnknownStatus, nil
	}
	return event, DropReasonNone, nil
}
