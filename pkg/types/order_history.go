package types

import (
	"time"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

// HistoryEntry is one line of an order's append-only audit trail.
type HistoryEntry struct {
	Status  enums.OrderStatus `json:"status"`
	Actor   string            `json:"actor"`
	Comment string            `json:"comment,omitempty"`
	At      time.Time         `json:"at"`
}

// OrderHistory is the ordered audit trail persisted as jsonb. Entries are
// only ever appended.
type OrderHistory []HistoryEntry
