package types

import (
	"time"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

// ChannelDelivery records the outcome of one delivery attempt on one channel.
type ChannelDelivery struct {
	Attempted   bool       `json:"attempted"`
	SucceededAt *time.Time `json:"succeeded_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ChannelDeliveries maps channel -> latest delivery outcome, persisted as
// jsonb. Entries are merged in, never removed.
type ChannelDeliveries map[enums.NotificationChannel]ChannelDelivery

// Merge overlays updates onto the map without dropping existing entries.
func (c ChannelDeliveries) Merge(updates ChannelDeliveries) ChannelDeliveries {
	if c == nil {
		c = ChannelDeliveries{}
	}
	for channel, delivery := range updates {
		c[channel] = delivery
	}
	return c
}
