package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

// Notification stores one (recipient, event) notification with per-channel
// delivery outcomes.
type Notification struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID       uuid.UUID                  `gorm:"column:recipient_id;type:uuid;not null"`
	Type              enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Title             string                     `gorm:"column:title;type:text;not null"`
	Message           string                     `gorm:"column:message;type:text;not null"`
	Priority          enums.NotificationPriority `gorm:"column:priority;type:notification_priority;not null;default:'normal'"`
	RelatedEntityID   *uuid.UUID                 `gorm:"column:related_entity_id;type:uuid"`
	RelatedEntityKind *string                    `gorm:"column:related_entity_kind"`
	Channels          types.ChannelDeliveries    `gorm:"column:channels;type:jsonb;serializer:json"`
	ReadAt            *time.Time                 `gorm:"column:read_at;type:timestamptz"`
	ArchivedAt        *time.Time                 `gorm:"column:archived_at;type:timestamptz"`
	CreatedAt         time.Time                  `gorm:"column:created_at;type:timestamptz;default:now()"`
}
