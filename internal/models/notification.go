package models

import (
	"time"

	"github.com/openstatus-dev/openstatus/internal/types"
)

// Notification is the per-channel outcome of one dispatch attempt.
type Notification struct {
	BaseModel

	WorkspaceID uint            `gorm:"not null;index"`
	NotifierID  uint            `gorm:"not null;index"`
	MonitorID   uint            `gorm:"not null;index"`
	EventID     string          `gorm:"not null;index"`
	EventKind   types.EventKind `gorm:"not null"`
	Provider    types.Provider  `gorm:"not null"`
	State       string          `gorm:"not null"` // "delivered", "rejected", "transport_error"
	Detail      string
	SentAt      *time.Time

	// Relationships
	Notifier Notifier `gorm:"foreignKey:NotifierID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Monitor  Monitor  `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
