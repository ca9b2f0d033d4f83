package models

import (
	"github.com/openstatus-dev/openstatus/internal/types"
	"gorm.io/datatypes"
)

type Notifier struct {
	BaseModel

	WorkspaceID uint           `gorm:"not null;index"`
	Name        string         `gorm:"not null"`
	Provider    types.Provider `gorm:"not null"`
	Config      datatypes.JSON `gorm:"type:jsonb"` // keyed by provider name, e.g. {"slack": "<url>"}

	// Relationships
	Workspace Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Monitors  []Monitor `gorm:"many2many:monitor_notifiers"`
}
