package models

import (
	"github.com/lib/pq"
	"github.com/openstatus-dev/openstatus/internal/types"
	"gorm.io/datatypes"
)

type Monitor struct {
	BaseModel

	WorkspaceID     uint                `gorm:"not null;index"`
	Name            string              `gorm:"not null"`
	URL             string              `gorm:"not null"`
	JobType         types.JobType       `gorm:"not null"` // "http", "tcp", "dns"
	Periodicity     int                 `gorm:"not null"` // Seconds between probes
	Active          bool                `gorm:"default:true"`
	Status          types.MonitorStatus `gorm:"not null;default:active"`
	Regions         pq.StringArray      `gorm:"type:text[]"`
	TimeoutMS       int                 `gorm:"not null;default:30000"`
	DegradedAfterMS int                 // 0 disables the degraded threshold
	Assertions      datatypes.JSON      `gorm:"type:jsonb"`

	// Relationships
	Workspace Workspace      `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Checks    []MonitorCheck `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Incidents []Incident     `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifiers []Notifier     `gorm:"many2many:monitor_notifiers"`
}
