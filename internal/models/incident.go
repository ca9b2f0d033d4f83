package models

import (
	"sort"
	"time"

	"github.com/openstatus-dev/openstatus/internal/types"
)

// Incident is a monitor-triggered outage record. Its update history is
// append-only; nothing is ever deleted from it.
type Incident struct {
	BaseModel

	MonitorID   uint               `gorm:"not null;index"`
	WorkspaceID uint               `gorm:"not null;index"`
	Title       string             `gorm:"not null"`
	Status      types.ReportStatus `gorm:"not null"`
	StartedAt   *time.Time
	ResolvedAt  *time.Time

	// Relationships
	Monitor Monitor          `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Updates []IncidentUpdate `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

type IncidentUpdate struct {
	BaseModel

	IncidentID uint               `gorm:"not null;index"`
	Status     types.ReportStatus `gorm:"not null"`
	Message    string
	Date       time.Time `gorm:"not null"`
}

// SortIncidentUpdatesForDisplay orders updates by the fixed status priority
// table first and date second, both descending. Raw timestamp order alone is
// not enough: a late-arriving "investigating" must display above an earlier
// "resolved".
func SortIncidentUpdatesForDisplay(updates []IncidentUpdate) {
	sort.SliceStable(updates, func(i, j int) bool {
		pi, pj := updates[i].Status.Priority(), updates[j].Status.Priority()
		if pi != pj {
			return pi > pj
		}
		return updates[i].Date.After(updates[j].Date)
	})
}
