package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// StatusReport is a human-authored incident narrative. It is mutable only by
// appending updates; the title and affected components have a separate edit
// path and the update history is never rewritten.
type StatusReport struct {
	BaseModel

	WorkspaceID        uint               `gorm:"not null;index"`
	Title              string             `gorm:"not null"`
	Status             types.ReportStatus `gorm:"not null"`
	AffectedComponents pq.StringArray     `gorm:"type:text[]"`

	// Relationships
	Workspace Workspace            `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Updates   []StatusReportUpdate `gorm:"foreignKey:StatusReportID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

type StatusReportUpdate struct {
	BaseModel

	StatusReportID uint               `gorm:"not null;index"`
	Status         types.ReportStatus `gorm:"not null"`
	Message        string             `gorm:"not null"`
	Date           time.Time          `gorm:"not null"`
}

// AggregateReportStatus returns the status of the update with the latest
// date. Insertion order is irrelevant: updates may be backfilled with an
// earlier date and must not become "current" when a later-dated update
// exists.
func AggregateReportStatus(updates []StatusReportUpdate) (types.ReportStatus, bool) {
	if len(updates) == 0 {
		return "", false
	}

	latest := updates[0]

	for _, u := range updates[1:] {
		if u.Date.After(latest.Date) {
			latest = u
		}
	}

	return latest.Status, true
}
