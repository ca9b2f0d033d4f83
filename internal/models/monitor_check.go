package models

import (
	"time"
)

type MonitorCheck struct {
	BaseModel

	MonitorID  uint   `gorm:"not null;index"`
	Region     string `gorm:"not null"`
	Success    bool   `gorm:"not null"`
	StatusCode int
	LatencyMS  int64 `gorm:"not null"`
	Message    string
	CheckedAt  time.Time `gorm:"not null"`

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
