package models

type Workspace struct {
	BaseModel

	Name       string `gorm:"not null"`
	Slug       string `gorm:"uniqueIndex;not null"`
	APIKeyHash string `gorm:"not null" json:"-"`

	// Relationships
	Monitors      []Monitor      `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifiers     []Notifier     `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	StatusReports []StatusReport `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
