package db

import (
	"github.com/openstatus-dev/openstatus/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	models := []interface{}{
		&models.Workspace{},
		&models.Monitor{},
		&models.MonitorCheck{},
		&models.Notifier{},
		&models.Incident{},
		&models.IncidentUpdate{},
		&models.StatusReport{},
		&models.StatusReportUpdate{},
		&models.Notification{},
	}

	migrator := DB.Migrator()

	for _, model := range models {
		if !migrator.HasTable(model) {
			if err := DB.AutoMigrate(model); err != nil {
				return err
			}
		}
	}

	return nil
}
