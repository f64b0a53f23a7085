package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	models "github.com/coachworks/agentchat/dbmodels"
)

// Open connects with the given dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   true, // preserve camelCase column names
		},
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Conversation{}, &models.LLMUsage{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

// ConnectMySQL opens a MySQL database from a DSN such as
// user:pass@tcp(host)/name?parseTime=true.
func ConnectMySQL(dsn string) (*gorm.DB, error) {
	return Open(mysql.Open(dsn))
}
