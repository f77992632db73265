package database

import (
	"fmt"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/model"
	"ppe_inspection/pkg/logger"

	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector picks the gorm driver named by cfg.Driver.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", dialector.Name()))
	return db, nil
}

// Migrations lists the schema changes in the order they were introduced.
// Applied IDs are recorded by gormigrate and never run twice.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202401150900_create_inspection_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.InspectionRequest{}, &model.InspectionAnswer{}, &model.InspectionPhoto{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.InspectionPhoto{}, &model.InspectionAnswer{}, &model.InspectionRequest{})
			},
		},
		{
			ID: "202403041200_add_request_inspector",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&model.InspectionRequest{}, "Inspector") {
					return nil
				}
				return tx.Migrator().AddColumn(&model.InspectionRequest{}, "Inspector")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&model.InspectionRequest{}, "Inspector")
			},
		},
	}
}

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Log.Info("Database migration completed")
	return nil
}

// RollbackLast undoes the most recently applied migration.
func RollbackLast(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.RollbackLast(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	logger.Log.Info("Last database migration rolled back")
	return nil
}
