package database

import (
	"fmt"
	"log"
	"os"

	"lms/config"
	courseModels "lms/models/course"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ProgressModels lists every per-type progress table. Each gets a unique
// (client_id, user_id, course_id, context_key) index in Migrate.
func ProgressModels() []interface{} {
	return []interface{}{
		&courseModels.VideoProgress{},
		&courseModels.AudioProgress{},
		&courseModels.DocumentProgress{},
		&courseModels.ImageProgress{},
		&courseModels.ExternalProgress{},
		&courseModels.InteractiveProgress{},
		&courseModels.ScormProgress{},
		&courseModels.AssessmentProgress{},
		&courseModels.ActivityProgress{},
	}
}

// Open returns a gorm handle for the configured driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.DBDriver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBPath), gormCfg)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// ConnectDb establishes the database connection and runs migrations
func ConnectDb() {
	db, err := Open(config.Current())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		os.Exit(2)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10) // Maximum open connections
	if config.Current().DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1) // sqlite allows a single writer
	}
	sqlDB.SetMaxIdleConns(5)    // Maximum idle connections
	sqlDB.SetConnMaxLifetime(0) // No timeout

	log.Println("Running Migrations...")
	if err := Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully.")

	Database = DbInstance{Db: db}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.CourseModuleContent{},
		&courseModels.CoursePrerequisite{},
		&courseModels.ContentPackage{},
		&courseModels.AssessmentPackage{},
		&courseModels.AssessmentQuestion{},
		&courseModels.AssessmentOption{},
		&courseModels.AssessmentAttempt{},
		&courseModels.AttemptAnswer{},
		&courseModels.PrerequisiteCompletion{},
		&courseModels.CourseProgress{},
		&courseModels.Enrollment{},
		&courseModels.Certificate{},
	)
	if err != nil {
		return err
	}

	for _, m := range ProgressModels() {
		if err := db.AutoMigrate(m); err != nil {
			return err
		}
		if err := ensureContextIndex(db, m); err != nil {
			return err
		}
	}
	return nil
}

// ensureContextIndex adds the per-table unique context index. Index names are
// schema-global on postgres and sqlite, so they are derived from the table name.
func ensureContextIndex(db *gorm.DB, model interface{}) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return err
	}
	table := stmt.Schema.Table
	name := "uidx_" + table + "_context"

	if db.Migrator().HasIndex(model, name) {
		return nil
	}
	return db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX %s ON %s (client_id, user_id, course_id, context_key)",
		name, table,
	)).Error
}
