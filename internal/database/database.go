package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

const slowQueryThreshold = 200 * time.Millisecond

// zerologWriter routes gorm's logger output into the global zerolog logger.
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	log.Warn().Str("component", "gorm").Msg(msg)
}

func newGormLogger(logQueries bool) logger.Interface {
	level := logger.Warn
	if logQueries {
		level = logger.Info
	}
	return logger.New(zerologWriter{}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true, // lookups by id miss routinely
		Colorful:                  false,
	})
}

// New opens the Postgres connection pool described by cfg and verifies it with a ping.
func New(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  newGormLogger(cfg.LogQueries),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetimeSeconds) * time.Second)

	if err := HealthCheck(context.Background(), db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("database connection established")
	return db, nil
}

// Models lists every persisted type, parents before children.
func Models() []any {
	return []any{
		&auth.User{},
		&catalog.Entry{},
		&rfpo.RFPO{},
		&rfpo.LineItem{},
		&rfpo.UploadedFile{},
		&model.WorkflowTemplate{},
		&model.WorkflowStage{},
		&model.WorkflowStep{},
		&model.ApprovalInstance{},
		&model.ApprovalInstancePhase{},
		&model.ApprovalAction{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Int("models", len(Models())).Msg("database schema migrated")
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Info().Msg("database connection closed")
	return nil
}

const healthCheckTimeout = 3 * time.Second

// HealthCheck pings the database, giving up after a few seconds.
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
