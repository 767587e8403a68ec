package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

// Open creates a pgx pool, wraps it for gorm, and returns both.
func Open(ctx context.Context, cfg common.DatabaseConfig, log *slog.Logger) (*gorm.DB, *pgxpool.Pool, error) {
	log.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		log.Error("failed to parse database config", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "powertown-worker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	// Wrap the pool as *sql.DB for gorm
	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		pool.Close()
		log.Error("failed to open gorm", "error", err)
		return nil, nil, err
	}

	log.Info("successfully connected to database")
	return db, pool, nil
}

// OpenSQLite opens a file or in-memory SQLite database. Used for local runs
// and tests; worker semantics are identical modulo concurrency guarantees.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), gormConfig())
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
}

// Migrate creates or updates the persisted state layout: job store, segment
// store and claim store plus the resource tables they reference.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Site{},
		&entity.Building{},
		&entity.Artifact{},
		&entity.ProcessingJob{},
		&entity.ArtifactTextSegment{},
		&entity.Claim{},
	)
}

// Close closes the database connections gracefully
func Close(pool *pgxpool.Pool, log *slog.Logger) {
	log.Info("closing database connections")
	if pool != nil {
		pool.Close()
	}
	log.Info("database connections closed")
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, log *slog.Logger) error {
	log.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	log.Debug("database ping successful")
	return nil
}
