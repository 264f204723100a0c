package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer, and ":memory:" is private to one connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenGorm wraps an sqlite connection from Open in a gorm handle.
func OpenGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{DriverName: DriverSQLite, Conn: sqlDB}, gormConfig())
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&assignmentRow{}); err != nil {
		return nil, fmt.Errorf("migrate assignments: %w", err)
	}
	return gdb, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if err := ensureUserCompletedIndex(ctx, db); err != nil {
		return err
	}

	return nil
}

func ensureUserCompletedIndex(ctx context.Context, db *sql.DB) error {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM pragma_index_list('assignments') WHERE name = 'idx_assignments_user_completed' LIMIT 1").Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check idx_assignments_user_completed: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE INDEX idx_assignments_user_completed ON assignments(userId, completed)"); err != nil {
		return fmt.Errorf("create idx_assignments_user_completed: %w", err)
	}

	return nil
}
