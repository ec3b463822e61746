package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is the embedded backend for single-node deployments and tests.
// SQLite has a single writer, so the pool is limited to one connection and
// every transaction runs serially.
type SQLiteStore struct {
	*gormQueries
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteStore{gormQueries: &gormQueries{db: db}, db: db}, nil
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormQueries{db: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return gormError("commit", err)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&userRecord{},
		&teamRecord{},
		&memberRecord{},
		&taskRecord{},
		&idempotencyKeyRecord{},
		&minutesRecord{},
		&snapshotRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TRIGGER IF NOT EXISTS snapshots_no_update BEFORE UPDATE ON snapshots
		 BEGIN SELECT RAISE(ABORT, 'snapshots are append-only'); END`,
		`CREATE TRIGGER IF NOT EXISTS snapshots_no_delete BEFORE DELETE ON snapshots
		 BEGIN SELECT RAISE(ABORT, 'snapshots are append-only'); END`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict(op)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%s: referenced row %w", op, ErrorNotFound)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return conflict(op)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: referenced row %w", op, ErrorNotFound)
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return transient(op, err)
	}
	return &StorageError{Op: op, Err: err}
}

func gormNotFound(what, op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return gormError(op, err)
}
