package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

type SqliteStore struct {
	cfg config.Store
	gdb *gorm.DB
}

var _ Store = &SqliteStore{}

func NewSqliteStore(cfg config.Store) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(200*time.Millisecond, true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SqliteStore{
		cfg: cfg,
		gdb: db,
	}

	if cfg.AutoMigrate {
		if err := s.autoMigrate(); err != nil {
			return nil, fmt.Errorf("there was an error doing the migration: %w", err)
		}
	}

	return s, nil
}

func (s *SqliteStore) autoMigrate() error {
	return s.gdb.AutoMigrate(
		&types.Agent{},
		&types.Contact{},
		&types.Deal{},
	)
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
