package estimates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

type estimateRecord struct {
	AgentID   string `gorm:"primaryKey"`
	Time      float64
	Credits   float64
	Timestamp time.Time
}

func (estimateRecord) TableName() string {
	return "stored_estimates"
}

// GormStore persists estimates in a local sqlite file so they survive
// between CLI invocations.
type GormStore struct {
	gdb *gorm.DB
}

var _ Store = &GormStore{}

func NewGormStore(path string) (*GormStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create estimates directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open estimates database: %w", err)
	}

	if err := db.AutoMigrate(&estimateRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate estimates database: %w", err)
	}

	return &GormStore{gdb: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Get(ctx context.Context, agentID string) (*types.StoredEstimate, error) {
	var record estimateRecord
	err := s.gdb.WithContext(ctx).Where("agent_id = ?", agentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &types.StoredEstimate{
		Time:      record.Time,
		Credits:   record.Credits,
		Timestamp: record.Timestamp,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, agentID string, estimate *types.StoredEstimate) error {
	if err := validate(agentID, estimate); err != nil {
		return err
	}
	e := stamp(estimate)

	return s.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		UpdateAll: true,
	}).Create(&estimateRecord{
		AgentID:   agentID,
		Time:      e.Time,
		Credits:   e.Credits,
		Timestamp: e.Timestamp,
	}).Error
}
