package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormRepositoryManager backs the ORM strategy. Schema comes from
// AutoMigrate over the model structs; the pool bounds are applied to the
// underlying sql.DB so both strategies share the same resource model.
type GormRepositoryManager struct {
	db     *gorm.DB
	users  users.Repository
	dbName string
}

func (m *GormRepositoryManager) Users() users.Repository { return m.users }

func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *GormRepositoryManager) DatabaseName() string { return m.dbName }

func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewGormRepositoryManager opens gorm with error translation enabled (so
// unique violations surface as gorm.ErrDuplicatedKey), migrates the models,
// and applies the shared pool bounds.
func NewGormRepositoryManager(cfg *config.Config) (*GormRepositoryManager, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("orm open error: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("orm pool error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.AutoMigrate(&models.User{}, &models.UserProfile{}); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	userRepo, err := users.NewGormRepository(db)
	if err != nil {
		return nil, fmt.Errorf("user repo creation error: %w", err)
	}

	return &GormRepositoryManager{
		db:     db,
		users:  userRepo,
		dbName: databaseNameFromDSN(cfg.DSN()),
	}, nil
}
