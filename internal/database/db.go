package database

import (
	"errors"
	"fmt"
	"time"

	"pharmacy-pos/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrStockConflict = errors.New("not enough stock on hand")
	ErrProductInUse  = errors.New("product is referenced by recorded sales")
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Connect opens the MySQL database, waiting for it to come up.
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			break
		}
		log.Warn("database not reachable, retrying",
			zap.Int("attempt", i+1), zap.Int("of", connectAttempts), zap.Duration("backoff", connectBackoff), zap.Error(err))
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", connectAttempts, err)
	}

	log.Info("connected to MySQL")
	return db, nil
}

// Migrate syncs the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Store is the gorm-backed catalog source and sale, stock and audit sink.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Named("store")}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection is alive.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
