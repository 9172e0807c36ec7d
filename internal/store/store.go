package store

import (
	"log"
	"time"

	"github.com/inkpost/inkpost/server/internal/auth"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/letter"
	"github.com/inkpost/inkpost/server/internal/model"
	"github.com/inkpost/inkpost/server/internal/order"
	"github.com/inkpost/inkpost/server/internal/settings"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store provides SQL persistence via GORM (async writes for logs).
type Store struct {
	db    *gorm.DB
	logCh chan func() // buffered channel for async writes
}

// NewStore opens the database, auto-migrates schemas, and
// starts the background write worker.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&auth.User{},
		&credit.Account{},
		&credit.Entry{},
		&letter.Letter{},
		&order.Order{},
		&order.OrderLine{},
		&settings.Setting{},
		&model.NotificationLog{},
	); err != nil {
		return nil, err
	}

	s := &Store{
		db:    db,
		logCh: make(chan func(), 1024),
	}

	go s.writeWorker()

	return s, nil
}

func (s *Store) writeWorker() {
	for fn := range s.logCh {
		fn()
	}
}

// DB returns the underlying GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ─────────────────────────────────────────────
// Async write helpers
// ─────────────────────────────────────────────

// LogNotification records a dispatched notification (write-behind; a
// dropped log never blocks or fails the dispatch).
func (s *Store) LogNotification(userID, msgType, payload string) {
	s.logCh <- func() {
		nl := model.NotificationLog{
			UserID:    userID,
			Type:      msgType,
			Payload:   payload,
			CreatedAt: time.Now(),
		}
		if err := s.db.Create(&nl).Error; err != nil {
			log.Printf("[store] log notification error: %v", err)
		}
	}
}
