package settings

import (
	"context"
	"errors"
	"time"

	"github.com/inkpost/inkpost/server/internal/pricing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ─────────────────────────────────────────────
// Settings: named price keys → values
//
// The price schedule lives in one table so every pricing call site reads
// the same numbers. Each key has an explicit default used when the row is
// absent; Schedule() reads all rows in a single query so one computation
// never mixes old and new prices.
// ─────────────────────────────────────────────

// Setting is one named numeric configuration value.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price schedule keys.
const (
	KeyLetterBase     = "price.letter_base"
	KeyColorSurcharge = "price.color_surcharge"
	KeyPhotoUnit      = "price.photo"
	KeyDocumentUnit   = "price.document"
	KeyPostcardUnit   = "price.postcard"
	KeyScent          = "price.scent"
	KeyCalendar       = "price.calendar"
	KeyUnlock         = "price.unlock"
)

// defaults holds the fallback value per key.
var defaults = map[string]int64{
	KeyLetterBase:     30,
	KeyColorSurcharge: 5,
	KeyPhotoUnit:      10,
	KeyDocumentUnit:   5,
	KeyPostcardUnit:   15,
	KeyScent:          10,
	KeyCalendar:       25,
	KeyUnlock:         20,
}

var (
	ErrUnknownKey   = errors.New("unknown settings key")
	ErrInvalidValue = errors.New("settings value must not be negative")
)

// Service provides the current price schedule and admin mutation.
type Service interface {
	// Schedule reads the full price schedule in one fetch, applying
	// per-key defaults for unset rows.
	Schedule(ctx context.Context) (pricing.Schedule, error)

	// All returns every known key with its effective value.
	All(ctx context.Context) (map[string]int64, error)

	// Set updates one price key (admin only).
	Set(ctx context.Context, key string, value int64) error
}

type settingsService struct {
	db *gorm.DB
}

// NewService creates a settings Service backed by the given DB.
func NewService(db *gorm.DB) Service {
	return &settingsService{db: db}
}

// Schedule assembles the pricing schedule from stored rows plus defaults.
func (s *settingsService) Schedule(ctx context.Context) (pricing.Schedule, error) {
	values, err := s.All(ctx)
	if err != nil {
		return pricing.Schedule{}, err
	}
	return pricing.Schedule{
		LetterBase:     values[KeyLetterBase],
		ColorSurcharge: values[KeyColorSurcharge],
		PhotoUnit:      values[KeyPhotoUnit],
		DocumentUnit:   values[KeyDocumentUnit],
		PostcardUnit:   values[KeyPostcardUnit],
		ScentPrice:     values[KeyScent],
		CalendarPrice:  values[KeyCalendar],
		UnlockPrice:    values[KeyUnlock],
	}, nil
}

// All returns the effective value for every known key.
func (s *settingsService) All(ctx context.Context) (map[string]int64, error) {
	var rows []Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}
	for _, row := range rows {
		if _, known := defaults[row.Key]; known {
			values[row.Key] = row.Value
		}
	}
	return values, nil
}

// Set upserts one price key.
func (s *settingsService) Set(ctx context.Context, key string, value int64) error {
	if _, known := defaults[key]; !known {
		return ErrUnknownKey
	}
	if value < 0 {
		return ErrInvalidValue
	}
	row := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
