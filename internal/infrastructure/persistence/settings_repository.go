package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/shared"
)

// GatewaySetting is a key/value row holding gateway credentials managed at
// runtime, consulted when the static configuration leaves a value blank.
type GatewaySetting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name
func (GatewaySetting) TableName() string {
	return "gateway_settings"
}

// Well-known setting keys
const (
	SettingPaymentKeySecret = "payment.key_secret"
	SettingPaymentKeyID     = "payment.key_id"
)

// GormSettingsRepository reads and writes gateway settings
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the value stored under key
func (r *GormSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var setting GatewaySetting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// Set stores value under key, replacing any existing value
func (r *GormSettingsRepository) Set(ctx context.Context, key, value string) error {
	setting := GatewaySetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}
