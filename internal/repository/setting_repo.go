package repository

import (
	"time"

	"invoice-ingestion-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Set creates the setting on first save and updates it in place thereafter.
func (r *SettingRepository) Set(key, value string) error {
	s := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": s.UpdatedAt,
		}),
	}).Create(&s).Error
}

func (r *SettingRepository) Get(key string) (*string, error) {
	var s models.Setting
	err := r.db.First(&s, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s.Value, nil
}

// Load reads the full settings snapshot. Called at the start of every scan
// cycle so saved changes take effect on the next cycle without a restart.
func (r *SettingRepository) Load() (models.Settings, error) {
	settings := models.Settings{OCRLanguage: models.DefaultOCRLanguage}

	var rows []models.Setting
	if err := r.db.Find(&rows).Error; err != nil {
		return settings, err
	}
	for _, row := range rows {
		value := row.Value
		switch row.Key {
		case models.SettingRevenueFolder:
			settings.RevenueFolder = &value
		case models.SettingPayableFolder:
			settings.PayableFolder = &value
		case models.SettingOpenAIAPIKey:
			settings.OpenAIAPIKey = &value
		case models.SettingOCRLanguage:
			if value != "" {
				settings.OCRLanguage = value
			}
		}
	}
	return settings, nil
}
