package repository

import (
	"context"
	"errors"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the value and whether the setting exists
func (r *SettingRepository) Get(ctx context.Context, name string) (string, bool, error) {
	var s models.Setting
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

func (r *SettingRepository) Set(ctx context.Context, name, value string) error {
	s := models.Setting{Name: name, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
}

func (r *SettingRepository) All(ctx context.Context) ([]models.Setting, error) {
	var list []models.Setting
	err := r.db.WithContext(ctx).Order("name").Find(&list).Error
	return list, err
}
