package repository

import (
	"context"
	"errors"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

type ClassificationRepository struct {
	db *gorm.DB
}

func NewClassificationRepository(db *gorm.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func (r *ClassificationRepository) WithTx(tx *gorm.DB) *ClassificationRepository {
	return &ClassificationRepository{db: tx}
}

func (r *ClassificationRepository) FindByID(ctx context.Context, id uint) (*models.Classification, error) {
	var c models.Classification
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrClassificationNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll returns classifications ordered by hotkey, then name
func (r *ClassificationRepository) FindAll(ctx context.Context) ([]models.Classification, error) {
	var list []models.Classification
	err := r.db.WithContext(ctx).Order("hotkey ASC").Order("name ASC").Find(&list).Error
	return list, err
}

// Upsert creates the classification or refreshes its description and hotkey
func (r *ClassificationRepository) Upsert(ctx context.Context, c *models.Classification) error {
	var existing models.Classification
	err := r.db.WithContext(ctx).Where("name = ?", c.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(c).Error
	}
	if err != nil {
		return err
	}
	c.ID = existing.ID
	c.EventsCount = existing.EventsCount
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"description": c.Description,
		"hotkey":      c.Hotkey,
		"locked":      c.Locked,
	}).Error
}

func (r *ClassificationRepository) Increment(ctx context.Context, id uint) error {
	return increment(r.db.WithContext(ctx), &models.Classification{}, "events_count", "id = ?", id)
}

func (r *ClassificationRepository) Decrement(ctx context.Context, id uint) error {
	return decrement(r.db.WithContext(ctx), &models.Classification{}, "events_count", "id = ?", id)
}

// Recount rebuilds every events_count from the event table
func (r *ClassificationRepository) Recount(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE classifications SET events_count = (SELECT COUNT(*) FROM event WHERE event.classification_id = classifications.id)",
	).Error
}
