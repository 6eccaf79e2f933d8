package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&list).Error
	return list, err
}

func (r *NotificationRepository) Enabled(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&list).Error
	return list, err
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).
		Update("last_sent_at", at).Error
}

// Delete removes one of the user's notifications
func (r *NotificationRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
