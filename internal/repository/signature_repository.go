package repository

import (
	"context"
	"errors"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

var ErrSignatureNotFound = errors.New("signature not found")

type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

func (r *SignatureRepository) FindByID(ctx context.Context, id uint) (*models.Signature, error) {
	var sig models.Signature
	err := r.db.WithContext(ctx).First(&sig, "sig_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}
	return &sig, nil
}

// ResolveSignatures returns the ids of signatures whose name contains the
// fragment and, when severity is non-zero, whose priority equals it.
func (r *SignatureRepository) ResolveSignatures(ctx context.Context, name string, severity int) ([]uint, error) {
	tx := r.db.WithContext(ctx).Model(&models.Signature{})
	if name != "" {
		tx = tx.Where("LOWER(sig_name) LIKE LOWER(?)", "%"+name+"%")
	}
	if severity != 0 {
		tx = tx.Where("sig_priority = ?", severity)
	}
	ids := []uint{}
	err := tx.Order("sig_id").Pluck("sig_id", &ids).Error
	return ids, err
}

// Top returns the signatures with the most events
func (r *SignatureRepository) Top(ctx context.Context, limit int) ([]models.Signature, error) {
	var sigs []models.Signature
	err := r.db.WithContext(ctx).Order("events_count DESC").Limit(limit).Find(&sigs).Error
	return sigs, err
}

func (r *SignatureRepository) Sensors(ctx context.Context) ([]models.Sensor, error) {
	var sensors []models.Sensor
	err := r.db.WithContext(ctx).Order("sid").Find(&sensors).Error
	return sensors, err
}

// Recount rebuilds signature and sensor events_count from the event table
func (r *SignatureRepository) Recount(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		"UPDATE signature SET events_count = (SELECT COUNT(*) FROM event WHERE event.signature = signature.sig_id)",
	).Error; err != nil {
		return err
	}
	return db.Exec(
		"UPDATE sensor SET events_count = (SELECT COUNT(*) FROM event WHERE event.sid = sensor.sid)",
	).Error
}
