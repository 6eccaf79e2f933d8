package repository

import (
	"context"
	"errors"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) WithTx(tx *gorm.DB) *NoteRepository {
	return &NoteRepository{db: tx}
}

func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *NoteRepository) FindByID(ctx context.Context, id uint) (*models.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).Preload("User").First(&note, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

// ForEvent returns an event's notes, oldest first
func (r *NoteRepository) ForEvent(ctx context.Context, id models.EventID) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.WithContext(ctx).Preload("User").
		Where("sid = ? AND cid = ?", id.SID, id.CID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error
	return notes, err
}

// Page returns one page of an event's notes, newest first
func (r *NoteRepository) Page(ctx context.Context, id models.EventID, page, perPage int) ([]models.Note, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Note{}).Where("sid = ? AND cid = ?", id.SID, id.CID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	var notes []models.Note
	err := r.db.WithContext(ctx).Preload("User").
		Where("sid = ? AND cid = ?", id.SID, id.CID).
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&notes).Error
	return notes, total, err
}

func (r *NoteRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Note{}, "id = ?", id).Error
}
