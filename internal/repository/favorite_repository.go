package repository

import (
	"context"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) WithTx(tx *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: tx}
}

func (r *FavoriteRepository) Exists(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("sid = ? AND cid = ? AND user_id = ?", id.SID, id.CID, userID).
		Count(&n).Error
	return n > 0, err
}

// Insert adds the favorite. It reports false when the row already existed.
func (r *FavoriteRepository) Insert(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	fav := models.Favorite{SID: id.SID, CID: id.CID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes the favorite. It reports false when there was nothing to delete.
func (r *FavoriteRepository) Remove(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("sid = ? AND cid = ? AND user_id = ?", id.SID, id.CID, userID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FavoritedIDs returns which of the given events the user has starred
func (r *FavoriteRepository) FavoritedIDs(ctx context.Context, userID uint, ids []models.EventID) (map[models.EventID]bool, error) {
	out := make(map[models.EventID]bool)
	if len(ids) == 0 {
		return out, nil
	}
	cond, args := keyCondition("", ids)
	var favs []models.Favorite
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Where(cond, args...).Find(&favs).Error
	if err != nil {
		return nil, err
	}
	for _, f := range favs {
		out[models.EventID{SID: f.SID, CID: f.CID}] = true
	}
	return out, nil
}

func (r *FavoriteRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *FavoriteRepository) CountByEvent(ctx context.Context, id models.EventID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("sid = ? AND cid = ?", id.SID, id.CID).Count(&n).Error
	return n, err
}
