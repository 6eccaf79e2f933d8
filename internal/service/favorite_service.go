package service

import (
	"context"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

// FavoriteService stars and unstars events. Counter changes happen in the
// same transaction as the favorite row and only when the row actually changed.
type FavoriteService struct {
	db        *gorm.DB
	events    *repository.EventRepository
	favorites *repository.FavoriteRepository
	users     *repository.UserRepository
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{
		db:        db,
		events:    repository.NewEventRepository(db),
		favorites: repository.NewFavoriteRepository(db),
		users:     repository.NewUserRepository(db),
	}
}

// Toggle flips the favorite state and reports the new state
func (s *FavoriteService) Toggle(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	var favorited, changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.events.WithTx(tx).FindBare(ctx, id); err != nil {
			return err
		}

		removed, err := s.remove(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if removed {
			favorited, changed = false, true
			return nil
		}

		inserted, err := s.insert(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		// a concurrent insert that won still leaves the event favorited
		favorited, changed = true, inserted
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.record(id, userID, favorited)
	}
	return favorited, nil
}

// Create favorites the event; it reports whether a row was added
func (s *FavoriteService) Create(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.events.WithTx(tx).FindBare(ctx, id); err != nil {
			return err
		}
		var err error
		inserted, err = s.insert(ctx, tx, id, userID)
		return err
	})
	if err == nil && inserted {
		s.record(id, userID, true)
	}
	return inserted, err
}

// Destroy unfavorites the event; it reports whether a row was removed
func (s *FavoriteService) Destroy(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = s.remove(ctx, tx, id, userID)
		return err
	})
	if err == nil && removed {
		s.record(id, userID, false)
	}
	return removed, err
}

// MassCreate favorites every existing event in ids and returns how many changed.
// Missing events are skipped.
func (s *FavoriteService) MassCreate(ctx context.Context, ids []models.EventID, userID uint) (int, error) {
	found, err := s.events.FindByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range found {
		ok, err := s.Create(ctx, found[i].ID(), userID)
		if err != nil {
			logger.Error("Failed to create favorite", err, map[string]interface{}{
				"event_id": found[i].ID().String(),
				"user_id":  userID,
			})
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// MassDestroy unfavorites every event in ids and returns how many changed
func (s *FavoriteService) MassDestroy(ctx context.Context, ids []models.EventID, userID uint) (int, error) {
	changed := 0
	for _, id := range ids {
		ok, err := s.Destroy(ctx, id, userID)
		if err != nil {
			logger.Error("Failed to destroy favorite", err, map[string]interface{}{
				"event_id": id.String(),
				"user_id":  userID,
			})
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, id models.EventID, userID uint) (bool, error) {
	return s.favorites.Exists(ctx, id, userID)
}

// FavoritedIDs marks which of the listed events the user has starred
func (s *FavoriteService) FavoritedIDs(ctx context.Context, userID uint, list []models.Event) (map[models.EventID]bool, error) {
	ids := make([]models.EventID, len(list))
	for i := range list {
		ids[i] = list[i].ID()
	}
	return s.favorites.FavoritedIDs(ctx, userID, ids)
}

func (s *FavoriteService) insert(ctx context.Context, tx *gorm.DB, id models.EventID, userID uint) (bool, error) {
	inserted, err := s.favorites.WithTx(tx).Insert(ctx, id, userID)
	if err != nil || !inserted {
		return false, err
	}
	if err := s.events.WithTx(tx).IncrementUsers(ctx, id); err != nil {
		return false, err
	}
	if err := s.users.WithTx(tx).IncrementFavorites(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoriteService) remove(ctx context.Context, tx *gorm.DB, id models.EventID, userID uint) (bool, error) {
	removed, err := s.favorites.WithTx(tx).Remove(ctx, id, userID)
	if err != nil || !removed {
		return false, err
	}
	if err := s.events.WithTx(tx).DecrementUsers(ctx, id); err != nil {
		return false, err
	}
	if err := s.users.WithTx(tx).DecrementFavorites(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoriteService) record(id models.EventID, userID uint, favorited bool) {
	state := "removed"
	if favorited {
		state = "added"
	}
	monitoring.FavoritesToggledTotal.WithLabelValues(state).Inc()
	events.PublishFavoriteToggled(id, userID, favorited)
}
