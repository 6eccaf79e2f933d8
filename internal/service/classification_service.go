package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

// Reasons an event is left untouched by a bulk classification
const (
	SkipMissing    = "missing"
	SkipUnchanged  = "unchanged"
	SkipClassified = "already_classified"
	SkipConflict   = "concurrent_update"
)

// ClassifyResult tallies one bulk classification run
type ClassifyResult struct {
	Classified int `json:"classified"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Add merges another run's counts
func (r *ClassifyResult) Add(other ClassifyResult) {
	r.Classified += other.Classified
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// ClassificationService applies a disposition to events and keeps the
// per-classification counters in step with the event rows.
type ClassificationService struct {
	db              *gorm.DB
	events          *repository.EventRepository
	classifications *repository.ClassificationRepository
	queue           jobs.Queue
}

func NewClassificationService(db *gorm.DB, queue jobs.Queue) *ClassificationService {
	return &ClassificationService{
		db:              db,
		events:          repository.NewEventRepository(db),
		classifications: repository.NewClassificationRepository(db),
		queue:           queue,
	}
}

// List returns every classification, hotkeys first
func (s *ClassificationService) List(ctx context.Context) ([]models.Classification, error) {
	return s.classifications.FindAll(ctx)
}

// Enqueue validates the target and hands the id list to the work queue
func (s *ClassificationService) Enqueue(ctx context.Context, ids []models.EventID, target, userID uint, reclassify bool) error {
	if target != 0 {
		if _, err := s.classifications.FindByID(ctx, target); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return nil
	}
	job := jobs.ClassifyEvents{
		EventIDs:         ids,
		ClassificationID: target,
		UserID:           userID,
		Reclassify:       reclassify,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueueing classification of %d events: %w", len(ids), err)
	}
	return nil
}

// HandleJob is the worker entry point for jobs.ClassifyEvents
func (s *ClassificationService) HandleJob(ctx context.Context, job jobs.ClassifyEvents) error {
	_, err := s.ClassifyCollection(ctx, job.EventIDs, job.ClassificationID, job.UserID, job.Reclassify)
	if errors.Is(err, models.ErrClassificationNotFound) {
		// retrying cannot make the classification appear
		logger.Warn("Dropping classification job for unknown classification", map[string]interface{}{
			"classification_id": job.ClassificationID,
			"events":            len(job.EventIDs),
		})
		return nil
	}
	return err
}

// ClassifyCollection assigns target (0 clears) to each event in order. Events
// already carrying a classification are only changed when reclassify is set.
// Per-event failures are logged and counted; only an unknown target or a
// cancelled context aborts the run.
func (s *ClassificationService) ClassifyCollection(ctx context.Context, ids []models.EventID, target, userID uint, reclassify bool) (ClassifyResult, error) {
	var result ClassifyResult

	var next *uint
	label := "none"
	if target != 0 {
		c, err := s.classifications.FindByID(ctx, target)
		if err != nil {
			return result, err
		}
		next = &c.ID
		label = c.Name
	}

	log := logger.WithFields(map[string]interface{}{
		"classification_id": target,
		"user_id":           userID,
	})

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		from, reason, err := s.classifyOne(ctx, id, next, userID, reclassify)
		switch {
		case err != nil:
			result.Failed++
			monitoring.ClassificationFailuresTotal.Inc()
			log.With(map[string]interface{}{"event_id": id.String()}).Error("Failed to classify event", err)
		case reason != "":
			result.Skipped++
			monitoring.RecordClassificationSkipped(reason)
			if reason == SkipMissing {
				log.With(map[string]interface{}{"event_id": id.String()}).Debug("Skipping missing event")
			}
		default:
			result.Classified++
			monitoring.RecordClassified(label)
			events.PublishEventClassified(id, userID, from, target)
		}
	}

	log.With(map[string]interface{}{
		"classified": result.Classified,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
	}).Info("Classification run finished")
	return result, nil
}

// classifyOne returns the previous classification id (0 for none) or the skip reason
func (s *ClassificationService) classifyOne(ctx context.Context, id models.EventID, next *uint, userID uint, reclassify bool) (uint, string, error) {
	var from uint
	var reason string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventRepo := s.events.WithTx(tx)
		classRepo := s.classifications.WithTx(tx)

		event, err := eventRepo.FindBare(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrEventNotFound) {
				reason = SkipMissing
				return nil
			}
			return err
		}

		var current *uint
		if event.IsClassified() {
			current = event.ClassificationID
			from = *current
		}

		switch {
		case sameClassification(current, next):
			reason = SkipUnchanged
			return nil
		case current != nil && !reclassify:
			reason = SkipClassified
			return nil
		}

		swapped, err := eventRepo.SwapClassification(ctx, id, event.ClassificationID, next, userID)
		if err != nil {
			return err
		}
		if !swapped {
			reason = SkipConflict
			return nil
		}

		if next != nil {
			if err := classRepo.Increment(ctx, *next); err != nil {
				return err
			}
		}
		if current != nil {
			if err := classRepo.Decrement(ctx, *current); err != nil {
				return err
			}
		}
		return nil
	})
	return from, reason, err
}

func sameClassification(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
