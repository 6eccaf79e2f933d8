package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInsufficientCriteria rejects a mass classification with an empty filter
var ErrInsufficientCriteria = errors.New("Sorry, Insufficient classification parameters submitted...")

const defaultMassBatchSize = 500

// MassActionRequest is one analyst's filter-based classification
type MassActionRequest struct {
	ClassificationID uint
	Filter           search.MassFilter
	UserID           uint
	Reclassify       bool
}

// MassActionService classifies every event matching a filter in the background
type MassActionService struct {
	events          *repository.EventRepository
	classifications *repository.ClassificationRepository
	classifier      *ClassificationService
	queue           jobs.Queue
	batchSize       int
}

func NewMassActionService(db *gorm.DB, classifier *ClassificationService, queue jobs.Queue) *MassActionService {
	return &MassActionService{
		events:          repository.NewEventRepository(db),
		classifications: repository.NewClassificationRepository(db),
		classifier:      classifier,
		queue:           queue,
		batchSize:       defaultMassBatchSize,
	}
}

// WithBatchSize overrides how many events each keyset batch covers
func (s *MassActionService) WithBatchSize(n int) *MassActionService {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Enqueue validates the request and schedules a jobs.MassClassification.
// It returns a correlation id for the audit trail.
func (s *MassActionService) Enqueue(ctx context.Context, req MassActionRequest) (string, error) {
	if req.Filter.Empty() {
		return "", ErrInsufficientCriteria
	}
	if req.ClassificationID != 0 {
		if _, err := s.classifications.FindByID(ctx, req.ClassificationID); err != nil {
			return "", err
		}
	}

	job := jobs.MassClassification{
		ClassificationID: req.ClassificationID,
		Filter:           req.Filter,
		UserID:           req.UserID,
		Reclassify:       req.Reclassify,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("enqueueing mass classification: %w", err)
	}

	ref := uuid.NewString()
	events.PublishMassActionEnqueued(ref, req.UserID, req.ClassificationID, req.Filter.Fields())
	logger.Info("Mass classification enqueued", map[string]interface{}{
		"ref":               ref,
		"user_id":           req.UserID,
		"classification_id": req.ClassificationID,
		"reclassify":        req.Reclassify,
	})
	return ref, nil
}

// Run evaluates the filter against the current rows and classifies matches
// batch by batch in (sid, cid) order.
func (s *MassActionService) Run(ctx context.Context, job jobs.MassClassification) (ClassifyResult, error) {
	var total ClassifyResult
	if job.Filter.Empty() {
		return total, ErrInsufficientCriteria
	}

	var after models.EventID
	for {
		ids, err := s.events.Batch(ctx, job.Filter.Apply, after, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("selecting mass classification batch after %s: %w", after, err)
		}
		if len(ids) == 0 {
			return total, nil
		}

		result, err := s.classifier.ClassifyCollection(ctx, ids, job.ClassificationID, job.UserID, job.Reclassify)
		total.Add(result)
		if err != nil {
			return total, err
		}

		after = ids[len(ids)-1]
		if len(ids) < s.batchSize {
			return total, nil
		}
		jobs.Progress(ctx)
	}
}

// HandleJob is the worker entry point for jobs.MassClassification
func (s *MassActionService) HandleJob(ctx context.Context, job jobs.MassClassification) error {
	_, err := s.Run(ctx, job)
	if errors.Is(err, ErrInsufficientCriteria) || errors.Is(err, models.ErrClassificationNotFound) {
		logger.Warn("Dropping mass classification job", map[string]interface{}{
			"reason":  err.Error(),
			"user_id": job.UserID,
		})
		return nil
	}
	return err
}
