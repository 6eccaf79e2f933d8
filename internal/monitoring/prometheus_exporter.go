package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

// PrometheusExporter refreshes snapshot gauges from the database
type PrometheusExporter struct {
	db              *gorm.DB
	classifications *repository.ClassificationRepository
	jobs            *repository.JobRepository
	stopChan        chan struct{}
}

func NewPrometheusExporter(db *gorm.DB) *PrometheusExporter {
	return &PrometheusExporter{
		db:              db,
		classifications: repository.NewClassificationRepository(db),
		jobs:            repository.NewJobRepository(db),
		stopChan:        make(chan struct{}),
	}
}

// CollectMetrics reads classification counters, the unclassified backlog
// and job queue depth.
func (e *PrometheusExporter) CollectMetrics(ctx context.Context) error {
	list, err := e.classifications.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch classifications: %w", err)
	}
	for _, c := range list {
		ClassificationEvents.WithLabelValues(c.Name).Set(float64(c.EventsCount))
	}

	var unclassified int64
	if err := e.db.WithContext(ctx).Model(&models.Event{}).
		Where("classification_id IS NULL").Count(&unclassified).Error; err != nil {
		return fmt.Errorf("failed to count unclassified events: %w", err)
	}
	UnclassifiedEvents.Set(float64(unclassified))

	depth, err := e.jobs.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}
	for _, status := range []models.JobStatus{models.JobPending, models.JobRunning, models.JobDone, models.JobFailed} {
		JobQueueDepth.WithLabelValues(string(status)).Set(float64(depth[status]))
	}

	logger.Debug("Prometheus metrics collected", map[string]interface{}{
		"classifications": len(list),
		"unclassified":    unclassified,
	})
	return nil
}

// StartMetricsCollector collects immediately and then on every tick until Stop
func (e *PrometheusExporter) StartMetricsCollector(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		if err := e.CollectMetrics(context.Background()); err != nil {
			logger.Error("Failed to collect Prometheus metrics", err, nil)
		}
		for {
			select {
			case <-ticker.C:
				if err := e.CollectMetrics(context.Background()); err != nil {
					logger.Error("Failed to collect Prometheus metrics", err, nil)
				}
			case <-e.stopChan:
				return
			}
		}
	}()

	logger.Info("Prometheus metrics collector started", map[string]interface{}{
		"interval": interval.String(),
	})
}

func (e *PrometheusExporter) Stop() {
	close(e.stopChan)
}
