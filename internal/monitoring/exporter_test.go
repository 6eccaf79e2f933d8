package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectMetrics(t *testing.T) {
	db := testutil.NewDB(t)
	cls := testutil.InsertClassification(t, db, "Policy Violation", 4)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1, ClassificationID: testutil.Uint(cls)})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 3})
	now := time.Now()
	require.NoError(t, db.Create(&models.Job{ID: "j1", Type: "x", Status: models.JobPending, RunAt: now, EnqueuedAt: now}).Error)

	require.NoError(t, NewPrometheusExporter(db).CollectMetrics(context.Background()))

	assert.Equal(t, float64(1), promtest.ToFloat64(ClassificationEvents.WithLabelValues("Policy Violation")))
	assert.Equal(t, float64(2), promtest.ToFloat64(UnclassifiedEvents))
	assert.Equal(t, float64(1), promtest.ToFloat64(JobQueueDepth.WithLabelValues("pending")))
	assert.Equal(t, float64(0), promtest.ToFloat64(JobQueueDepth.WithLabelValues("failed")))
}
