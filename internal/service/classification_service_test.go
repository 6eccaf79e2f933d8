package service_test

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingQueue keeps enqueued jobs for inspection
type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Jobs() []jobs.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]jobs.Job(nil), q.jobs...)
}

func ids(pairs ...uint) []models.EventID {
	out := make([]models.EventID, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.EventID{SID: pairs[i], CID: pairs[i+1]})
	}
	return out
}

func TestClassifyCollection_ReclassifiesAndMovesCounters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c2 := testutil.InsertClassification(t, db, "Unauthorized Root Access", 1)
	c3 := testutil.InsertClassification(t, db, "False Positive", 2)
	for cid := uint(100); cid <= 101; cid++ {
		testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: cid, ClassificationID: testutil.Uint(c2)})
	}
	require.Equal(t, 2, testutil.ClassificationCount(t, db, c2))

	svc := service.NewClassificationService(db, &recordingQueue{})
	res, err := svc.ClassifyCollection(ctx, ids(1, 100, 1, 101), c3, 42, true)
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Classified: 2}, res)

	assert.Equal(t, 0, testutil.ClassificationCount(t, db, c2))
	assert.Equal(t, 2, testutil.ClassificationCount(t, db, c3))
	for _, id := range ids(1, 100, 1, 101) {
		e := testutil.Reload(t, db, id)
		require.NotNil(t, e.ClassificationID)
		assert.Equal(t, c3, *e.ClassificationID)
		require.NotNil(t, e.UserID)
		assert.Equal(t, uint(42), *e.UserID)
	}
}

func TestClassifyCollection_SkipsWithoutReclassify(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c1 := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	c2 := testutil.InsertClassification(t, db, "Policy Violation", 2)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1, ClassificationID: testutil.Uint(c1)})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2})

	svc := service.NewClassificationService(db, &recordingQueue{})
	res, err := svc.ClassifyCollection(ctx, ids(1, 1, 1, 2, 9, 9), c2, 5, false)
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Classified: 1, Skipped: 2}, res)

	e := testutil.Reload(t, db, models.EventID{SID: 1, CID: 1})
	assert.Equal(t, c1, *e.ClassificationID)
	assert.Equal(t, 1, testutil.ClassificationCount(t, db, c1))
	assert.Equal(t, 1, testutil.ClassificationCount(t, db, c2))
}

func TestClassifyCollection_SameTargetTwiceCountsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "False Positive", 1)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 3, CID: 7})
	svc := service.NewClassificationService(db, &recordingQueue{})

	res, err := svc.ClassifyCollection(ctx, ids(3, 7), c, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Classified)

	res, err = svc.ClassifyCollection(ctx, ids(3, 7), c, 1, true)
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Skipped: 1}, res)
	assert.Equal(t, 1, testutil.ClassificationCount(t, db, c))
}

func TestClassifyCollection_ClearAndFloor(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "False Positive", 1)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1, ClassificationID: testutil.Uint(c)})
	// counter already drifted to zero
	require.NoError(t, db.Model(&models.Classification{}).Where("id = ?", c).Update("events_count", 0).Error)

	svc := service.NewClassificationService(db, &recordingQueue{})
	res, err := svc.ClassifyCollection(ctx, ids(1, 1), 0, 9, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Classified)

	e := testutil.Reload(t, db, models.EventID{SID: 1, CID: 1})
	assert.Nil(t, e.ClassificationID)
	assert.Equal(t, 0, testutil.ClassificationCount(t, db, c))
}

func TestClassifyCollection_UnknownTargetTouchesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1})
	svc := service.NewClassificationService(db, &recordingQueue{})

	res, err := svc.ClassifyCollection(ctx, ids(1, 1), 999, 1, true)
	assert.ErrorIs(t, err, models.ErrClassificationNotFound)
	assert.Equal(t, service.ClassifyResult{}, res)
	assert.Nil(t, testutil.Reload(t, db, models.EventID{SID: 1, CID: 1}).ClassificationID)

	queue := &recordingQueue{}
	svc = service.NewClassificationService(db, queue)
	assert.ErrorIs(t, svc.Enqueue(ctx, ids(1, 1), 999, 1, true), models.ErrClassificationNotFound)
	assert.Empty(t, queue.Jobs())
}

func TestClassificationService_EnqueueAndHandleJob(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1})

	dispatcher := jobs.NewDispatcher()
	svc := service.NewClassificationService(db, jobs.NewInlineQueue(dispatcher))
	dispatcher.Register(jobs.TypeClassifyEvents, jobs.Typed(svc.HandleJob))

	require.NoError(t, svc.Enqueue(ctx, ids(1, 1), c, 4, true))
	assert.Equal(t, 1, testutil.ClassificationCount(t, db, c))

	// a job for a classification deleted after enqueue is dropped, not retried
	assert.NoError(t, svc.HandleJob(ctx, jobs.ClassifyEvents{EventIDs: ids(1, 1), ClassificationID: 77}))
}

func TestMassAction_EmptyFilterIsRejected(t *testing.T) {
	db := testutil.NewDB(t)
	queue := &recordingQueue{}
	classifier := service.NewClassificationService(db, queue)
	svc := service.NewMassActionService(db, classifier, queue)

	_, err := svc.Enqueue(context.Background(), service.MassActionRequest{ClassificationID: 1, UserID: 1})
	assert.ErrorIs(t, err, service.ErrInsufficientCriteria)
	assert.Equal(t, "Sorry, Insufficient classification parameters submitted...", err.Error())
	assert.Empty(t, queue.Jobs())
}

func TestMassAction_EnqueueCarriesFilter(t *testing.T) {
	db := testutil.NewDB(t)
	c := testutil.InsertClassification(t, db, "Policy Violation", 1)
	queue := &recordingQueue{}
	svc := service.NewMassActionService(db, service.NewClassificationService(db, queue), queue)

	src := netip.MustParseAddr("10.0.0.5")
	ref, err := svc.Enqueue(context.Background(), service.MassActionRequest{
		ClassificationID: c,
		Filter:           search.MassFilter{IPSrc: &src},
		UserID:           3,
		Reclassify:       true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	got := queue.Jobs()
	require.Len(t, got, 1)
	job, ok := got[0].(jobs.MassClassification)
	require.True(t, ok)
	assert.Equal(t, c, job.ClassificationID)
	assert.Equal(t, uint(3), job.UserID)
	assert.Equal(t, src, *job.Filter.IPSrc)
}

func TestMassAction_RunClassifiesMatchesInBatches(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for cid := uint(1); cid <= 5; cid++ {
		testutil.InsertEvent(t, db, testutil.EventFixture{SID: 2, CID: cid, Timestamp: base, IPSrc: "10.0.0.5"})
	}
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 2, CID: 6, Timestamp: base, IPSrc: "10.0.0.6"})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 3, CID: 1, Timestamp: base, IPSrc: "10.0.0.5"})

	queue := &recordingQueue{}
	svc := service.NewMassActionService(db, service.NewClassificationService(db, queue), queue).WithBatchSize(2)

	src := netip.MustParseAddr("10.0.0.5")
	res, err := svc.Run(ctx, jobs.MassClassification{
		ClassificationID: c,
		Filter:           search.MassFilter{SensorIDs: []uint{2}, IPSrc: &src},
		UserID:           8,
	})
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Classified: 5}, res)
	assert.Equal(t, 5, testutil.ClassificationCount(t, db, c))
	assert.Nil(t, testutil.Reload(t, db, models.EventID{SID: 2, CID: 6}).ClassificationID)
	assert.Nil(t, testutil.Reload(t, db, models.EventID{SID: 3, CID: 1}).ClassificationID)

	// running again leaves everything as is
	res, err = svc.Run(ctx, jobs.MassClassification{
		ClassificationID: c,
		Filter:           search.MassFilter{SensorIDs: []uint{2}, IPSrc: &src},
		UserID:           8,
	})
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Skipped: 5}, res)
	assert.Equal(t, 5, testutil.ClassificationCount(t, db, c))
}

func TestClassifyCollection_PersistenceFailureContinues(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	for cid := uint(1); cid <= 3; cid++ {
		testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: cid})
	}
	require.NoError(t, db.Exec(`CREATE TRIGGER lock_cid_2 BEFORE UPDATE ON event
		WHEN NEW.cid = 2 BEGIN SELECT RAISE(ABORT, 'row locked'); END`).Error)

	svc := service.NewClassificationService(db, &recordingQueue{})
	res, err := svc.ClassifyCollection(ctx, ids(1, 1, 1, 2, 1, 3), c, 1, true)
	require.NoError(t, err)
	assert.Equal(t, service.ClassifyResult{Classified: 2, Failed: 1}, res)

	assert.Nil(t, testutil.Reload(t, db, models.EventID{SID: 1, CID: 2}).ClassificationID)
	e := testutil.Reload(t, db, models.EventID{SID: 1, CID: 3})
	require.NotNil(t, e.ClassificationID)
	assert.Equal(t, c, *e.ClassificationID)
	assert.Equal(t, 2, testutil.ClassificationCount(t, db, c))
}

func TestMassAction_FilterSeesEventsArrivingAfterEnqueue(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	c := testutil.InsertClassification(t, db, "Policy Violation", 1)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 4, CID: 1})

	queue := &recordingQueue{}
	svc := service.NewMassActionService(db, service.NewClassificationService(db, queue), queue)
	_, err := svc.Enqueue(ctx, service.MassActionRequest{
		ClassificationID: c,
		Filter:           search.MassFilter{SensorIDs: []uint{4}},
		UserID:           2,
	})
	require.NoError(t, err)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 4, CID: 2})

	got := queue.Jobs()
	require.Len(t, got, 1)
	require.NoError(t, svc.HandleJob(ctx, got[0].(jobs.MassClassification)))

	late := testutil.Reload(t, db, models.EventID{SID: 4, CID: 2})
	require.NotNil(t, late.ClassificationID)
	assert.Equal(t, c, *late.ClassificationID)
	assert.Equal(t, 2, testutil.ClassificationCount(t, db, c))
}

func TestMassAction_ReportsProgressBetweenBatches(t *testing.T) {
	db := testutil.NewDB(t)
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	for cid := uint(1); cid <= 5; cid++ {
		testutil.InsertEvent(t, db, testutil.EventFixture{SID: 2, CID: cid})
	}
	queue := &recordingQueue{}
	svc := service.NewMassActionService(db, service.NewClassificationService(db, queue), queue).WithBatchSize(2)

	beats := 0
	ctx := jobs.WithProgress(context.Background(), func() { beats++ })
	res, err := svc.Run(ctx, jobs.MassClassification{ClassificationID: c, Filter: search.MassFilter{SensorIDs: []uint{2}}})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Classified)
	assert.Equal(t, 2, beats)
}

func TestClassificationService_EnqueueCountsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	queue := jobs.NewDBQueue(repository.NewJobRepository(db), 3, time.Second)
	svc := service.NewClassificationService(db, queue)
	counter := monitoring.JobsEnqueuedTotal.WithLabelValues(jobs.TypeClassifyEvents)

	before := promtest.ToFloat64(counter)
	require.NoError(t, svc.Enqueue(context.Background(), ids(1, 1), c, 1, false))
	assert.Equal(t, before+1, promtest.ToFloat64(counter))
}
