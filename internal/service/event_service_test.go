package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_ListAppliesPartialSearch(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for cid := uint(1); cid <= 3; cid++ {
		testutil.InsertEvent(t, db, testutil.EventFixture{SID: 2, CID: cid, Timestamp: base.Add(time.Duration(cid) * time.Minute)})
	}
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 3, CID: 1, Timestamp: base})

	svc := service.NewEventService(db)
	page, err := svc.List(ctx, service.ListOptions{
		Page:    1,
		PerPage: 2,
		Search:  &search.Params{SensorID: 2, IPSrc: "10.0.0.300"},
	})
	require.NoError(t, err)
	assert.Contains(t, page.SearchError, "ip_src")
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Events, 2)
	for _, e := range page.Events {
		assert.Equal(t, uint(2), e.SID)
	}

	page, err = svc.List(ctx, service.ListOptions{Search: &search.Params{}})
	require.NoError(t, err)
	assert.Empty(t, page.SearchError)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, models.DefaultPerPageCount, page.PerPage)
}

func TestEventService_SinceBuildsFeed(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	long := strings.Repeat("A", 80)
	classified := testutil.InsertClassification(t, db, "False Positive", 1)

	testutil.InsertEvent(t, db, testutil.EventFixture{
		SID: 1, CID: 1, Timestamp: now.Add(-time.Hour), SigName: long, Priority: 1,
		IPSrc: "10.0.0.1", IPDst: "10.0.0.2",
	})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2, Timestamp: now.Add(-30 * time.Minute), ClassificationID: testutil.Uint(classified)})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 3, Timestamp: now.Add(-48 * time.Hour)})

	svc := service.NewEventService(db).WithClock(func() time.Time { return now })
	feed, err := svc.Since(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Len(t, feed, 1)

	entry := feed[0]
	assert.Equal(t, uint(1), entry.CID)
	assert.Equal(t, "sensor-1", entry.Hostname)
	assert.Equal(t, "10.0.0.1", entry.IPSrc)
	assert.Equal(t, "2:00 PM", entry.Timestamp)
	assert.Len(t, []rune(entry.Message), service.FeedMessageLength)
	assert.True(t, strings.HasSuffix(entry.Message, "..."))

	last, err := svc.Last(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(now.Add(-30*time.Minute)))
}

func TestEventService_FindByIDsAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2})
	svc := service.NewEventService(db)

	found, err := svc.FindByIDs(ctx, "1-1,1-2,7-7")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = svc.FindByIDs(ctx, "1-x")
	assert.ErrorIs(t, err, models.ErrInvalidEventID)

	require.NoError(t, svc.Delete(ctx, models.EventID{SID: 1, CID: 1}, 3))
	_, err = svc.Get(ctx, models.EventID{SID: 1, CID: 1})
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, models.EventID{SID: 1, CID: 1}, 3), models.ErrEventNotFound)
}

func TestEventService_HistoryAndQueue(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, db, "analyst@example.com")
	c := testutil.InsertClassification(t, db, "Attempted Recon", 1)
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2})

	_, err := service.NewClassificationService(db, &recordingQueue{}).
		ClassifyCollection(ctx, ids(1, 1), c, user.ID, false)
	require.NoError(t, err)
	_, err = service.NewFavoriteService(db).Toggle(ctx, models.EventID{SID: 1, CID: 2}, user.ID)
	require.NoError(t, err)

	svc := service.NewEventService(db)
	history, err := svc.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, history.Events, 1)
	assert.Equal(t, uint(1), history.Events[0].CID)

	queue, err := svc.Queue(ctx, user.ID, service.ListOptions{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, queue.Events, 1)
	assert.Equal(t, uint(2), queue.Events[0].CID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", service.Truncate("short", 10))
	assert.Equal(t, "abcdefg...", service.Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "äöü...", service.Truncate("äöüßäöüß", 6))
	assert.Equal(t, "ab", service.Truncate("abcdef", 2))
}
