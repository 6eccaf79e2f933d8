package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteRepository_InsertRemoveAreIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewFavoriteRepository(db)
	ctx := context.Background()
	user := testutil.InsertUser(t, db, "a@example.com")
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1})
	id := models.EventID{SID: 1, CID: 1}

	ok, err := repo.Insert(ctx, id, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(ctx, id, user.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second insert is a no-op")

	n, err := repo.CountByEvent(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	marked, err := repo.FavoritedIDs(ctx, user.ID, []models.EventID{id, {SID: 1, CID: 2}})
	require.NoError(t, err)
	assert.Equal(t, map[models.EventID]bool{id: true}, marked)

	ok, err = repo.Remove(ctx, id, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Remove(ctx, id, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignatureRepository_ResolveSignatures(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewSignatureRepository(db)
	ctx := context.Background()
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1, SigID: 10, SigName: "ET SCAN Nmap Scripting Engine", Priority: 2})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 2, SigID: 11, SigName: "ET SCAN Potential SSH Scan", Priority: 1})
	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 3, SigID: 12, SigName: "GPL ICMP PING", Priority: 1})

	ids, err := repo.ResolveSignatures(ctx, "scan", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11}, ids)

	ids, err = repo.ResolveSignatures(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{11, 12}, ids)

	ids, err = repo.ResolveSignatures(ctx, "scan", 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{11}, ids)

	ids, err = repo.ResolveSignatures(ctx, "nothing like this", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClassificationRepository_UpsertAndRecount(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewClassificationRepository(db)
	ctx := context.Background()

	c := &models.Classification{Name: "Unauthorized Root Access", Hotkey: 1}
	require.NoError(t, repo.Upsert(ctx, c))
	require.NotZero(t, c.ID)

	again := &models.Classification{Name: "Unauthorized Root Access", Hotkey: 5, Description: "Cat I"}
	require.NoError(t, repo.Upsert(ctx, again))
	assert.Equal(t, c.ID, again.ID)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Hotkey)
	assert.Equal(t, "Cat I", got.Description)

	testutil.InsertEvent(t, db, testutil.EventFixture{SID: 1, CID: 1, ClassificationID: testutil.Uint(c.ID)})
	require.NoError(t, db.Model(&models.Classification{}).Where("id = ?", c.ID).Update("events_count", 42).Error)
	require.NoError(t, repo.Recount(ctx))
	assert.Equal(t, 1, testutil.ClassificationCount(t, db, c.ID))

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, models.ErrClassificationNotFound)
}

func TestSettingRepository_SetOverwrites(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewSettingRepository(db)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, models.SettingSignatureLookup)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, models.SettingSignatureLookup, "https://a/$$gid$$/$$sid$$"))
	require.NoError(t, repo.Set(ctx, models.SettingSignatureLookup, "https://b/$$sid$$"))

	v, ok, err := repo.Get(ctx, models.SettingSignatureLookup)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://b/$$sid$$", v)
}

func TestJobRepository_ClaimRetryComplete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Claim(ctx, now, time.Minute)
	assert.ErrorIs(t, err, repository.ErrNoJob)

	require.NoError(t, repo.Create(ctx, &models.Job{ID: "a", Type: "test", Status: models.JobPending, RunAt: now, EnqueuedAt: now}))
	require.NoError(t, repo.Create(ctx, &models.Job{ID: "b", Type: "test", Status: models.JobPending, RunAt: now.Add(time.Hour), EnqueuedAt: now}))

	job, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a", job.ID)
	assert.Equal(t, 1, job.Attempts)

	_, err = repo.Claim(ctx, now, time.Minute)
	assert.ErrorIs(t, err, repository.ErrNoJob, "b is not due and a is locked")

	// a stale lock is reclaimed
	job, err = repo.Claim(ctx, now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a", job.ID)
	assert.Equal(t, 2, job.Attempts)

	require.NoError(t, repo.Retry(ctx, "a", now.Add(3*time.Minute), "boom"))
	require.NoError(t, repo.Complete(ctx, "a"))

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, got.Status)
	assert.Equal(t, "boom", got.LastError)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.JobDone])
	assert.EqualValues(t, 1, counts[models.JobPending])
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://snorby:xxxxx@db:5432/events", repository.RedactDSN("postgres://snorby:s3cret@db:5432/events"))
	assert.Equal(t, "****", repository.RedactDSN("host=db user=snorby password=s3cret"))
	assert.Equal(t, "****", repository.RedactDSN("::not a url"))
}
