package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
classifications:
  - name: Unauthorized Root Access
    description: Category I
    hotkey: 1
  - name: False Positive
    hotkey: 8
    locked: true
settings:
  lookups: "false"
admin:
  email: root@example.com
  password: changeme
`

func TestParseRejectsIncompleteEntries(t *testing.T) {
	_, err := Parse([]byte("classifications:\n  - hotkey: 1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("admin:\n  email: a@example.com\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("classifications: [\n"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.NoError(t, Apply(ctx, db, f))

	// console edits must survive a second run
	settings := repository.NewSettingRepository(db)
	require.NoError(t, settings.Set(ctx, models.SettingLookups, "true"))
	require.NoError(t, Apply(ctx, db, f))

	list, err := repository.NewClassificationRepository(db).FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Unauthorized Root Access", list[0].Name)
	assert.True(t, list[1].Locked)

	value, ok, err := settings.Get(ctx, models.SettingLookups)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)

	users := repository.NewUserRepository(db)
	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	admin, err := users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, admin.Admin)
	assert.True(t, admin.CheckPassword("changeme"))
}

func TestLoad(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Empty(t, f.Classifications)

	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	f, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Classifications, 2)
	assert.Equal(t, "false", f.Settings[models.SettingLookups])
}
