// Package testutil builds throwaway SQLite databases and alert fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory database private to the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection, otherwise every pooled conn gets its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.NewSQLiteProvider(db).Migrate(repository.AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// EventFixture describes one alert to insert
type EventFixture struct {
	SID, CID         uint
	SigID            uint
	SigName          string
	Priority         int
	ClassificationID *uint
	UserID           *uint
	NotesCount       int
	UsersCount       int
	Timestamp        time.Time
	IPSrc, IPDst     string
	Proto            string
	SrcPort, DstPort int
	Payload          string
}

// InsertEvent writes the event, its sensor, signature and headers, bumping
// the signature and sensor counters the way the importer would.
func InsertEvent(t testing.TB, db *gorm.DB, f EventFixture) models.Event {
	t.Helper()
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	if f.SigID == 0 {
		f.SigID = 1
	}
	if f.SigName == "" {
		f.SigName = "ET POLICY test signature"
	}

	sensor := models.Sensor{SID: f.SID, Hostname: fmt.Sprintf("sensor-%d", f.SID)}
	require.NoError(t, db.Where(models.Sensor{SID: f.SID}).FirstOrCreate(&sensor).Error)
	sig := models.Signature{SigID: f.SigID, Name: f.SigName, Priority: f.Priority}
	require.NoError(t, db.Where(models.Signature{SigID: f.SigID}).FirstOrCreate(&sig).Error)

	event := models.Event{
		SID:              f.SID,
		CID:              f.CID,
		SigID:            f.SigID,
		ClassificationID: f.ClassificationID,
		UserID:           f.UserID,
		NotesCount:       f.NotesCount,
		UsersCount:       f.UsersCount,
		Timestamp:        f.Timestamp,
	}
	require.NoError(t, db.Create(&event).Error)
	require.NoError(t, db.Model(&models.Signature{}).Where("sig_id = ?", f.SigID).
		UpdateColumn("events_count", gorm.Expr("events_count + 1")).Error)
	require.NoError(t, db.Model(&models.Sensor{}).Where("sid = ?", f.SID).
		UpdateColumn("events_count", gorm.Expr("events_count + 1")).Error)
	if f.ClassificationID != nil {
		require.NoError(t, db.Model(&models.Classification{}).Where("id = ?", *f.ClassificationID).
			UpdateColumn("events_count", gorm.Expr("events_count + 1")).Error)
	}

	if f.IPSrc != "" || f.IPDst != "" {
		ip := models.IPHeader{SID: f.SID, CID: f.CID, IPSrc: ipValue(t, f.IPSrc), IPDst: ipValue(t, f.IPDst)}
		require.NoError(t, db.Create(&ip).Error)
	}
	switch f.Proto {
	case models.ProtocolTCP:
		require.NoError(t, db.Create(&models.TCPHeader{SID: f.SID, CID: f.CID, SrcPort: f.SrcPort, DstPort: f.DstPort}).Error)
	case models.ProtocolUDP:
		require.NoError(t, db.Create(&models.UDPHeader{SID: f.SID, CID: f.CID, SrcPort: f.SrcPort, DstPort: f.DstPort}).Error)
	case models.ProtocolICMP:
		require.NoError(t, db.Create(&models.ICMPHeader{SID: f.SID, CID: f.CID, Type: 8}).Error)
	}
	if f.Payload != "" {
		require.NoError(t, db.Create(&models.Payload{SID: f.SID, CID: f.CID, Data: f.Payload}).Error)
	}
	return event
}

// InsertClassification creates a classification and returns its id
func InsertClassification(t testing.TB, db *gorm.DB, name string, hotkey int) uint {
	t.Helper()
	c := models.Classification{Name: name, Hotkey: hotkey}
	require.NoError(t, db.Create(&c).Error)
	return c.ID
}

// InsertUser creates an enabled analyst with password "secret"
func InsertUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Enabled: true}
	require.NoError(t, u.SetPassword("secret"))
	require.NoError(t, db.Create(u).Error)
	return u
}

// Reload fetches the current row for an event
func Reload(t testing.TB, db *gorm.DB, id models.EventID) models.Event {
	t.Helper()
	var e models.Event
	require.NoError(t, db.Where("sid = ? AND cid = ?", id.SID, id.CID).First(&e).Error)
	return e
}

// ClassificationCount reads a classification's events_count
func ClassificationCount(t testing.TB, db *gorm.DB, id uint) int {
	t.Helper()
	var c models.Classification
	require.NoError(t, db.First(&c, "id = ?", id).Error)
	return c.EventsCount
}

func Uint(v uint) *uint { return &v }

func ipValue(t testing.TB, s string) int64 {
	if s == "" {
		return 0
	}
	v, err := models.ParseIPv4(s)
	require.NoError(t, err)
	return int64(v)
}
