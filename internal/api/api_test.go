package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/api"
	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/internal/testutil"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
	user   *models.User
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Debug:          true,
		JWTSecret:      "test-secret",
		TokenLifetime:  time.Hour,
		DefaultPerPage: 45,
	}

	dispatcher := jobs.NewDispatcher()
	queue := jobs.NewInlineQueue(dispatcher)

	auth := service.NewAuthService(repository.NewUserRepository(db), cfg)
	settings := service.NewSettingsService(repository.NewSettingRepository(db), time.Minute)
	eventSvc := service.NewEventService(db)
	notes := service.NewNoteService(db)
	favorites := service.NewFavoriteService(db)
	classifications := service.NewClassificationService(db, queue)
	massActions := service.NewMassActionService(db, classifications, queue)
	mailer := service.NewMailerService(db, service.LogSender{}, settings, queue)
	notifications := service.NewNotificationService(db, service.LogSender{}, service.NewWebhookService(), queue)

	dispatcher.Register(jobs.TypeClassifyEvents, jobs.Typed(classifications.HandleJob))
	dispatcher.Register(jobs.TypeMassClassification, jobs.Typed(massActions.HandleJob))
	dispatcher.Register(jobs.TypeEventMailer, jobs.Typed(mailer.HandleJob))

	handlers := api.Handlers{
		Auth:           api.NewAuthHandler(auth),
		Events:         api.NewEventHandler(eventSvc, notes, favorites, settings, mailer, auth),
		Classification: api.NewClassificationHandler(classifications, massActions),
		Favorites:      api.NewFavoriteHandler(favorites),
		Notes:          api.NewNoteHandler(notes),
		Lookup:         api.NewLookupHandler(service.NewLookupService(settings, nil)),
		Notifications:  api.NewNotificationHandler(notifications),
		Settings:       api.NewSettingsHandler(settings),
		Audit:          api.NewAuditHandler(events.NewEventBus(events.NewDatabaseEventStorage(db))),
		Health:         api.NewHealthHandler(repository.NewSQLiteProvider(db), "test"),
		Stream:         api.NewStreamHub(eventSvc, time.Second),
	}

	user := testutil.InsertUser(t, db, "analyst@example.com")
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	return &testServer{
		router: api.SetupRouter(handlers, auth, cfg),
		db:     db,
		auth:   auth,
		user:   user,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthEndpointsNeedNoToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := s.do(t, http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginAndProfile(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "analyst@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "analyst@example.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.NotContains(t, w.Body.String(), "password")

	s.token = token
	w = s.do(t, http.MethodPut, "/api/auth/profile", map[string]interface{}{"per_page_count": 501})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/auth/profile", map[string]interface{}{"name": "Ana", "per_page_count": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(10), decode(t, w)["per_page_count"])
}

func TestListEventsUsesUserPageSizeAndMarksFavorites(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Model(s.user).Update("per_page_count", 2).Error)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for cid := uint(1); cid <= 3; cid++ {
		testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: cid, Timestamp: base.Add(time.Duration(cid) * time.Minute)})
	}

	w := s.do(t, http.MethodPost, "/api/events/1/3/favorite", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["per_page"])
	assert.Len(t, body["events"], 2)
	assert.Equal(t, []interface{}{"1-3"}, body["favorited"])

	w = s.do(t, http.MethodGet, "/api/events/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestListEventsReportsSearchErrors(t *testing.T) {
	s := newTestServer(t)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 1})

	w := s.do(t, http.MethodGet, "/api/events?ip_src=not-an-ip", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["search_error"], "ip_src")
}

func TestListEventsIgnoresMalformedNumbers(t *testing.T) {
	s := newTestServer(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 1, Timestamp: day})
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 2, Timestamp: day.Add(48 * time.Hour)})

	w := s.do(t, http.MethodGet, "/api/events?timestamp=2024-03-10&sid=abc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	assert.NotContains(t, body, "search_error")

	for _, q := range []string{"src_port=http", "severity=high", "classification_id=x", "notes_count=many", "users_count=-"} {
		w = s.do(t, http.MethodGet, "/api/events?"+q, nil)
		assert.Equal(t, http.StatusOK, w.Code, q)
	}
}

func TestClassifyRunsQueuedJob(t *testing.T) {
	s := newTestServer(t)
	target := testutil.InsertClassification(t, s.db, "Attempted Recon", 6)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 7})

	w := s.do(t, http.MethodPost, "/api/events/classify", map[string]interface{}{
		"events":            "1-7",
		"classification_id": target,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Body.String())

	e := testutil.Reload(t, s.db, models.EventID{SID: 1, CID: 7})
	require.NotNil(t, e.ClassificationID)
	assert.Equal(t, target, *e.ClassificationID)
	require.NotNil(t, e.UserID)
	assert.Equal(t, s.user.ID, *e.UserID)

	w = s.do(t, http.MethodPost, "/api/events/classify", map[string]interface{}{"events": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMassActionWithoutCriteriaAnswersMessage(t *testing.T) {
	s := newTestServer(t)
	target := testutil.InsertClassification(t, s.db, "Policy Violation", 7)

	w := s.do(t, http.MethodPost, "/api/events/mass-action", map[string]interface{}{
		"classification_id": target,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ErrInsufficientCriteria.Error(), decode(t, w)["error"])

	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 4, CID: 1})
	w = s.do(t, http.MethodPost, "/api/events/mass-action", map[string]interface{}{
		"classification_id": target,
		"sensor_ids":        []uint{4},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["reference"])
	assert.Equal(t, 1, testutil.ClassificationCount(t, s.db, target))

	// 167772161 is 10.0.0.1
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 5, CID: 1, IPSrc: "10.0.0.1", IPDst: "10.0.0.9"})
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 5, CID: 2, IPSrc: "10.0.0.2", IPDst: "10.0.0.9"})
	w = s.do(t, http.MethodPost, "/api/events/mass-action", map[string]interface{}{
		"classification_id": target,
		"use_ip_src":        true,
		"ip_src":            "167772161",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, testutil.ClassificationCount(t, s.db, target))
	assert.Nil(t, testutil.Reload(t, s.db, models.EventID{SID: 5, CID: 2}).ClassificationID)

	// an ip_src without its flag is ignored, leaving no criteria
	w = s.do(t, http.MethodPost, "/api/events/mass-action", map[string]interface{}{
		"classification_id": target,
		"ip_src":            "10.0.0.2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ErrInsufficientCriteria.Error(), decode(t, w)["error"])
}

func TestShowEventFormats(t *testing.T) {
	s := newTestServer(t)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{
		SID: 2, CID: 9, SigName: "ET SCAN Nmap", IPSrc: "10.0.0.1", IPDst: "10.0.0.2", Proto: "tcp",
		SrcPort: 4444, DstPort: 80, Payload: "GET /",
	})

	w := s.do(t, http.MethodGet, "/api/events/2/9", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, false, body["favorite"])
	summary, ok := body["event"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", summary["src_ip"])

	w = s.do(t, http.MethodGet, "/api/events/2/9?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ET SCAN Nmap")

	w = s.do(t, http.MethodGet, "/api/events/2/9?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = s.do(t, http.MethodGet, "/api/events/2/10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotesLifecycle(t *testing.T) {
	s := newTestServer(t)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 1})

	w := s.do(t, http.MethodPost, "/api/events/1/1/notes", map[string]string{"body": "looks like a scanner"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	noteID := decode(t, w)["id"]

	w = s.do(t, http.MethodGet, "/api/events/1/1/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["pages"])

	other := testutil.InsertUser(t, s.db, "other@example.com")
	otherToken, err := s.auth.GenerateToken(other)
	require.NoError(t, err)
	owner := s.token
	s.token = otherToken
	w = s.do(t, http.MethodDelete, "/api/notes/"+jsonNumber(noteID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.token = owner
	w = s.do(t, http.MethodDelete, "/api/notes/"+jsonNumber(noteID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, testutil.Reload(t, s.db, models.EventID{SID: 1, CID: 1}).NotesCount)
}

func TestMassFavoritesAndDelete(t *testing.T) {
	s := newTestServer(t)
	for cid := uint(1); cid <= 2; cid++ {
		testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 3, CID: cid})
	}

	w := s.do(t, http.MethodPost, "/api/events/favorites", map[string]string{"events": "3-1,3-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, testutil.Reload(t, s.db, models.EventID{SID: 3, CID: 2}).UsersCount)

	w = s.do(t, http.MethodDelete, "/api/events/favorites", map[string]string{"events": "3-2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, testutil.Reload(t, s.db, models.EventID{SID: 3, CID: 2}).UsersCount)

	w = s.do(t, http.MethodDelete, "/api/events/3/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/events/3/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLastAndSince(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/events/last", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["time"])

	ts := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 1, Timestamp: ts})

	w = s.do(t, http.MethodGet, "/api/events/last", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(ts.Unix()), decode(t, w)["time"])

	w = s.do(t, http.MethodGet, "/api/events/since?timestamp=2024-03-01T13:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["events"], 1)

	w = s.do(t, http.MethodGet, "/api/events/since?timestamp=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, s.db.Model(s.user).Update("admin", true).Error)
	s.user.Admin = true
	token, err := s.auth.GenerateToken(s.user)
	require.NoError(t, err)
	s.token = token

	w = s.do(t, http.MethodPut, "/api/settings", map[string]string{models.SettingLookups: "true"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings, ok := decode(t, w)["settings"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "true", settings[models.SettingLookups])

	w = s.do(t, http.MethodGet, "/api/audit?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLookupDisabledByDefault(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/lookup?address=127.0.0.1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPacketCaptureNotConfigured(t *testing.T) {
	s := newTestServer(t)
	testutil.InsertEvent(t, s.db, testutil.EventFixture{SID: 1, CID: 1, IPSrc: "10.0.0.1", IPDst: "10.0.0.2"})

	w := s.do(t, http.MethodGet, "/api/events/1/1/packet-capture", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_CONFIGURED", decode(t, w)["code"])
}

func TestStreamHubDropsWhenBacklogFull(t *testing.T) {
	hub := api.NewStreamHub(service.NewEventService(testutil.NewDB(t)), time.Second)
	for i := 0; i < 300; i++ {
		hub.PublishEvent("classification.updated", i)
	}
	assert.Equal(t, 0, hub.ClientCount())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream hub did not stop")
	}
}

func jsonNumber(v interface{}) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
