package service

import (
	"context"
	"time"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

// FeedMessageLength caps the signature name in the "since" feed
const FeedMessageLength = 65

// ListOptions selects one page of the event list
type ListOptions struct {
	Page      int
	PerPage   int
	Sort      string
	Direction string
	Search    *search.Params
}

// Page is one page of events plus paging totals
type Page struct {
	Events      []models.Event `json:"events"`
	Total       int64          `json:"total"`
	Page        int            `json:"page"`
	PerPage     int            `json:"per_page"`
	Pages       int            `json:"pages"`
	SearchError string         `json:"search_error,omitempty"`
}

// FeedEntry is the compact form pushed to consoles polling for new alerts
type FeedEntry struct {
	SID       uint   `json:"sid"`
	CID       uint   `json:"cid"`
	Hostname  string `json:"hostname"`
	Severity  int    `json:"severity"`
	IPSrc     string `json:"ip_src"`
	IPDst     string `json:"ip_dst"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// EventService serves the read side of the console plus event deletion
type EventService struct {
	events  *repository.EventRepository
	builder *search.Builder
	now     func() time.Time
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{
		events:  repository.NewEventRepository(db),
		builder: search.NewBuilder(repository.NewSignatureRepository(db)),
		now:     time.Now,
	}
}

// WithClock fixes "now" for relative search times and feed formatting
func (s *EventService) WithClock(now func() time.Time) *EventService {
	s.now = now
	s.builder.WithClock(now)
	return s
}

// List returns a sorted, filtered page. A search field that cannot be parsed
// is logged and the clauses built before it are still applied.
func (s *EventService) List(ctx context.Context, opts ListOptions) (*Page, error) {
	q := repository.ListQuery{
		Sort:      opts.Sort,
		Direction: opts.Direction,
		Page:      opts.Page,
		PerPage:   opts.PerPage,
	}

	var searchErr string
	if opts.Search != nil && !opts.Search.Empty() {
		pred, err := s.builder.Build(ctx, *opts.Search)
		if err != nil {
			searchErr = err.Error()
			monitoring.SearchErrorsTotal.Inc()
			logger.Warn("Search parameters partially applied", map[string]interface{}{
				"error":     err.Error(),
				"predicate": pred.String(),
			})
		}
		if !pred.Empty() {
			q.Scope = pred.Apply
		}
	}

	list, total, err := s.events.List(ctx, q)
	if err != nil {
		return nil, err
	}
	page := newPage(list, total, opts.Page, opts.PerPage)
	page.SearchError = searchErr
	return page, nil
}

// Get loads one event with every relation
func (s *EventService) Get(ctx context.Context, id models.EventID) (*models.Event, error) {
	return s.events.FindByID(ctx, id)
}

// FindByIDs resolves a "sid-cid,sid-cid" list to the events that exist
func (s *EventService) FindByIDs(ctx context.Context, raw string) ([]models.Event, error) {
	ids, err := models.ParseEventIDList(raw)
	if err != nil {
		return nil, err
	}
	return s.events.FindByIDs(ctx, ids)
}

// Last returns the newest event timestamp, zero when there are no events
func (s *EventService) Last(ctx context.Context) (time.Time, error) {
	return s.events.LastTimestamp(ctx)
}

// Since returns unclassified events newer than t, newest first
func (s *EventService) Since(ctx context.Context, t time.Time) ([]FeedEntry, error) {
	list, err := s.events.Since(ctx, t)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entries := make([]FeedEntry, len(list))
	for i := range list {
		entries[i] = feedEntry(&list[i], now)
	}
	return entries, nil
}

// History pages the events the user has classified
func (s *EventService) History(ctx context.Context, userID uint, page, perPage int) (*Page, error) {
	list, total, err := s.events.ByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, err
	}
	return newPage(list, total, page, perPage), nil
}

// Activity is History for any analyst, used by the team view
func (s *EventService) Activity(ctx context.Context, userID uint, page, perPage int) (*Page, error) {
	return s.History(ctx, userID, page, perPage)
}

// Queue pages the user's favorited events
func (s *EventService) Queue(ctx context.Context, userID uint, opts ListOptions) (*Page, error) {
	list, total, err := s.events.FavoritedBy(ctx, userID, repository.ListQuery{
		Sort:      opts.Sort,
		Direction: opts.Direction,
		Page:      opts.Page,
		PerPage:   opts.PerPage,
	})
	if err != nil {
		return nil, err
	}
	return newPage(list, total, opts.Page, opts.PerPage), nil
}

// Delete removes an event and all dependent rows
func (s *EventService) Delete(ctx context.Context, id models.EventID, userID uint) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	events.PublishEventDeleted(id, userID)
	logger.Info("Event deleted", map[string]interface{}{
		"event_id": id.String(),
		"user_id":  userID,
	})
	return nil
}

func newPage(list []models.Event, total int64, page, perPage int) *Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = models.DefaultPerPageCount
	}
	if list == nil {
		list = []models.Event{}
	}
	return &Page{
		Events:  list,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
	}
}

func feedEntry(e *models.Event, now time.Time) FeedEntry {
	entry := FeedEntry{
		SID:       e.SID,
		CID:       e.CID,
		Severity:  e.Severity(),
		IPSrc:     e.SourceIP(),
		IPDst:     e.DestinationIP(),
		Timestamp: e.PrettyTime(now),
	}
	if e.Sensor != nil {
		entry.Hostname = e.Sensor.DisplayName()
	}
	if e.Signature != nil {
		entry.Message = Truncate(e.Signature.Name, FeedMessageLength)
	}
	return entry
}

// Truncate shortens s to at most n runes, ending in "..." when cut
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
