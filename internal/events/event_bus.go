package events

import (
	"sync"
	"time"

	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/google/uuid"
)

// EventType names an audit-trail action
type EventType string

const (
	EventClassified         EventType = "event.classified"
	EventDeleted            EventType = "event.deleted"
	EventFavoriteToggled    EventType = "favorite.toggled"
	EventNoteCreated        EventType = "note.created"
	EventNoteDeleted        EventType = "note.deleted"
	EventMassActionEnqueued EventType = "mass_action.enqueued"
	EventJobFailed          EventType = "job.failed"
	EventNotificationSent   EventType = "notification.sent"
)

// Event is one audit-trail entry. Subject is the "sid-cid" of the alert it
// concerns, empty for actions not tied to a single alert.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Subject   string                 `json:"subject,omitempty"`
	UserID    uint                   `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

type EventHandler func(event Event)

// EventBus fans events out to subscribers and the configured storage
type EventBus struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
	storage     EventStorage
	live        LivePublisher
}

type EventStorage interface {
	Store(event Event) error
	Query(filters EventFilters) ([]Event, error)
}

// LivePublisher pushes events to connected consoles
type LivePublisher interface {
	PublishEvent(eventType string, data interface{})
}

type EventFilters struct {
	Types     []EventType
	Subject   string
	UserID    uint
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

var (
	globalBus     *EventBus
	globalBusOnce sync.Once
)

// GetEventBus returns the process-wide bus
func GetEventBus() *EventBus {
	globalBusOnce.Do(func() {
		globalBus = NewEventBus(nil)
	})
	return globalBus
}

func SetEventStorage(storage EventStorage) {
	GetEventBus().SetStorage(storage)
}

func SetLivePublisher(live LivePublisher) {
	bus := GetEventBus()
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.live = live
}

func NewEventBus(storage EventStorage) *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]EventHandler),
		storage:     storage,
	}
}

func (eb *EventBus) SetStorage(storage EventStorage) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.storage = storage
}

// Subscribe registers a handler for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
	logger.Debug("Event handler subscribed", map[string]interface{}{
		"event_type": eventType,
	})
}

// Publish stores the event, forwards it to live consoles and runs
// subscribers in their own goroutines.
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}

	eb.mu.RLock()
	storage := eb.storage
	live := eb.live
	handlers := eb.subscribers[event.Type]
	eb.mu.RUnlock()

	if storage != nil {
		if err := storage.Store(event); err != nil {
			logger.Error("Failed to store event", err, map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
		}
	}

	if live != nil {
		live.PublishEvent(string(event.Type), event)
	}

	for _, handler := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panicked", nil, map[string]interface{}{
						"event_type": event.Type,
						"panic":      r,
					})
				}
			}()
			h(event)
		}(handler)
	}

	logger.Debug("Event published", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"subject":    event.Subject,
	})
}

func (eb *EventBus) Query(filters EventFilters) ([]Event, error) {
	eb.mu.RLock()
	storage := eb.storage
	eb.mu.RUnlock()
	if storage == nil {
		return nil, nil
	}
	return storage.Query(filters)
}
