package events

import (
	"errors"

	"github.com/eventdesk/eventdesk/pkg/logger"
)

// MultiEventStorage writes the audit trail to every backend. Reads go to the
// primary (the first backend) and fall back to the mirrors in order.
type MultiEventStorage struct {
	primary EventStorage
	mirrors []EventStorage
}

func NewMultiEventStorage(primary EventStorage, mirrors ...EventStorage) *MultiEventStorage {
	return &MultiEventStorage{primary: primary, mirrors: mirrors}
}

// Store fails only when the primary fails; mirror errors are logged
func (s *MultiEventStorage) Store(event Event) error {
	for _, m := range s.mirrors {
		if err := m.Store(event); err != nil {
			logger.Warn("Audit mirror write failed", map[string]interface{}{
				"entry_id": event.ID,
				"type":     event.Type,
				"error":    err.Error(),
			})
		}
	}
	return s.primary.Store(event)
}

func (s *MultiEventStorage) Query(filters EventFilters) ([]Event, error) {
	list, err := s.primary.Query(filters)
	if err == nil {
		return list, nil
	}
	errs := []error{err}
	for i, m := range s.mirrors {
		logger.Warn("Audit query falling back to mirror", map[string]interface{}{
			"mirror": i,
			"error":  errs[len(errs)-1].Error(),
		})
		list, err := m.Query(filters)
		if err == nil {
			return list, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
