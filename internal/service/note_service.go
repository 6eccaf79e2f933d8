package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"gorm.io/gorm"
)

// NotesPerPage is fixed for the event detail view
const NotesPerPage = 5

var (
	ErrEmptyNote      = errors.New("note body is empty")
	ErrNotePermission = errors.New("only the author or an administrator can delete a note")
)

// NoteService manages analyst notes and the event's notes_count
type NoteService struct {
	db     *gorm.DB
	notes  *repository.NoteRepository
	events *repository.EventRepository
}

func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{
		db:     db,
		notes:  repository.NewNoteRepository(db),
		events: repository.NewEventRepository(db),
	}
}

// Create attaches a note and bumps the event's counter
func (s *NoteService) Create(ctx context.Context, id models.EventID, userID uint, body string) (*models.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyNote
	}

	note := &models.Note{SID: id.SID, CID: id.CID, UserID: userID, Body: body}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventRepo := s.events.WithTx(tx)
		if _, err := eventRepo.FindBare(ctx, id); err != nil {
			return err
		}
		if err := s.notes.WithTx(tx).Create(ctx, note); err != nil {
			return err
		}
		return eventRepo.IncrementNotes(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	events.PublishNoteCreated(note)
	return note, nil
}

// Delete removes a note. Only its author or an administrator may do so.
func (s *NoteService) Delete(ctx context.Context, noteID, userID uint, isAdmin bool) error {
	var note *models.Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		notes := s.notes.WithTx(tx)
		var err error
		note, err = notes.FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		if note.UserID != userID && !isAdmin {
			return ErrNotePermission
		}
		if err := notes.Delete(ctx, noteID); err != nil {
			return err
		}
		return s.events.WithTx(tx).DecrementNotes(ctx, note.EventID())
	})
	if err != nil {
		return err
	}

	events.PublishNoteDeleted(note, userID)
	return nil
}

// List pages an event's notes, newest first
func (s *NoteService) List(ctx context.Context, id models.EventID, page int) ([]models.Note, int64, error) {
	return s.notes.Page(ctx, id, page, NotesPerPage)
}

// All returns every note of an event, oldest first, for reports
func (s *NoteService) All(ctx context.Context, id models.EventID) ([]models.Note, error) {
	return s.notes.ForEvent(ctx, id)
}
