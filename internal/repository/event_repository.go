package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

// SortColumns maps the allow-listed sort keys to SQL and the join they need
var SortColumns = map[string]string{
	"sid":          "event.sid",
	"cid":          "event.cid",
	"ip_src":       "iphdr.ip_src",
	"ip_dst":       "iphdr.ip_dst",
	"severity":     "signature.sig_priority",
	"signature":    "signature.sig_name",
	"sig_priority": "signature.sig_priority",
	"timestamp":    "event.timestamp",
}

const (
	joinIPHeader  = "LEFT JOIN iphdr ON iphdr.sid = event.sid AND iphdr.cid = event.cid"
	joinSignature = "LEFT JOIN signature ON signature.sig_id = event.signature"
)

// ListQuery describes one page of events
type ListQuery struct {
	Scope     func(*gorm.DB) *gorm.DB
	Sort      string
	Direction string
	Page      int
	PerPage   int
}

// SortClause returns a safe ORDER BY for the requested column and direction,
// defaulting to timestamp desc.
func SortClause(sort, direction string) (column string, dir string) {
	if _, ok := SortColumns[sort]; !ok {
		sort = "timestamp"
	}
	dir = strings.ToLower(direction)
	if dir != "asc" && dir != "desc" {
		dir = "desc"
	}
	return sort, dir
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

// FindByID loads an event with all of its relations
func (r *EventRepository) FindByID(ctx context.Context, id models.EventID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("sid = ? AND cid = ?", id.SID, id.CID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrEventNotFound
		}
		return nil, err
	}
	events := []models.Event{event}
	if err := r.LoadRelations(ctx, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// FindBare loads only the event row, without relations
func (r *EventRepository) FindBare(ctx context.Context, id models.EventID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("sid = ? AND cid = ?", id.SID, id.CID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindByIDs returns the events that exist for the given keys, in key order.
// Missing keys are silently dropped.
func (r *EventRepository) FindByIDs(ctx context.Context, ids []models.EventID) ([]models.Event, error) {
	if len(ids) == 0 {
		return []models.Event{}, nil
	}
	query, args := keyCondition("event", ids)
	var rows []models.Event
	if err := r.db.WithContext(ctx).Where(query, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[models.EventID]models.Event, len(rows))
	for _, e := range rows {
		byID[e.ID()] = e
	}
	events := make([]models.Event, 0, len(rows))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			events = append(events, e)
		}
	}
	if err := r.LoadRelations(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// List returns one sorted page plus the total number of matching events
func (r *EventRepository) List(ctx context.Context, q ListQuery) ([]models.Event, int64, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Event{})
		if q.Scope != nil {
			tx = tx.Scopes(q.Scope)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort, dir := SortClause(q.Sort, q.Direction)
	tx := base().Select("event.*")
	switch sort {
	case "ip_src", "ip_dst":
		tx = tx.Joins(joinIPHeader)
	case "severity", "signature", "sig_priority":
		tx = tx.Joins(joinSignature)
	}
	tx = tx.Order(fmt.Sprintf("%s %s", SortColumns[sort], dir)).
		Order("event.sid " + dir).
		Order("event.cid " + dir)

	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = models.DefaultPerPageCount
	}
	tx = tx.Offset((page - 1) * perPage).Limit(perPage)

	var events []models.Event
	if err := tx.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	if err := r.LoadRelations(ctx, events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// LastTimestamp returns the timestamp of the newest event, zero if none
func (r *EventRepository) LastTimestamp(ctx context.Context) (time.Time, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Order("timestamp DESC").Limit(1).Find(&event).Error
	if err != nil {
		return time.Time{}, err
	}
	return event.Timestamp, nil
}

// Since returns unclassified events newer than t, newest first
func (r *EventRepository) Since(ctx context.Context, t time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("timestamp > ? AND classification_id IS NULL", t).
		Order("timestamp DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	if err := r.LoadRelations(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// NewerThan returns up to limit events with timestamp > t, oldest first.
// Used by the notification scanner to walk forward from a watermark.
func (r *EventRepository) NewerThan(ctx context.Context, t time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("timestamp > ?", t).
		Order("timestamp ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	if err := r.LoadRelations(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// ByUser pages events whose classifying user is userID, newest first
func (r *EventRepository) ByUser(ctx context.Context, userID uint, page, perPage int) ([]models.Event, int64, error) {
	return r.List(ctx, ListQuery{
		Scope: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("event.user_id = ?", userID)
		},
		Sort:      "timestamp",
		Direction: "desc",
		Page:      page,
		PerPage:   perPage,
	})
}

// FavoritedBy pages the events a user has starred
func (r *EventRepository) FavoritedBy(ctx context.Context, userID uint, q ListQuery) ([]models.Event, int64, error) {
	inner := q.Scope
	q.Scope = func(tx *gorm.DB) *gorm.DB {
		if inner != nil {
			tx = tx.Scopes(inner)
		}
		return tx.Where("EXISTS (SELECT 1 FROM favorites f WHERE f.sid = event.sid AND f.cid = event.cid AND f.user_id = ?)", userID)
	}
	return r.List(ctx, q)
}

// Batch returns up to limit event ids matching scope that sort after the given
// key. Keyset pagination keeps results stable while rows are being updated.
func (r *EventRepository) Batch(ctx context.Context, scope func(*gorm.DB) *gorm.DB, after models.EventID, limit int) ([]models.EventID, error) {
	tx := r.db.WithContext(ctx).Model(&models.Event{})
	if scope != nil {
		tx = tx.Scopes(scope)
	}
	var rows []eventKey
	err := tx.Select("event.sid AS sid, event.cid AS cid").
		Where("(event.sid > ? OR (event.sid = ? AND event.cid > ?))", after.SID, after.SID, after.CID).
		Order("event.sid ASC").
		Order("event.cid ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]models.EventID, len(rows))
	for i, row := range rows {
		ids[i] = models.EventID{SID: row.SID, CID: row.CID}
	}
	return ids, nil
}

type eventKey struct {
	SID uint `gorm:"column:sid"`
	CID uint `gorm:"column:cid"`
}

// SwapClassification moves an event from the expected classification to next
// and records the acting user. It reports false, without error, when the row's
// classification no longer equals expected.
func (r *EventRepository) SwapClassification(ctx context.Context, id models.EventID, expected, next *uint, userID uint) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Event{}).Where("sid = ? AND cid = ?", id.SID, id.CID)
	if expected == nil {
		tx = tx.Where("classification_id IS NULL")
	} else {
		tx = tx.Where("classification_id = ?", *expected)
	}
	res := tx.Updates(map[string]interface{}{
		"classification_id": next,
		"user_id":           userID,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EventRepository) IncrementNotes(ctx context.Context, id models.EventID) error {
	return increment(r.db.WithContext(ctx), &models.Event{}, "notes_count", "sid = ? AND cid = ?", id.SID, id.CID)
}

func (r *EventRepository) DecrementNotes(ctx context.Context, id models.EventID) error {
	return decrement(r.db.WithContext(ctx), &models.Event{}, "notes_count", "sid = ? AND cid = ?", id.SID, id.CID)
}

func (r *EventRepository) IncrementUsers(ctx context.Context, id models.EventID) error {
	return increment(r.db.WithContext(ctx), &models.Event{}, "users_count", "sid = ? AND cid = ?", id.SID, id.CID)
}

func (r *EventRepository) DecrementUsers(ctx context.Context, id models.EventID) error {
	return decrement(r.db.WithContext(ctx), &models.Event{}, "users_count", "sid = ? AND cid = ?", id.SID, id.CID)
}

// Delete removes an event and every dependent row. The classification and
// signature counters are decremented in the same transaction.
func (r *EventRepository) Delete(ctx context.Context, id models.EventID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		err := tx.Where("sid = ? AND cid = ?", id.SID, id.CID).First(&event).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrEventNotFound
			}
			return err
		}

		if event.IsClassified() {
			if err := decrement(tx, &models.Classification{}, "events_count", "id = ?", *event.ClassificationID); err != nil {
				return err
			}
		}
		if err := decrement(tx, &models.Signature{}, "events_count", "sig_id = ?", event.SigID); err != nil {
			return err
		}

		// Favorites also feed the per-user counter
		var favUsers []uint
		if err := tx.Model(&models.Favorite{}).Where("sid = ? AND cid = ?", id.SID, id.CID).Pluck("user_id", &favUsers).Error; err != nil {
			return err
		}
		for _, uid := range favUsers {
			if err := decrement(tx, &models.User{}, "favorites_count", "id = ?", uid); err != nil {
				return err
			}
		}

		dependents := []interface{}{
			&models.Favorite{},
			&models.Note{},
			&models.IPHeader{},
			&models.TCPHeader{},
			&models.UDPHeader{},
			&models.ICMPHeader{},
			&models.Payload{},
		}
		for _, model := range dependents {
			if err := tx.Where("sid = ? AND cid = ?", id.SID, id.CID).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Where("sid = ? AND cid = ?", id.SID, id.CID).Delete(&models.Event{}).Error
	})
}

// LoadRelations fills sensor, signature, classification, user, headers and
// payload for a slice of events with one query per table.
func (r *EventRepository) LoadRelations(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	ids := make([]models.EventID, len(events))
	sensorIDs := map[uint]bool{}
	sigIDs := map[uint]bool{}
	classIDs := map[uint]bool{}
	userIDs := map[uint]bool{}
	for i := range events {
		ids[i] = events[i].ID()
		sensorIDs[events[i].SID] = true
		sigIDs[events[i].SigID] = true
		if events[i].ClassificationID != nil {
			classIDs[*events[i].ClassificationID] = true
		}
		if events[i].UserID != nil {
			userIDs[*events[i].UserID] = true
		}
	}
	cond, args := keyCondition("", ids)

	var sensors []models.Sensor
	if err := db.Where("sid IN ?", keys(sensorIDs)).Find(&sensors).Error; err != nil {
		return err
	}
	var sigs []models.Signature
	if err := db.Where("sig_id IN ?", keys(sigIDs)).Find(&sigs).Error; err != nil {
		return err
	}
	var classes []models.Classification
	if len(classIDs) > 0 {
		if err := db.Where("id IN ?", keys(classIDs)).Find(&classes).Error; err != nil {
			return err
		}
	}
	var users []models.User
	if len(userIDs) > 0 {
		if err := db.Where("id IN ?", keys(userIDs)).Find(&users).Error; err != nil {
			return err
		}
	}
	var ips []models.IPHeader
	if err := db.Where(cond, args...).Find(&ips).Error; err != nil {
		return err
	}
	var tcps []models.TCPHeader
	if err := db.Where(cond, args...).Find(&tcps).Error; err != nil {
		return err
	}
	var udps []models.UDPHeader
	if err := db.Where(cond, args...).Find(&udps).Error; err != nil {
		return err
	}
	var icmps []models.ICMPHeader
	if err := db.Where(cond, args...).Find(&icmps).Error; err != nil {
		return err
	}
	var payloads []models.Payload
	if err := db.Where(cond, args...).Find(&payloads).Error; err != nil {
		return err
	}

	sensorBy := map[uint]*models.Sensor{}
	for i := range sensors {
		sensorBy[sensors[i].SID] = &sensors[i]
	}
	sigBy := map[uint]*models.Signature{}
	for i := range sigs {
		sigBy[sigs[i].SigID] = &sigs[i]
	}
	classBy := map[uint]*models.Classification{}
	for i := range classes {
		classBy[classes[i].ID] = &classes[i]
	}
	userBy := map[uint]*models.User{}
	for i := range users {
		userBy[users[i].ID] = &users[i]
	}
	ipBy := map[models.EventID]*models.IPHeader{}
	for i := range ips {
		ipBy[models.EventID{SID: ips[i].SID, CID: ips[i].CID}] = &ips[i]
	}
	tcpBy := map[models.EventID]*models.TCPHeader{}
	for i := range tcps {
		tcpBy[models.EventID{SID: tcps[i].SID, CID: tcps[i].CID}] = &tcps[i]
	}
	udpBy := map[models.EventID]*models.UDPHeader{}
	for i := range udps {
		udpBy[models.EventID{SID: udps[i].SID, CID: udps[i].CID}] = &udps[i]
	}
	icmpBy := map[models.EventID]*models.ICMPHeader{}
	for i := range icmps {
		icmpBy[models.EventID{SID: icmps[i].SID, CID: icmps[i].CID}] = &icmps[i]
	}
	payloadBy := map[models.EventID]*models.Payload{}
	for i := range payloads {
		payloadBy[models.EventID{SID: payloads[i].SID, CID: payloads[i].CID}] = &payloads[i]
	}

	for i := range events {
		e := &events[i]
		id := e.ID()
		e.Sensor = sensorBy[e.SID]
		e.Signature = sigBy[e.SigID]
		if e.ClassificationID != nil {
			e.Classification = classBy[*e.ClassificationID]
		}
		if e.UserID != nil {
			e.User = userBy[*e.UserID]
		}
		e.IP = ipBy[id]
		e.TCP = tcpBy[id]
		e.UDP = udpBy[id]
		e.ICMP = icmpBy[id]
		e.Payload = payloadBy[id]
	}
	return nil
}

// keyCondition builds "(sid = ? AND cid IN ?) OR ..." grouped by sensor, which
// every supported backend understands (unlike row-value IN lists).
func keyCondition(table string, ids []models.EventID) (string, []interface{}) {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	bySensor := map[uint][]uint{}
	var order []uint
	for _, id := range ids {
		if _, ok := bySensor[id.SID]; !ok {
			order = append(order, id.SID)
		}
		bySensor[id.SID] = append(bySensor[id.SID], id.CID)
	}
	parts := make([]string, 0, len(order))
	args := make([]interface{}, 0, len(order)*2)
	for _, sid := range order {
		parts = append(parts, fmt.Sprintf("(%ssid = ? AND %scid IN ?)", prefix, prefix))
		args = append(args, sid, bySensor[sid])
	}
	return strings.Join(parts, " OR "), args
}

func keys(m map[uint]bool) []uint {
	out := make([]uint, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
