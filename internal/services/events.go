package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

type EventService struct {
	db    *gorm.DB
	store ObjectStore
}

func NewEventService(db *gorm.DB, store ObjectStore) *EventService {
	return &EventService{db: db, store: store}
}

// EventInput is the create/update payload after binding.
type EventInput struct {
	Title          string
	Date           time.Time
	Location       string
	Description    string
	AgeRestriction int
	Price          float64
	IsPrivate      bool
	ExternalID     *int
	CategoryIDs    []uint
	CategoryNames  []string
	// ImageKeys replaces the event's images on update when non-nil. Keys
	// must have been issued by ImageUploadURL for the event, so they are
	// rejected on create.
	ImageKeys []string
}

// withDetails preloads what toEventResponse needs.
func withDetails(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Creator").
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("event_images.order_index") })
}

// visibleTo restricts an events query to rows the caller may see: public
// events plus private ones they created, were invited to or participate in.
// Admins see everything.
func visibleTo(caller auth.Identity) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if caller.IsAdmin() {
			return tx
		}
		return tx.Where(
			"(events.is_private = ? OR events.creator_id = ? "+
				"OR EXISTS (SELECT 1 FROM event_invitations vi WHERE vi.event_id = events.id AND vi.receiver_id = ?) "+
				"OR EXISTS (SELECT 1 FROM event_participations vp WHERE vp.event_id = events.id AND vp.user_id = ?))",
			false, caller.UserID, caller.UserID, caller.UserID,
		)
	}
}

// loadVisible loads an event with details, returning NotFound when it does
// not exist and Forbidden when the caller may not see it.
func loadVisible(tx *gorm.DB, caller auth.Identity, eventID uint) (models.Event, error) {
	ev, err := findByID[models.Event](withDetails(tx), eventID, "event")
	if err != nil {
		return ev, err
	}
	var n int64
	if err := tx.Model(&models.Event{}).Scopes(visibleTo(caller)).Where("events.id = ?", eventID).Count(&n).Error; err != nil {
		return ev, fmt.Errorf("check event visibility: %w", err)
	}
	if n == 0 {
		return ev, apperr.Forbidden("event %d is private", eventID)
	}
	return ev, nil
}

func canManage(caller auth.Identity, ev *models.Event) bool {
	return caller.IsAdmin() || (ev.CreatorID != nil && *ev.CreatorID == caller.UserID)
}

// statusesFor maps event id to the user's stored participation status.
func statusesFor(tx *gorm.DB, userID uint, eventIDs []uint) (map[uint]models.ParticipationStatus, error) {
	out := make(map[uint]models.ParticipationStatus, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []models.EventParticipation
	if err := tx.Where("user_id = ? AND event_id IN ?", userID, eventIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load participation statuses: %w", err)
	}
	for _, p := range rows {
		out[p.EventID] = p.Status
	}
	return out, nil
}

func (s *EventService) respondAll(tx *gorm.DB, events []models.Event, caller *auth.Identity) ([]EventResponse, error) {
	var statuses map[uint]models.ParticipationStatus
	if caller != nil {
		ids := make([]uint, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		var err error
		if statuses, err = statusesFor(tx, caller.UserID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]EventResponse, 0, len(events))
	for i := range events {
		var status *models.ParticipationStatus
		if st, ok := statuses[events[i].ID]; ok {
			status = &st
		}
		out = append(out, toEventResponse(&events[i], s.store, status))
	}
	return out, nil
}

// Get returns one event with the caller's participation status.
func (s *EventService) Get(ctx context.Context, caller auth.Identity, eventID uint) (EventResponse, error) {
	db := s.db.WithContext(ctx)
	ev, err := loadVisible(db, caller, eventID)
	if err != nil {
		return EventResponse{}, err
	}
	resp, err := s.respondAll(db, []models.Event{ev}, &caller)
	if err != nil {
		return EventResponse{}, err
	}
	return resp[0], nil
}

// Create stores a new event owned by the caller. Only admins may publish
// public events; anything else is stored private.
func (s *EventService) Create(ctx context.Context, caller auth.Identity, in EventInput) (EventResponse, error) {
	if len(in.ImageKeys) > 0 {
		return EventResponse{}, apperr.Validation("invalid image key",
			apperr.FieldError{Field: "imageKeys", Message: "images are uploaded once the event exists"})
	}
	if !caller.IsAdmin() {
		in.IsPrivate = true
	}
	creatorID := caller.UserID
	ev := models.Event{CreatorID: &creatorID}
	applyInput(&ev, in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, err := resolveCategories(tx, in.CategoryIDs, in.CategoryNames)
		if err != nil {
			return err
		}
		if err := tx.Omit("Categories", "Images").Create(&ev).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if len(categories) > 0 {
			if err := tx.Model(&ev).Association("Categories").Append(categories); err != nil {
				return fmt.Errorf("attach categories: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return EventResponse{}, err
	}
	return s.Get(ctx, caller, ev.ID)
}

// Update replaces the event's fields and categories. Creator or admin only.
func (s *EventService) Update(ctx context.Context, caller auth.Identity, eventID uint, in EventInput) (EventResponse, error) {
	if !caller.IsAdmin() {
		in.IsPrivate = true
	}

	var dropped []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := findByID[models.Event](tx.Preload("Images"), eventID, "event")
		if err != nil {
			return err
		}
		if !canManage(caller, &ev) {
			return apperr.Forbidden("only the creator or an admin can edit event %d", eventID)
		}
		if err := checkEventImageKeys(eventID, in.ImageKeys); err != nil {
			return err
		}

		categories, err := resolveCategories(tx, in.CategoryIDs, in.CategoryNames)
		if err != nil {
			return err
		}

		images := ev.Images
		applyInput(&ev, in)
		ev.Images = nil
		err = tx.Model(&ev).
			Select("title", "date", "location", "description", "age_restriction", "price", "is_private", "external_id").
			Updates(&ev).Error
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		assoc := tx.Model(&ev).Association("Categories")
		if len(categories) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(categories)
		}
		if err != nil {
			return fmt.Errorf("replace categories: %w", err)
		}

		if in.ImageKeys == nil {
			return nil
		}
		keep := make(map[string]bool, len(in.ImageKeys))
		for _, k := range in.ImageKeys {
			keep[k] = true
		}
		for _, img := range images {
			if !keep[img.ImageKey] {
				dropped = append(dropped, img.ImageKey)
			}
		}
		if err := tx.Where("event_id = ?", ev.ID).Delete(&models.EventImage{}).Error; err != nil {
			return fmt.Errorf("clear images: %w", err)
		}
		return insertImages(tx, ev.ID, in.ImageKeys)
	})
	if err != nil {
		return EventResponse{}, err
	}

	s.deleteObjects(ctx, dropped)
	return s.Get(ctx, caller, eventID)
}

// Delete removes the event and everything hanging off it, then removes its
// image objects. Creator or admin only.
func (s *EventService) Delete(ctx context.Context, caller auth.Identity, eventID uint) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := findByID[models.Event](tx.Preload("Images"), eventID, "event")
		if err != nil {
			return err
		}
		if !canManage(caller, &ev) {
			return apperr.Forbidden("only the creator or an admin can delete event %d", eventID)
		}
		for _, img := range ev.Images {
			keys = append(keys, img.ImageKey)
		}

		comments := tx.Model(&models.Comment{}).Select("id").Where("event_id = ?", eventID)
		steps := []struct {
			what  string
			query *gorm.DB
			model any
		}{
			{"ratings", tx.Where("comment_id IN (?)", comments), &models.CommentRating{}},
			{"comments", tx.Where("event_id = ?", eventID), &models.Comment{}},
			{"invitations", tx.Where("event_id = ?", eventID), &models.EventInvitation{}},
			{"participations", tx.Where("event_id = ?", eventID), &models.EventParticipation{}},
			{"images", tx.Where("event_id = ?", eventID), &models.EventImage{}},
			{"categories", tx.Where("event_id = ?", eventID), &models.EventCategory{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete event %s: %w", step.what, err)
			}
		}
		if err := tx.Delete(&models.Event{}, eventID).Error; err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.deleteObjects(ctx, keys)
	return nil
}

// ChangeStatus records the caller's participation status. NotGoing removes
// the stored row; it is never persisted.
func (s *EventService) ChangeStatus(ctx context.Context, caller auth.Identity, eventID uint, status models.ParticipationStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadVisible(tx, caller, eventID); err != nil {
			return err
		}

		var p models.EventParticipation
		err := tx.Where("user_id = ? AND event_id = ?", caller.UserID, eventID).First(&p).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load participation: %w", err)
		}

		switch {
		case status == models.StatusNotGoing && !found:
			return nil
		case status == models.StatusNotGoing:
			if err := tx.Delete(&models.EventParticipation{}, p.ID).Error; err != nil {
				return fmt.Errorf("delete participation: %w", err)
			}
		case found:
			if err := tx.Model(&p).Update("status", status).Error; err != nil {
				return fmt.Errorf("update participation: %w", err)
			}
		default:
			p = models.EventParticipation{UserID: caller.UserID, EventID: eventID, Status: status}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("create participation: %w", err)
			}
		}
		return nil
	})
}

// Categories lists every category by name.
func (s *EventService) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *EventService) deleteObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("⚠️ failed to delete object %s: %v", key, err)
		}
	}
}

func applyInput(ev *models.Event, in EventInput) {
	ev.Title = strings.TrimSpace(in.Title)
	ev.Date = in.Date
	ev.Location = strings.TrimSpace(in.Location)
	ev.Description = in.Description
	ev.AgeRestriction = in.AgeRestriction
	ev.Price = in.Price
	ev.IsPrivate = in.IsPrivate
	ev.ExternalID = in.ExternalID
}

func insertImages(tx *gorm.DB, eventID uint, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	images := make([]models.EventImage, 0, len(keys))
	for i, key := range keys {
		images = append(images, models.EventImage{EventID: eventID, ImageKey: key, OrderIndex: i + 1})
	}
	if err := tx.Create(&images).Error; err != nil {
		return fmt.Errorf("create event images: %w", err)
	}
	return nil
}

// resolveCategories loads categories by id and upserts them by name.
// Names are trimmed and lowercased; unknown ids are NotFound.
func resolveCategories(tx *gorm.DB, ids []uint, names []string) ([]models.Category, error) {
	seen := make(map[uint]bool)
	var out []models.Category

	uniqueIDs := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniqueIDs = append(uniqueIDs, id)
		}
	}
	if len(uniqueIDs) > 0 {
		if err := tx.Where("id IN ?", uniqueIDs).Find(&out).Error; err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		if len(out) != len(uniqueIDs) {
			return nil, apperr.NotFound("one or more categories not found")
		}
	}

	normalized := make(map[string]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || normalized[name] {
			continue
		}
		normalized[name] = true

		var c models.Category
		if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return nil, fmt.Errorf("upsert category %q: %w", name, err)
		}
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out, nil
}
