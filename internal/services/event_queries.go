package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

// EventFilter narrows the owner-scoped event feeds.
type EventFilter struct {
	Query       string
	CategoryIDs []uint
	Offset      int
	Limit       int
}

// ListQuery selects between the generic public listing and the
// participation-scoped listing.
type ListQuery struct {
	UserID *uint
	Status *models.ParticipationStatus
}

// List returns public events, or, when a status is given together with a
// target user (explicit or the caller), the events that user marked with
// that status. Private events only appear when callers list their own
// participations.
func (s *EventService) List(ctx context.Context, caller *auth.Identity, q ListQuery) ([]EventResponse, error) {
	db := s.db.WithContext(ctx)

	target := q.UserID
	if target == nil && caller != nil {
		target = &caller.UserID
	}

	tx := withDetails(db).Model(&models.Event{})
	if target != nil && q.Status != nil {
		includePrivate := q.UserID == nil && caller != nil
		tx = tx.Joins("JOIN event_participations ep ON ep.event_id = events.id").
			Where("ep.user_id = ? AND ep.status = ?", *target, *q.Status)
		if !includePrivate {
			tx = tx.Where("events.is_private = ?", false)
		}
	} else {
		tx = tx.Where("events.is_private = ?", false)
	}

	var events []models.Event
	if err := tx.Order("events.date ASC, events.id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.respondAll(db, events, caller)
}

// CreatedPrivate lists private events the caller created.
func (s *EventService) CreatedPrivate(ctx context.Context, caller auth.Identity, f EventFilter) ([]EventResponse, error) {
	return s.feed(ctx, caller, f, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("events.is_private = ? AND events.creator_id = ?", true, caller.UserID)
	})
}

// JoinedPrivate lists private events the caller accepted an invitation to.
func (s *EventService) JoinedPrivate(ctx context.Context, caller auth.Identity, f EventFilter) ([]EventResponse, error) {
	return s.feed(ctx, caller, f, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("events.is_private = ?", true).
			Where("EXISTS (SELECT 1 FROM event_invitations ji WHERE ji.event_id = events.id AND ji.receiver_id = ? AND ji.status = ?)",
				caller.UserID, models.RequestAccepted)
	})
}

// CreatedPublic lists public events the caller created. Non-admins cannot
// own public events and get an empty list.
func (s *EventService) CreatedPublic(ctx context.Context, caller auth.Identity, f EventFilter) ([]EventResponse, error) {
	if !caller.IsAdmin() {
		return []EventResponse{}, nil
	}
	return s.feed(ctx, caller, f, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("events.is_private = ? AND events.creator_id = ?", false, caller.UserID)
	})
}

// OtherAdminsPublic lists public events the caller did not create,
// externally sourced ones included.
func (s *EventService) OtherAdminsPublic(ctx context.Context, caller auth.Identity, f EventFilter) ([]EventResponse, error) {
	return s.feed(ctx, caller, f, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("events.is_private = ? AND (events.creator_id IS NULL OR events.creator_id <> ?)", false, caller.UserID)
	})
}

func (s *EventService) feed(ctx context.Context, caller auth.Identity, f EventFilter, scope func(*gorm.DB) *gorm.DB) ([]EventResponse, error) {
	db := s.db.WithContext(ctx)
	tx := withDetails(db).Model(&models.Event{}).Scopes(scope)

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		like := "%" + escapeLike(q) + "%"
		tx = tx.Where(
			`(LOWER(events.title) LIKE ? ESCAPE '\' OR LOWER(events.description) LIKE ? ESCAPE '\' OR LOWER(events.location) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	if len(f.CategoryIDs) > 0 {
		sub := db.Model(&models.EventCategory{}).Select("event_id").Where("category_id IN ?", f.CategoryIDs)
		tx = tx.Where("events.id IN (?)", sub)
	}

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var events []models.Event
	err := tx.Order("events.date ASC, events.id ASC").Offset(offset).Limit(clampLimit(f.Limit)).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.respondAll(db, events, &caller)
}

// FriendsEvents groups the events the caller's friends participate in,
// limited to events the caller can see.
func (s *EventService) FriendsEvents(ctx context.Context, caller auth.Identity) ([]FriendEventResponse, error) {
	db := s.db.WithContext(ctx)
	ids, err := friendIDs(db, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []FriendEventResponse{}, nil
	}

	var parts []models.EventParticipation
	err = db.Joins("JOIN events ON events.id = event_participations.event_id").
		Scopes(visibleTo(caller)).
		Where("event_participations.user_id IN ?", ids).
		Preload("User").
		Preload("Event.Creator").
		Preload("Event.Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") }).
		Preload("Event.Images", func(db *gorm.DB) *gorm.DB { return db.Order("event_images.order_index") }).
		Order("events.date ASC, events.id ASC, event_participations.user_id ASC").
		Find(&parts).Error
	if err != nil {
		return nil, fmt.Errorf("list friends' participations: %w", err)
	}

	events := make([]models.Event, 0)
	friends := make(map[uint][]UserResponse)
	for _, p := range parts {
		if _, ok := friends[p.EventID]; !ok {
			events = append(events, *p.Event)
		}
		friends[p.EventID] = append(friends[p.EventID], toUserResponse(p.User, s.store))
	}

	responses, err := s.respondAll(db, events, &caller)
	if err != nil {
		return nil, err
	}
	out := make([]FriendEventResponse, 0, len(responses))
	for _, ev := range responses {
		out = append(out, FriendEventResponse{Event: ev, Friends: friends[ev.ID]})
	}
	return out, nil
}

// FriendStatuses reports every friend of the caller with their status for
// the event, nil when they have none.
func (s *EventService) FriendStatuses(ctx context.Context, caller auth.Identity, eventID uint) ([]FriendEventStatusResponse, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadVisible(db, caller, eventID); err != nil {
		return nil, err
	}

	ids, err := friendIDs(db, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []FriendEventStatusResponse{}, nil
	}

	var users []models.User
	if err := db.Where("id IN ?", ids).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	var parts []models.EventParticipation
	if err := db.Where("event_id = ? AND user_id IN ?", eventID, ids).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("load friends' statuses: %w", err)
	}
	statuses := make(map[uint]models.ParticipationStatus, len(parts))
	for _, p := range parts {
		statuses[p.UserID] = p.Status
	}

	out := make([]FriendEventStatusResponse, 0, len(users))
	for i := range users {
		entry := FriendEventStatusResponse{Friend: toUserResponse(&users[i], s.store)}
		if st, ok := statuses[users[i].ID]; ok {
			entry.EventStatus = &st
		}
		out = append(out, entry)
	}
	return out, nil
}
