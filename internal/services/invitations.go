package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

// InvitationService implements the event-invitation state machine.
// Revoking deletes the row.
type InvitationService struct {
	db       *gorm.DB
	store    ObjectStore
	notifier *NotificationService
}

func NewInvitationService(db *gorm.DB, store ObjectStore, notifier *NotificationService) *InvitationService {
	return &InvitationService{db: db, store: store, notifier: notifier}
}

// Invite creates a pending invitation from the caller to receiverID.
func (s *InvitationService) Invite(ctx context.Context, caller auth.Identity, eventID, receiverID uint) (InvitationResponse, error) {
	if caller.UserID == receiverID {
		return InvitationResponse{}, apperr.Conflict("cannot invite yourself")
	}

	var inv models.EventInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := loadVisible(tx, caller, eventID)
		if err != nil {
			return err
		}
		sender, err := findByID[models.User](tx, caller.UserID, "user")
		if err != nil {
			return err
		}
		if _, err := findByID[models.User](tx, receiverID, "user"); err != nil {
			return err
		}

		var n int64
		err = tx.Model(&models.EventInvitation{}).
			Where("event_id = ? AND receiver_id = ? AND status = ?", eventID, receiverID, models.RequestPending).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("check pending invitations: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("user %d already has a pending invitation to event %d", receiverID, eventID)
		}

		if err := tx.Model(&models.EventParticipation{}).
			Where("event_id = ? AND user_id = ?", eventID, receiverID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check participation: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("user %d already participates in event %d", receiverID, eventID)
		}

		inv = models.EventInvitation{EventID: eventID, SenderID: caller.UserID, ReceiverID: receiverID, Status: models.RequestPending}
		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return s.notifier.Notify(tx, receiverID, fmt.Sprintf("%s invited you to %q.", sender.Username, ev.Title))
	})
	if err != nil {
		return InvitationResponse{}, err
	}
	return s.load(ctx, inv.ID)
}

// Pending lists invitations awaiting the user's answer.
func (s *InvitationService) Pending(ctx context.Context, userID uint) ([]InvitationResponse, error) {
	return s.list(s.db.WithContext(ctx).Where("receiver_id = ? AND status = ?", userID, models.RequestPending))
}

// Sent lists every invitation the user has sent.
func (s *InvitationService) Sent(ctx context.Context, userID uint) ([]InvitationResponse, error) {
	return s.list(s.db.WithContext(ctx).Where("sender_id = ?", userID))
}

// Accept moves a pending invitation to Accepted and records the receiver as
// Going unless they already have a participation row.
func (s *InvitationService) Accept(ctx context.Context, userID, invitationID uint) error {
	return s.respond(ctx, userID, invitationID, models.RequestAccepted)
}

// Reject moves a pending invitation to Rejected.
func (s *InvitationService) Reject(ctx context.Context, userID, invitationID uint) error {
	return s.respond(ctx, userID, invitationID, models.RequestRejected)
}

func (s *InvitationService) respond(ctx context.Context, userID, invitationID uint, to models.RequestStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := findByID[models.EventInvitation](tx.Preload("Event").Preload("Receiver"), invitationID, "invitation")
		if err != nil {
			return err
		}
		if inv.ReceiverID != userID {
			return apperr.Forbidden("only the receiver can respond to invitation %d", invitationID)
		}
		if inv.Status != models.RequestPending {
			return apperr.Conflict("invitation %d is already %s", invitationID, inv.Status)
		}

		if err := tx.Model(&models.EventInvitation{}).Where("id = ?", inv.ID).Update("status", to).Error; err != nil {
			return fmt.Errorf("update invitation: %w", err)
		}

		verb := "declined"
		if to == models.RequestAccepted {
			verb = "accepted"
			var p models.EventParticipation
			err := tx.Where("user_id = ? AND event_id = ?", userID, inv.EventID).First(&p).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				p = models.EventParticipation{UserID: userID, EventID: inv.EventID, Status: models.StatusGoing}
				err = tx.Create(&p).Error
			}
			if err != nil {
				return fmt.Errorf("record participation: %w", err)
			}
		}

		return s.notifier.Notify(tx, inv.SenderID,
			fmt.Sprintf("%s %s your invitation to %q.", inv.Receiver.Username, verb, inv.Event.Title))
	})
}

// Revoke deletes an invitation. Only the sender may revoke.
func (s *InvitationService) Revoke(ctx context.Context, userID, invitationID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := findByID[models.EventInvitation](tx.Preload("Event").Preload("Sender"), invitationID, "invitation")
		if err != nil {
			return err
		}
		if inv.SenderID != userID {
			return apperr.Forbidden("only the sender can revoke invitation %d", invitationID)
		}
		if err := tx.Delete(&models.EventInvitation{}, inv.ID).Error; err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		return s.notifier.Notify(tx, inv.ReceiverID,
			fmt.Sprintf("%s revoked your invitation to %q.", inv.Sender.Username, inv.Event.Title))
	})
}

func (s *InvitationService) list(tx *gorm.DB) ([]InvitationResponse, error) {
	var rows []models.EventInvitation
	err := s.preload(tx).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	out := make([]InvitationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, s.toResponse(&rows[i]))
	}
	return out, nil
}

func (s *InvitationService) load(ctx context.Context, id uint) (InvitationResponse, error) {
	inv, err := findByID[models.EventInvitation](s.preload(s.db.WithContext(ctx)), id, "invitation")
	if err != nil {
		return InvitationResponse{}, err
	}
	return s.toResponse(&inv), nil
}

func (s *InvitationService) preload(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Sender").Preload("Receiver").
		Preload("Event.Creator").
		Preload("Event.Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") }).
		Preload("Event.Images", func(db *gorm.DB) *gorm.DB { return db.Order("event_images.order_index") })
}

func (s *InvitationService) toResponse(inv *models.EventInvitation) InvitationResponse {
	return InvitationResponse{
		ID:       inv.ID,
		Event:    toEventResponse(inv.Event, s.store, nil),
		Sender:   toUserResponse(inv.Sender, s.store),
		Receiver: toUserResponse(inv.Receiver, s.store),
		Status:   inv.Status,
	}
}
