package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/models"
)

// FriendService implements the friend-request state machine. Friendship is
// derived: two users are friends while a request between them is Accepted.
type FriendService struct {
	db       *gorm.DB
	store    ObjectStore
	notifier *NotificationService
}

func NewFriendService(db *gorm.DB, store ObjectStore, notifier *NotificationService) *FriendService {
	return &FriendService{db: db, store: store, notifier: notifier}
}

// requestBetween finds the request linking a and b in either direction.
func requestBetween(tx *gorm.DB, a, b uint) (*models.FriendRequest, error) {
	var fr models.FriendRequest
	err := tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		First(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load friend request: %w", err)
	}
	return &fr, nil
}

// friendIDs returns the ids of every user with an accepted request to or
// from userID.
func friendIDs(tx *gorm.DB, userID uint) ([]uint, error) {
	var rows []models.FriendRequest
	err := tx.Select("sender_id", "receiver_id").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.RequestAccepted).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	ids := make([]uint, 0, len(rows))
	for _, fr := range rows {
		if fr.SenderID == userID {
			ids = append(ids, fr.ReceiverID)
		} else {
			ids = append(ids, fr.SenderID)
		}
	}
	return ids, nil
}

// Send creates a pending request from senderID to receiverID. A previously
// rejected row between the pair is reopened instead of duplicated.
func (s *FriendService) Send(ctx context.Context, senderID, receiverID uint) (FriendRequestResponse, error) {
	if senderID == receiverID {
		return FriendRequestResponse{}, apperr.Conflict("cannot send a friend request to yourself")
	}

	var fr models.FriendRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sender, err := findByID[models.User](tx, senderID, "user")
		if err != nil {
			return err
		}
		if _, err := findByID[models.User](tx, receiverID, "user"); err != nil {
			return err
		}

		existing, err := requestBetween(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		switch {
		case existing == nil:
			fr = models.FriendRequest{SenderID: senderID, ReceiverID: receiverID, Status: models.RequestPending}
			if err := tx.Create(&fr).Error; err != nil {
				return fmt.Errorf("create friend request: %w", err)
			}
		case existing.Status == models.RequestAccepted:
			return apperr.Conflict("users are already friends")
		case existing.Status == models.RequestPending:
			return apperr.Conflict("a friend request between these users is already pending")
		default:
			fr = *existing
			fr.SenderID = senderID
			fr.ReceiverID = receiverID
			fr.Status = models.RequestPending
			fr.CreatedAt = time.Now()
			if err := tx.Save(&fr).Error; err != nil {
				return fmt.Errorf("reopen friend request: %w", err)
			}
		}

		return s.notifier.Notify(tx, receiverID, fmt.Sprintf("You received a friend request from %s.", sender.Username))
	})
	if err != nil {
		return FriendRequestResponse{}, err
	}
	return s.load(ctx, fr.ID)
}

// Accept marks the request accepted. Only the receiver may accept, from
// Pending or after an earlier rejection.
func (s *FriendService) Accept(ctx context.Context, userID, requestID uint) error {
	return s.respond(ctx, userID, requestID, models.RequestAccepted)
}

// Reject marks a pending request rejected. Only the receiver may reject.
func (s *FriendService) Reject(ctx context.Context, userID, requestID uint) error {
	return s.respond(ctx, userID, requestID, models.RequestRejected)
}

func (s *FriendService) respond(ctx context.Context, userID, requestID uint, to models.RequestStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fr, err := findByID[models.FriendRequest](tx.Preload("Receiver"), requestID, "friend request")
		if err != nil {
			return err
		}
		if fr.ReceiverID != userID {
			return apperr.Forbidden("only the receiver can respond to friend request %d", requestID)
		}

		allowed := fr.Status == models.RequestPending
		if to == models.RequestAccepted && fr.Status == models.RequestRejected {
			allowed = true
		}
		if !allowed {
			return apperr.Conflict("friend request %d is already %s", requestID, fr.Status)
		}

		if err := tx.Model(&models.FriendRequest{}).Where("id = ?", fr.ID).Update("status", to).Error; err != nil {
			return fmt.Errorf("update friend request: %w", err)
		}

		verb := "accepted"
		if to == models.RequestRejected {
			verb = "rejected"
		}
		return s.notifier.Notify(tx, fr.SenderID, fmt.Sprintf("%s %s your friend request.", fr.Receiver.Username, verb))
	})
}

// Revoke deletes a pending request. Only the sender may revoke.
func (s *FriendService) Revoke(ctx context.Context, userID, requestID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fr, err := findByID[models.FriendRequest](tx.Preload("Sender"), requestID, "friend request")
		if err != nil {
			return err
		}
		if fr.SenderID != userID {
			return apperr.Forbidden("only the sender can revoke friend request %d", requestID)
		}
		if fr.Status != models.RequestPending {
			return apperr.Conflict("friend request %d is %s and cannot be revoked", requestID, fr.Status)
		}
		if err := tx.Delete(&models.FriendRequest{}, fr.ID).Error; err != nil {
			return fmt.Errorf("delete friend request: %w", err)
		}
		return s.notifier.Notify(tx, fr.ReceiverID, fmt.Sprintf("%s revoked their friend request.", fr.Sender.Username))
	})
}

// Remove ends a friendship. The row is kept: it becomes Pending when the
// remover sent the original request and Rejected when they received it.
func (s *FriendService) Remove(ctx context.Context, userID, friendID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fr, err := requestBetween(tx, userID, friendID)
		if err != nil {
			return err
		}
		if fr == nil || fr.Status != models.RequestAccepted {
			return apperr.NotFound("user %d is not a friend", friendID)
		}

		next := models.RequestRejected
		if fr.SenderID == userID {
			next = models.RequestPending
		}
		if err := tx.Model(&models.FriendRequest{}).Where("id = ?", fr.ID).Update("status", next).Error; err != nil {
			return fmt.Errorf("update friend request: %w", err)
		}

		remover, err := findByID[models.User](tx, userID, "user")
		if err != nil {
			return err
		}
		return s.notifier.Notify(tx, friendID, fmt.Sprintf("%s removed you from friends.", remover.Username))
	})
}

// Friends lists the user's friends ordered by username.
func (s *FriendService) Friends(ctx context.Context, userID uint) ([]FriendResponse, error) {
	var rows []models.FriendRequest
	err := s.db.WithContext(ctx).Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.RequestAccepted).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	out := make([]FriendResponse, 0, len(rows))
	for _, fr := range rows {
		friend := fr.Sender
		if fr.SenderID == userID {
			friend = fr.Receiver
		}
		out = append(out, FriendResponse{
			RequestID: fr.ID,
			UserID:    friend.ID,
			Username:  friend.Username,
			ImageURL:  s.store.URL(friend.ImageKey),
		})
	}
	sortByUsername(out)
	return out, nil
}

// Pending lists requests waiting for the user's answer, newest first.
func (s *FriendService) Pending(ctx context.Context, userID uint) ([]FriendRequestResponse, error) {
	return s.list(s.db.WithContext(ctx).Where("receiver_id = ? AND status = ?", userID, models.RequestPending))
}

// Sent lists every request the user has sent, newest first.
func (s *FriendService) Sent(ctx context.Context, userID uint) ([]FriendRequestResponse, error) {
	return s.list(s.db.WithContext(ctx).Where("sender_id = ?", userID))
}

// Between returns the request senderID sent to receiverID, or nil.
func (s *FriendService) Between(ctx context.Context, senderID, receiverID uint) (*FriendRequestResponse, error) {
	var fr models.FriendRequest
	err := s.db.WithContext(ctx).Preload("Sender").Preload("Receiver").
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		First(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load friend request: %w", err)
	}
	resp := s.toResponse(&fr)
	return &resp, nil
}

func (s *FriendService) list(tx *gorm.DB) ([]FriendRequestResponse, error) {
	var rows []models.FriendRequest
	if err := tx.Preload("Sender").Preload("Receiver").Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	out := make([]FriendRequestResponse, 0, len(rows))
	for i := range rows {
		out = append(out, s.toResponse(&rows[i]))
	}
	return out, nil
}

func (s *FriendService) load(ctx context.Context, id uint) (FriendRequestResponse, error) {
	fr, err := findByID[models.FriendRequest](s.db.WithContext(ctx).Preload("Sender").Preload("Receiver"), id, "friend request")
	if err != nil {
		return FriendRequestResponse{}, err
	}
	return s.toResponse(&fr), nil
}

func (s *FriendService) toResponse(fr *models.FriendRequest) FriendRequestResponse {
	return FriendRequestResponse{
		ID:        fr.ID,
		Sender:    toUserResponse(fr.Sender, s.store),
		Receiver:  toUserResponse(fr.Receiver, s.store),
		CreatedAt: fr.CreatedAt,
		Status:    fr.Status,
	}
}
