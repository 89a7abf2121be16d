package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/models"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Notify appends an unread message for userID. It writes through tx so the
// message commits or rolls back with the caller's change.
func (s *NotificationService) Notify(tx *gorm.DB, userID uint, text string) error {
	n := models.Notification{UserID: userID, Text: text}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the user's notifications newest first, optionally filtered by
// read state.
func (s *NotificationService) List(ctx context.Context, userID uint, isRead *bool) ([]NotificationResponse, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if isRead != nil {
		tx = tx.Where("is_read = ?", *isRead)
	}

	var rows []models.Notification
	if err := tx.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationResponse{ID: n.ID, Text: n.Text, CreatedAt: n.CreatedAt, IsRead: n.IsRead})
	}
	return out, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	n, err := findByID[models.Notification](s.db.WithContext(ctx), notificationID, "notification")
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.Forbidden("notification %d belongs to another user", notificationID)
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
