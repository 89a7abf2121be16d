package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

func eventImagePrefix(eventID uint) string {
	return fmt.Sprintf("events/%d/", eventID)
}

func profileImageKey(userID uint) string {
	return fmt.Sprintf("users/%d/profile.jpg", userID)
}

func isEventImageKey(eventID uint, key string) bool {
	name, ok := strings.CutPrefix(key, eventImagePrefix(eventID))
	return ok && name != "" && !strings.Contains(name, "/")
}

// checkEventImageKeys accepts only distinct keys issued for the event.
func checkEventImageKeys(eventID uint, keys []string) error {
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !isEventImageKey(eventID, key) {
			return apperr.Validation("invalid image key",
				apperr.FieldError{Field: "imageKeys", Message: fmt.Sprintf("%q was not issued for this event", key)})
		}
		if seen[key] {
			return apperr.Validation("invalid image key",
				apperr.FieldError{Field: "imageKeys", Message: fmt.Sprintf("%q is listed twice", key)})
		}
		seen[key] = true
	}
	return nil
}

// checkProfileImageKey accepts the user's own profile key or an empty key.
func checkProfileImageKey(userID uint, key string) error {
	if key != "" && key != profileImageKey(userID) {
		return apperr.Validation("invalid image key",
			apperr.FieldError{Field: "imageKey", Message: "must be the key issued for this user"})
	}
	return nil
}

// ImageUploadURL presigns an upload for a new image of the event.
func (s *EventService) ImageUploadURL(ctx context.Context, caller auth.Identity, eventID uint) (UploadInfo, error) {
	ev, err := findByID[models.Event](s.db.WithContext(ctx), eventID, "event")
	if err != nil {
		return UploadInfo{}, err
	}
	if !canManage(caller, &ev) {
		return UploadInfo{}, apperr.Forbidden("only the creator or an admin can upload images for event %d", eventID)
	}

	key := eventImagePrefix(eventID) + uuid.NewString() + ".jpg"
	url, err := s.store.PresignPut(ctx, key)
	if err != nil {
		return UploadInfo{}, fmt.Errorf("presign upload: %w", err)
	}
	return UploadInfo{UploadURL: url, Key: key}, nil
}

// ConfirmImage records an uploaded image at orderIndex, shifting later
// images down. A non-positive or out-of-range orderIndex appends it.
func (s *EventService) ConfirmImage(ctx context.Context, caller auth.Identity, eventID uint, key string, orderIndex int) (ImageResponse, error) {
	if !isEventImageKey(eventID, key) {
		return ImageResponse{}, apperr.Validation("invalid image key",
			apperr.FieldError{Field: "imageKey", Message: "must be a key issued for this event"})
	}

	var img models.EventImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := findByID[models.Event](tx, eventID, "event")
		if err != nil {
			return err
		}
		if !canManage(caller, &ev) {
			return apperr.Forbidden("only the creator or an admin can add images to event %d", eventID)
		}

		var n int64
		if err := tx.Model(&models.EventImage{}).Where("image_key = ?", key).Count(&n).Error; err != nil {
			return fmt.Errorf("check image key: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("image %s is already attached", key)
		}

		var last int
		if err := tx.Model(&models.EventImage{}).Where("event_id = ?", eventID).
			Select("COALESCE(MAX(order_index), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("load image order: %w", err)
		}
		if orderIndex <= 0 || orderIndex > last {
			orderIndex = last + 1
		} else {
			err := tx.Model(&models.EventImage{}).
				Where("event_id = ? AND order_index >= ?", eventID, orderIndex).
				Update("order_index", gorm.Expr("order_index + 1")).Error
			if err != nil {
				return fmt.Errorf("shift image order: %w", err)
			}
		}

		img = models.EventImage{EventID: eventID, ImageKey: key, OrderIndex: orderIndex}
		if err := tx.Create(&img).Error; err != nil {
			return fmt.Errorf("create event image: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImageResponse{}, err
	}
	return ImageResponse{ID: img.ID, URL: s.store.URL(img.ImageKey), OrderIndex: img.OrderIndex}, nil
}

// DeleteImage removes the object and its row, then renumbers the event's
// remaining images 1..N. A storage failure aborts the delete.
func (s *EventService) DeleteImage(ctx context.Context, caller auth.Identity, imageID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		img, err := findByID[models.EventImage](tx, imageID, "image")
		if err != nil {
			return err
		}
		ev, err := findByID[models.Event](tx, img.EventID, "event")
		if err != nil {
			return err
		}
		if !canManage(caller, &ev) {
			return apperr.Forbidden("only the creator or an admin can delete images of event %d", ev.ID)
		}

		if err := tx.Delete(&models.EventImage{}, img.ID).Error; err != nil {
			return fmt.Errorf("delete event image: %w", err)
		}
		if err := s.store.Delete(ctx, img.ImageKey); err != nil {
			return fmt.Errorf("delete image object: %w", err)
		}

		var rest []models.EventImage
		if err := tx.Where("event_id = ?", ev.ID).Order("order_index, id").Find(&rest).Error; err != nil {
			return fmt.Errorf("load event images: %w", err)
		}
		for i, r := range rest {
			if r.OrderIndex == i+1 {
				continue
			}
			if err := tx.Model(&models.EventImage{}).Where("id = ?", r.ID).Update("order_index", i+1).Error; err != nil {
				return fmt.Errorf("renumber event images: %w", err)
			}
		}
		return nil
	})
}
