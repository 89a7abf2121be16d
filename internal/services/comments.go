package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// List returns the event's comments oldest first with their scores.
func (s *CommentService) List(ctx context.Context, caller auth.Identity, eventID uint) ([]CommentResponse, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadVisible(db, caller, eventID); err != nil {
		return nil, err
	}

	var rows []models.Comment
	err := db.Preload("Author").Preload("Ratings").
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	out := make([]CommentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toCommentResponse(&rows[i], caller.UserID))
	}
	return out, nil
}

// Post adds a comment with no ratings.
func (s *CommentService) Post(ctx context.Context, caller auth.Identity, eventID uint, text string) (CommentResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CommentResponse{}, apperr.Validation("invalid comment",
			apperr.FieldError{Field: "text", Message: "must not be empty"})
	}

	db := s.db.WithContext(ctx)
	if _, err := loadVisible(db, caller, eventID); err != nil {
		return CommentResponse{}, err
	}

	c := models.Comment{EventID: eventID, AuthorID: caller.UserID, Text: text}
	if err := db.Create(&c).Error; err != nil {
		return CommentResponse{}, fmt.Errorf("create comment: %w", err)
	}
	if err := db.Preload("Author").First(&c, c.ID).Error; err != nil {
		return CommentResponse{}, fmt.Errorf("reload comment: %w", err)
	}
	return toCommentResponse(&c, caller.UserID), nil
}

// Rate stores the caller's +1 or -1 vote, replacing any earlier vote. The
// caller must be able to see the comment's event.
func (s *CommentService) Rate(ctx context.Context, caller auth.Identity, commentID uint, positive bool) (CommentResponse, error) {
	db := s.db.WithContext(ctx)
	c, err := findByID[models.Comment](db, commentID, "comment")
	if err != nil {
		return CommentResponse{}, err
	}
	if _, err := loadVisible(db, caller, c.EventID); err != nil {
		return CommentResponse{}, err
	}

	value := -1
	if positive {
		value = 1
	}
	rating := models.CommentRating{UserID: caller.UserID, CommentID: commentID, Value: value}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "comment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rating).Error
	if err != nil {
		return CommentResponse{}, fmt.Errorf("save rating: %w", err)
	}

	c, err = findByID[models.Comment](db.Preload("Author").Preload("Ratings"), commentID, "comment")
	if err != nil {
		return CommentResponse{}, err
	}
	return toCommentResponse(&c, caller.UserID), nil
}

// Delete removes a comment and its ratings. Only the author may delete.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID[models.Comment](tx, commentID, "comment")
		if err != nil {
			return err
		}
		if c.AuthorID != userID {
			return apperr.Forbidden("only the author can delete comment %d", commentID)
		}
		if err := tx.Where("comment_id = ?", c.ID).Delete(&models.CommentRating{}).Error; err != nil {
			return fmt.Errorf("delete comment ratings: %w", err)
		}
		if err := tx.Delete(&models.Comment{}, c.ID).Error; err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
}

func toCommentResponse(c *models.Comment, viewerID uint) CommentResponse {
	resp := CommentResponse{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	if c.Author != nil {
		resp.AuthorUsername = c.Author.Username
	}
	for _, r := range c.Ratings {
		resp.Rating += r.Value
		if r.UserID == viewerID {
			resp.UserRating = r.Value
		}
	}
	return resp
}
