// Package services holds the business rules: visibility, the friend-request
// and invitation state machines, comments, users and image uploads.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
)

// ObjectStore is the object storage boundary used for images.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// findByID loads a row by primary key and maps a missing row to NotFound.
func findByID[T any](tx *gorm.DB, id uint, what string) (T, error) {
	var row T
	if err := tx.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("%s %d not found", what, id), err)
		}
		return row, fmt.Errorf("load %s %d: %w", what, id, err)
	}
	return row, nil
}

// escapeLike makes user text safe inside a LIKE pattern using '\' as escape.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Page bounds.
const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

func sortByUsername(friends []FriendResponse) {
	sort.Slice(friends, func(i, j int) bool {
		return strings.ToLower(friends[i].Username) < strings.ToLower(friends[j].Username)
	})
}
