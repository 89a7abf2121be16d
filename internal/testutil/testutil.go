// Package testutil provides an in-memory store and fixtures for tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
	"vmestego-backend/internal/storage"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Each connection to :memory: is its own database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// FakeObjectStore records presign and delete calls in memory.
type FakeObjectStore struct {
	mu        sync.Mutex
	Presigned []string
	Deleted   []string
	DeleteErr error
}

func (f *FakeObjectStore) PresignPut(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Presigned = append(f.Presigned, key)
	return "https://upload.test/" + key + "?signature=fake", nil
}

func (f *FakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, key)
	return nil
}

func (f *FakeObjectStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.test/bucket/" + key
}

// CreateUser inserts a user whose password is "Password1".
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	hash, salt := auth.HashPassword("Password1")
	u := models.User{Username: username, PasswordHash: hash, Salt: salt, Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateEvent inserts an event owned by creatorID (0 means external).
func CreateEvent(t testing.TB, db *gorm.DB, creatorID uint, title string, private bool) models.Event {
	t.Helper()
	ev := models.Event{
		Title:       title,
		Date:        time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		Location:    "Moscow",
		Description: title + " description",
		IsPrivate:   private,
	}
	if creatorID != 0 {
		ev.CreatorID = &creatorID
	}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("create event %s: %v", title, err)
	}
	return ev
}

// MakeFriends stores an accepted request from a to b.
func MakeFriends(t testing.TB, db *gorm.DB, a, b uint) models.FriendRequest {
	t.Helper()
	fr := models.FriendRequest{SenderID: a, ReceiverID: b, Status: models.RequestAccepted}
	if err := db.Create(&fr).Error; err != nil {
		t.Fatalf("create friend request: %v", err)
	}
	return fr
}
