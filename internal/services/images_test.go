package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/models"
	"vmestego-backend/internal/testutil"
)

func TestEventImageUploadFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Gallery", true)

	_, err := e.events.ImageUploadURL(ctx, identity(bob), ev.ID)
	wantKind(t, err, apperr.KindForbidden)

	info, err := e.events.ImageUploadURL(ctx, identity(alice), ev.ID)
	mustNoErr(t, err)
	if !strings.HasPrefix(info.Key, "events/") || !strings.HasSuffix(info.Key, ".jpg") {
		t.Fatalf("key = %q", info.Key)
	}
	if !strings.Contains(info.UploadURL, info.Key) {
		t.Fatalf("upload url %q does not target %q", info.UploadURL, info.Key)
	}

	_, err = e.events.ConfirmImage(ctx, identity(alice), ev.ID, "users/1/profile.jpg", 1)
	wantKind(t, err, apperr.KindValidation)

	img, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, info.Key, 0)
	mustNoErr(t, err)
	if img.OrderIndex != 1 || img.URL != e.store.URL(info.Key) {
		t.Fatalf("image = %+v", img)
	}
	next, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, info.Key+"-2", 0)
	mustNoErr(t, err)
	if next.OrderIndex != 2 {
		t.Fatalf("appended order = %d", next.OrderIndex)
	}
}

func TestDeleteImageRenumbers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Gallery", true)

	var ids []uint
	for i, key := range []string{"a", "b", "c", "d"} {
		img, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, eventImagePrefix(ev.ID)+key+".jpg", i+1)
		mustNoErr(t, err)
		ids = append(ids, img.ID)
	}

	wantKind(t, e.events.DeleteImage(ctx, identity(bob), ids[1]), apperr.KindForbidden)
	mustNoErr(t, e.events.DeleteImage(ctx, identity(alice), ids[1]))

	var rest []models.EventImage
	mustNoErr(t, e.db.Where("event_id = ?", ev.ID).Order("order_index").Find(&rest).Error)
	if len(rest) != 3 {
		t.Fatalf("images left = %d", len(rest))
	}
	for i, img := range rest {
		if img.OrderIndex != i+1 {
			t.Fatalf("order indices not contiguous: %+v", rest)
		}
	}
	if rest[0].ID != ids[0] || rest[1].ID != ids[2] || rest[2].ID != ids[3] {
		t.Fatalf("relative order changed: %+v", rest)
	}
	if len(e.store.Deleted) != 1 || !strings.HasSuffix(e.store.Deleted[0], "/b.jpg") {
		t.Fatalf("deleted objects = %v", e.store.Deleted)
	}

	wantKind(t, e.events.DeleteImage(ctx, identity(alice), ids[1]), apperr.KindNotFound)
}

func TestDeleteImageKeepsRowWhenStorageFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Gallery", true)
	img, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, eventImagePrefix(ev.ID)+"x.jpg", 1)
	mustNoErr(t, err)

	e.store.DeleteErr = errors.New("bucket unavailable")
	if err := e.events.DeleteImage(ctx, identity(alice), img.ID); err == nil {
		t.Fatal("expected storage error")
	}
	if n := countRows(t, e.db, &models.EventImage{}, "id = ?", img.ID); n != 1 {
		t.Fatal("image row must survive a failed object delete")
	}
}

func TestConfirmImageRejectsDuplicateKey(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Gallery", true)
	key := eventImagePrefix(ev.ID) + "cover.jpg"

	_, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, key, 1)
	mustNoErr(t, err)
	_, err = e.events.ConfirmImage(ctx, identity(alice), ev.ID, key, 2)
	wantKind(t, err, apperr.KindConflict)
	if n := countRows(t, e.db, &models.EventImage{}, "image_key = ?", key); n != 1 {
		t.Fatalf("rows for %s = %d", key, n)
	}
}

func TestConfirmImageInsertsAtIndex(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Gallery", true)
	key := func(name string) string { return eventImagePrefix(ev.ID) + name + ".jpg" }

	for _, name := range []string{"b", "c"} {
		_, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, key(name), 0)
		mustNoErr(t, err)
	}
	front, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, key("a"), 1)
	mustNoErr(t, err)
	if front.OrderIndex != 1 {
		t.Fatalf("inserted order = %d", front.OrderIndex)
	}
	tail, err := e.events.ConfirmImage(ctx, identity(alice), ev.ID, key("d"), 99)
	mustNoErr(t, err)
	if tail.OrderIndex != 4 {
		t.Fatalf("out-of-range order = %d", tail.OrderIndex)
	}

	var rows []models.EventImage
	mustNoErr(t, e.db.Where("event_id = ?", ev.ID).Order("order_index").Find(&rows).Error)
	for i, name := range []string{"a", "b", "c", "d"} {
		if rows[i].ImageKey != key(name) || rows[i].OrderIndex != i+1 {
			t.Fatalf("images = %+v", rows)
		}
	}
}
