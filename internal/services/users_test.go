package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/models"
	"vmestego-backend/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, err := e.users.Register(ctx, RegisterInput{Username: "alice", Password: "Secret123"})
	mustNoErr(t, err)
	if token == "" {
		t.Fatal("empty token")
	}

	_, err = e.users.Register(ctx, RegisterInput{Username: "alice", Password: "other"})
	wantKind(t, err, apperr.KindConflict)

	_, err = e.users.Login(ctx, "alice", "wrong")
	wantKind(t, err, apperr.KindUnauthorized)
	_, err = e.users.Login(ctx, "nobody", "Secret123")
	wantKind(t, err, apperr.KindUnauthorized)

	token, err = e.users.Login(ctx, "alice", "Secret123")
	mustNoErr(t, err)
	if token == "" {
		t.Fatal("empty token")
	}

	_, err = e.users.Register(ctx, RegisterInput{Username: "   ", Password: "Secret123"})
	wantKind(t, err, apperr.KindValidation)
	_, err = e.users.Register(ctx, RegisterInput{Username: "  alice ", Password: "other"})
	wantKind(t, err, apperr.KindConflict)

	var u models.User
	mustNoErr(t, e.db.Where("username = ?", "alice").First(&u).Error)
	if u.Role != models.RoleUser || u.PasswordHash == "Secret123" || u.Salt == "" {
		t.Fatalf("stored user = %+v", u)
	}
}

func TestSearchUsersExcludesCaller(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, e.db, "anna", models.RoleUser)
	for i := 1; i <= 5; i++ {
		testutil.CreateUser(t, e.db, fmt.Sprintf("Anton%d", i), models.RoleUser)
	}
	testutil.CreateUser(t, e.db, "boris", models.RoleUser)

	page, err := e.users.Search(ctx, me.ID, "AN", 1, 2)
	mustNoErr(t, err)
	if page.TotalCount != 5 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	for _, u := range page.Items {
		if u.ID == me.ID {
			t.Fatal("caller must be excluded")
		}
	}

	last, err := e.users.Search(ctx, me.ID, "an", 3, 2)
	mustNoErr(t, err)
	if len(last.Items) != 1 {
		t.Fatalf("last page = %+v", last)
	}

	all, err := e.users.Search(ctx, me.ID, "", 0, 0)
	mustNoErr(t, err)
	if all.TotalCount != 6 {
		t.Fatalf("total without filter = %d", all.TotalCount)
	}
}

func TestUpdateUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)
	admin := testutil.CreateUser(t, e.db, "root", models.RoleAdmin)

	name := "bob"
	_, err := e.users.Update(ctx, identity(alice), alice.ID, UpdateUserInput{Username: &name})
	wantKind(t, err, apperr.KindConflict)

	_, err = e.users.Update(ctx, identity(bob), alice.ID, UpdateUserInput{Username: &name})
	wantKind(t, err, apperr.KindForbidden)

	newName, newPass := "alicia", "N3wPass"
	got, err := e.users.Update(ctx, identity(alice), alice.ID, UpdateUserInput{Username: &newName, Password: &newPass})
	mustNoErr(t, err)
	if got.Username != "alicia" {
		t.Fatalf("updated = %+v", got)
	}
	_, err = e.users.Login(ctx, "alicia", "N3wPass")
	mustNoErr(t, err)

	key := profileImageKey(bob.ID)
	got, err = e.users.Update(ctx, identity(admin), bob.ID, UpdateUserInput{ImageKey: &key})
	mustNoErr(t, err)
	if got.ImageURL != e.store.URL(key) {
		t.Fatalf("image url = %q", got.ImageURL)
	}

	blank := "   "
	_, err = e.users.Update(ctx, identity(bob), bob.ID, UpdateUserInput{Username: &blank})
	wantKind(t, err, apperr.KindValidation)
}

func TestUserImageKeyMustBeOwn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	mallory := testutil.CreateUser(t, e.db, "mallory", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, alice.ID, "Party", false)

	_, err := e.users.Register(ctx, RegisterInput{Username: "eve", Password: "Secret123", ImageKey: profileImageKey(alice.ID)})
	wantKind(t, err, apperr.KindValidation)

	for _, key := range []string{profileImageKey(alice.ID), eventImagePrefix(ev.ID) + "cover.jpg"} {
		_, err = e.users.Update(ctx, identity(mallory), mallory.ID, UpdateUserInput{ImageKey: &key})
		wantKind(t, err, apperr.KindValidation)
	}

	none := ""
	_, err = e.users.Update(ctx, identity(mallory), mallory.ID, UpdateUserInput{ImageKey: &none})
	mustNoErr(t, err)
	mustNoErr(t, e.db.Model(&models.User{}).Where("id = ?", mallory.ID).
		Update("image_key", profileImageKey(alice.ID)).Error)
	mustNoErr(t, e.users.Delete(ctx, identity(mallory), mallory.ID))
	if len(e.store.Deleted) != 0 {
		t.Fatalf("deleted objects = %v", e.store.Deleted)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)
	testutil.MakeFriends(t, e.db, alice.ID, bob.ID)
	mine := testutil.CreateEvent(t, e.db, alice.ID, "Alice's party", true)
	theirs := testutil.CreateEvent(t, e.db, 0, "Parade", false)

	_, err := e.invitations.Invite(ctx, identity(alice), mine.ID, bob.ID)
	mustNoErr(t, err)
	mustNoErr(t, e.events.ChangeStatus(ctx, identity(alice), theirs.ID, models.StatusGoing))
	c, err := e.comments.Post(ctx, identity(alice), theirs.ID, "hi")
	mustNoErr(t, err)
	_, err = e.comments.Rate(ctx, identity(bob), c.ID, true)
	mustNoErr(t, err)
	bobs, err := e.comments.Post(ctx, identity(bob), theirs.ID, "hey")
	mustNoErr(t, err)
	_, err = e.comments.Rate(ctx, identity(alice), bobs.ID, false)
	mustNoErr(t, err)
	mustNoErr(t, e.db.Model(&models.User{}).Where("id = ?", alice.ID).Update("image_key", "users/1/profile.jpg").Error)

	wantKind(t, e.users.Delete(ctx, identity(bob), alice.ID), apperr.KindForbidden)
	mustNoErr(t, e.users.Delete(ctx, identity(alice), alice.ID))

	_, err = e.users.Get(ctx, alice.ID)
	wantKind(t, err, apperr.KindNotFound)

	var ev models.Event
	mustNoErr(t, e.db.First(&ev, mine.ID).Error)
	if ev.CreatorID != nil {
		t.Fatalf("creator should be cleared, got %v", *ev.CreatorID)
	}
	if n := countRows(t, e.db, &models.FriendRequest{}, "1 = 1"); n != 0 {
		t.Fatalf("friend requests left: %d", n)
	}
	if n := countRows(t, e.db, &models.EventInvitation{}, "1 = 1"); n != 0 {
		t.Fatalf("invitations left: %d", n)
	}
	if n := countRows(t, e.db, &models.Comment{}, "author_id = ?", alice.ID); n != 0 {
		t.Fatalf("comments left: %d", n)
	}
	if n := countRows(t, e.db, &models.CommentRating{}, "1 = 1"); n != 0 {
		t.Fatalf("ratings left: %d", n)
	}
	if n := countRows(t, e.db, &models.Comment{}, "id = ?", bobs.ID); n != 1 {
		t.Fatal("other users' comments must survive")
	}
	if len(e.store.Deleted) != 1 || e.store.Deleted[0] != "users/1/profile.jpg" {
		t.Fatalf("deleted objects = %v", e.store.Deleted)
	}
}

func TestProfileImageFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)

	_, err := e.users.ProfileUploadURL(ctx, identity(bob), alice.ID)
	wantKind(t, err, apperr.KindForbidden)

	info, err := e.users.ProfileUploadURL(ctx, identity(alice), alice.ID)
	mustNoErr(t, err)
	want := fmt.Sprintf("users/%d/profile.jpg", alice.ID)
	if info.Key != want {
		t.Fatalf("key = %q, want %q", info.Key, want)
	}

	_, err = e.users.ConfirmProfileImage(ctx, identity(alice), alice.ID, "users/999/profile.jpg")
	wantKind(t, err, apperr.KindValidation)

	got, err := e.users.ConfirmProfileImage(ctx, identity(alice), alice.ID, info.Key)
	mustNoErr(t, err)
	if got.ImageURL != e.store.URL(want) {
		t.Fatalf("image url = %q", got.ImageURL)
	}

	e.store.DeleteErr = errors.New("offline")
	mustNoErr(t, e.users.Delete(ctx, identity(alice), alice.ID))
}
