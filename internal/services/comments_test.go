package services

import (
	"context"
	"testing"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/models"
	"vmestego-backend/internal/testutil"
)

func TestCommentRatingsAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author", models.RoleUser)
	voters := []models.User{
		testutil.CreateUser(t, e.db, "v1", models.RoleUser),
		testutil.CreateUser(t, e.db, "v2", models.RoleUser),
		testutil.CreateUser(t, e.db, "v3", models.RoleUser),
	}
	lurker := testutil.CreateUser(t, e.db, "lurker", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, 0, "Open mic", false)

	c, err := e.comments.Post(ctx, identity(author), ev.ID, "  first!  ")
	mustNoErr(t, err)
	if c.Rating != 0 || c.Text != "first!" || c.AuthorUsername != "author" {
		t.Fatalf("comment = %+v", c)
	}

	for i, positive := range []bool{true, true, false} {
		_, err := e.comments.Rate(ctx, identity(voters[i]), c.ID, positive)
		mustNoErr(t, err)
	}

	list, err := e.comments.List(ctx, identity(lurker), ev.ID)
	mustNoErr(t, err)
	if len(list) != 1 || list[0].Rating != 1 || list[0].UserRating != 0 {
		t.Fatalf("lurker view = %+v", list)
	}

	list, err = e.comments.List(ctx, identity(voters[2]), ev.ID)
	mustNoErr(t, err)
	if list[0].UserRating != -1 {
		t.Fatalf("v3 rating = %d", list[0].UserRating)
	}
}

func TestCommentRevoteOverwrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author", models.RoleUser)
	voter := testutil.CreateUser(t, e.db, "voter", models.RoleUser)
	ev := testutil.CreateEvent(t, e.db, 0, "Open mic", false)
	c, err := e.comments.Post(ctx, identity(author), ev.ID, "hello")
	mustNoErr(t, err)

	up, err := e.comments.Rate(ctx, identity(voter), c.ID, true)
	mustNoErr(t, err)
	down, err := e.comments.Rate(ctx, identity(voter), c.ID, false)
	mustNoErr(t, err)

	if up.Rating != 1 || down.Rating != -1 || down.Rating-up.Rating != -2 {
		t.Fatalf("up = %d, down = %d", up.Rating, down.Rating)
	}
	if n := countRows(t, e.db, &models.CommentRating{}, "comment_id = ?", c.ID); n != 1 {
		t.Fatalf("rating rows = %d", n)
	}

	_, err = e.comments.Rate(ctx, identity(voter), 999, true)
	wantKind(t, err, apperr.KindNotFound)
}

func TestCommentPostAndDeleteRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", models.RoleUser)
	private := testutil.CreateEvent(t, e.db, alice.ID, "Secret", true)

	_, err := e.comments.Post(ctx, identity(bob), private.ID, "let me in")
	wantKind(t, err, apperr.KindForbidden)
	_, err = e.comments.Post(ctx, identity(alice), private.ID, "   ")
	wantKind(t, err, apperr.KindValidation)

	c, err := e.comments.Post(ctx, identity(alice), private.ID, "note to self")
	mustNoErr(t, err)
	_, err = e.comments.Rate(ctx, identity(alice), c.ID, true)
	mustNoErr(t, err)

	wantKind(t, e.comments.Delete(ctx, bob.ID, c.ID), apperr.KindForbidden)
	mustNoErr(t, e.comments.Delete(ctx, alice.ID, c.ID))
	wantKind(t, e.comments.Delete(ctx, alice.ID, c.ID), apperr.KindNotFound)
	if n := countRows(t, e.db, &models.CommentRating{}, "comment_id = ?", c.ID); n != 0 {
		t.Fatal("ratings must go with the comment")
	}
}

func TestRateRequiresVisibleEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", models.RoleUser)
	outsider := testutil.CreateUser(t, e.db, "outsider", models.RoleUser)
	private := testutil.CreateEvent(t, e.db, alice.ID, "Secret", true)
	c, err := e.comments.Post(ctx, identity(alice), private.ID, "members only")
	mustNoErr(t, err)

	_, err = e.comments.Rate(ctx, identity(outsider), c.ID, false)
	wantKind(t, err, apperr.KindForbidden)
	if n := countRows(t, e.db, &models.CommentRating{}, "comment_id = ?", c.ID); n != 0 {
		t.Fatalf("rating rows = %d", n)
	}
}
