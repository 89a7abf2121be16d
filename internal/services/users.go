package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Generate(userID uint, username string, role models.Role) (string, error)
}

type UserService struct {
	db     *gorm.DB
	store  ObjectStore
	tokens TokenIssuer
}

func NewUserService(db *gorm.DB, store ObjectStore, tokens TokenIssuer) *UserService {
	return &UserService{db: db, store: store, tokens: tokens}
}

type RegisterInput struct {
	Username string
	Password string
	ImageKey string
}

// UpdateUserInput changes only the fields that are set.
type UpdateUserInput struct {
	Username *string
	Password *string
	ImageKey *string
}

// Register creates a User-role account and returns its token. The profile
// image is uploaded afterwards, so an image key is rejected here.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (string, error) {
	username, err := cleanUsername(in.Username)
	if err != nil {
		return "", err
	}
	if in.ImageKey != "" {
		return "", apperr.Validation("invalid image key",
			apperr.FieldError{Field: "imageKey", Message: "upload the profile image after registering"})
	}
	if err := s.ensureUsernameFree(s.db.WithContext(ctx), username, 0); err != nil {
		return "", err
	}

	hash, salt := auth.HashPassword(in.Password)
	u := models.User{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return s.issue(&u)
}

// Login verifies credentials and returns a fresh token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.Unauthorized("invalid username or password")
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if !auth.VerifyPassword(u.PasswordHash, u.Salt, password) {
		return "", apperr.Unauthorized("invalid username or password")
	}
	return s.issue(&u)
}

func (s *UserService) Get(ctx context.Context, id uint) (UserResponse, error) {
	u, err := findByID[models.User](s.db.WithContext(ctx), id, "user")
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(&u, s.store), nil
}

func (s *UserService) List(ctx context.Context) ([]UserResponse, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i], s.store))
	}
	return out, nil
}

// Search pages through users whose name contains username, case-insensitively,
// leaving out the caller.
func (s *UserService) Search(ctx context.Context, callerID uint, username string, page, pageSize int) (PagedResponse[UserResponse], error) {
	if page < 1 {
		page = 1
	}
	pageSize = clampLimit(pageSize)

	tx := s.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", callerID)
	if q := strings.ToLower(strings.TrimSpace(username)); q != "" {
		tx = tx.Where(`LOWER(username) LIKE ? ESCAPE '\'`, "%"+escapeLike(q)+"%")
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return PagedResponse[UserResponse]{}, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	if err := tx.Order("username, id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return PagedResponse[UserResponse]{}, fmt.Errorf("search users: %w", err)
	}

	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i], s.store))
	}
	return PagedResponse[UserResponse]{Items: items, TotalCount: total}, nil
}

// Update applies the set fields. Callers may edit themselves; admins may
// edit anyone.
func (s *UserService) Update(ctx context.Context, caller auth.Identity, id uint, in UpdateUserInput) (UserResponse, error) {
	if err := authorizeSelf(caller, id); err != nil {
		return UserResponse{}, err
	}
	var name string
	if in.Username != nil {
		var err error
		if name, err = cleanUsername(*in.Username); err != nil {
			return UserResponse{}, err
		}
	}
	if in.ImageKey != nil {
		if err := checkProfileImageKey(id, *in.ImageKey); err != nil {
			return UserResponse{}, err
		}
	}

	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = findByID[models.User](tx, id, "user"); err != nil {
			return err
		}

		if in.Username != nil {
			if name != u.Username {
				if err := s.ensureUsernameFree(tx, name, u.ID); err != nil {
					return err
				}
				u.Username = name
			}
		}
		if in.Password != nil {
			u.PasswordHash, u.Salt = auth.HashPassword(*in.Password)
		}
		if in.ImageKey != nil {
			u.ImageKey = *in.ImageKey
		}

		if err := tx.Save(&u).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(&u, s.store), nil
}

// Delete removes the account and every row it owns. Events the user created
// survive with no creator.
func (s *UserService) Delete(ctx context.Context, caller auth.Identity, id uint) error {
	if err := authorizeSelf(caller, id); err != nil {
		return err
	}

	var imageKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := findByID[models.User](tx, id, "user")
		if err != nil {
			return err
		}
		imageKey = u.ImageKey

		ownComments := tx.Model(&models.Comment{}).Select("id").Where("author_id = ?", id)
		steps := []struct {
			what  string
			query *gorm.DB
			model any
		}{
			{"ratings", tx.Where("user_id = ? OR comment_id IN (?)", id, ownComments), &models.CommentRating{}},
			{"comments", tx.Where("author_id = ?", id), &models.Comment{}},
			{"notifications", tx.Where("user_id = ?", id), &models.Notification{}},
			{"participations", tx.Where("user_id = ?", id), &models.EventParticipation{}},
			{"invitations", tx.Where("sender_id = ? OR receiver_id = ?", id, id), &models.EventInvitation{}},
			{"friend requests", tx.Where("sender_id = ? OR receiver_id = ?", id, id), &models.FriendRequest{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete user %s: %w", step.what, err)
			}
		}

		if err := tx.Model(&models.Event{}).Where("creator_id = ?", id).Update("creator_id", nil).Error; err != nil {
			return fmt.Errorf("detach user events: %w", err)
		}
		if err := tx.Delete(&models.User{}, id).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if imageKey == profileImageKey(id) {
		if err := s.store.Delete(ctx, imageKey); err != nil {
			log.Printf("⚠️ failed to delete profile image %s: %v", imageKey, err)
		}
	}
	return nil
}

// ProfileUploadURL presigns the upload of the user's profile image.
func (s *UserService) ProfileUploadURL(ctx context.Context, caller auth.Identity, id uint) (UploadInfo, error) {
	if err := authorizeSelf(caller, id); err != nil {
		return UploadInfo{}, err
	}
	if _, err := findByID[models.User](s.db.WithContext(ctx), id, "user"); err != nil {
		return UploadInfo{}, err
	}

	key := profileImageKey(id)
	url, err := s.store.PresignPut(ctx, key)
	if err != nil {
		return UploadInfo{}, fmt.Errorf("presign upload: %w", err)
	}
	return UploadInfo{UploadURL: url, Key: key}, nil
}

// ConfirmProfileImage stores the uploaded profile image key.
func (s *UserService) ConfirmProfileImage(ctx context.Context, caller auth.Identity, id uint, key string) (UserResponse, error) {
	if err := authorizeSelf(caller, id); err != nil {
		return UserResponse{}, err
	}
	if key != profileImageKey(id) {
		return UserResponse{}, apperr.Validation("invalid image key",
			apperr.FieldError{Field: "imageKey", Message: "must be the key issued for this user"})
	}

	u, err := findByID[models.User](s.db.WithContext(ctx), id, "user")
	if err != nil {
		return UserResponse{}, err
	}
	if err := s.db.WithContext(ctx).Model(&u).Update("image_key", key).Error; err != nil {
		return UserResponse{}, fmt.Errorf("update profile image: %w", err)
	}
	u.ImageKey = key
	return toUserResponse(&u, s.store), nil
}

func cleanUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.Validation("validation failed",
			apperr.FieldError{Field: "username", Message: "must not be blank"})
	}
	return name, nil
}

func (s *UserService) ensureUsernameFree(tx *gorm.DB, username string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", username, exceptID).Count(&n).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return apperr.Conflict("username %q is already taken", username)
	}
	return nil
}

func (s *UserService) issue(u *models.User) (string, error) {
	token, err := s.tokens.Generate(u.ID, u.Username, u.Role)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func authorizeSelf(caller auth.Identity, id uint) error {
	if caller.UserID != id && !caller.IsAdmin() {
		return apperr.Forbidden("cannot modify user %d", id)
	}
	return nil
}
