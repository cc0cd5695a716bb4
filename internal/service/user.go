package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/validation"
)

// MaxAvatarBytes caps profile picture uploads.
const MaxAvatarBytes = 5 << 20

const (
	MsgNoFile             = "No file uploaded"
	MsgAvatarNotImage     = "Only image uploads are allowed"
	MsgAvatarTooLarge     = "File too large (max 5 MB)"
	MsgStorageUnavailable = "file uploads are not configured"
)

// AvatarUploader stores an image and returns its public URL.
// *storage.S3 implements it.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID int64, filename, contentType string, body io.Reader, size int64) (string, error)
}

// UserService serves profiles and profile changes.
type UserService struct {
	users    repository.UserRepository
	uploader AvatarUploader // nil when object storage is not configured
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, uploader AvatarUploader, logger *slog.Logger) *UserService {
	return &UserService{users: users, uploader: uploader, logger: logger}
}

// Me returns the caller's profile.
func (s *UserService) Me(ctx context.Context) (model.Profile, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return model.Profile{}, apperror.Unauthorized(auth.MsgNoToken)
	}
	return user.Profile(), nil
}

func (s *UserService) ByID(ctx context.Context, id int64) (model.Profile, error) {
	return profileOf(s.users.GetByID(ctx, id))
}

func (s *UserService) ByEmail(ctx context.Context, email string) (model.Profile, error) {
	if strings.TrimSpace(email) == "" {
		return model.Profile{}, apperror.ValidationFailed("email", "Missing email parameter")
	}
	return profileOf(s.users.GetByEmail(ctx, email))
}

func (s *UserService) ByName(ctx context.Context, name string) (model.Profile, error) {
	if strings.TrimSpace(name) == "" {
		return model.Profile{}, apperror.ValidationFailed("name", "Missing username parameter")
	}
	return profileOf(s.users.GetByName(ctx, name))
}

func profileOf(u *model.User, err error) (model.Profile, error) {
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// Authorize reports whether the caller may change user id.
func (s *UserService) Authorize(ctx context.Context, id int64) error {
	return auth.RequireOwner(ctx, id)
}

// UpdateUserInput is the body of PUT /api/users/{id}.
type UpdateUserInput struct {
	Name            *string `json:"name"             validate:"omitempty,min=3,max=50"`
	ThemePreference *string `json:"theme_preference" validate:"omitempty,oneof=light dark"`
}

// Update changes the caller's own name or theme and returns the new profile.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (model.Profile, error) {
	if err := auth.RequireOwner(ctx, id); err != nil {
		return model.Profile{}, err
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := validation.Struct(&in); err != nil {
		return model.Profile{}, err
	}

	upd := model.UserUpdate{Name: in.Name, ThemePreference: in.ThemePreference}
	if upd.IsEmpty() {
		return model.Profile{}, apperror.ValidationFailed("", "No fields to update")
	}

	if in.Name != nil {
		other, err := s.users.GetByName(ctx, *in.Name)
		switch {
		case err == nil && other.ID != id:
			return model.Profile{}, apperror.Conflict("name", MsgNameTaken)
		case err != nil && !errors.Is(err, apperror.ErrNotFound):
			return model.Profile{}, fmt.Errorf("service/user: checking name: %w", err)
		}
	}

	if err := s.users.Update(ctx, id, upd); err != nil {
		if conflict := duplicateToConflict(err); conflict != nil {
			return model.Profile{}, conflict
		}
		return model.Profile{}, fmt.Errorf("service/user: updating %d: %w", id, err)
	}

	return s.ByID(ctx, id)
}

// AvatarFile is one uploaded image.
type AvatarFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadAvatar stores the caller's new profile picture and records its URL.
func (s *UserService) UploadAvatar(ctx context.Context, file AvatarFile) (string, error) {
	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		return "", apperror.Unauthorized(auth.MsgNoToken)
	}
	if s.uploader == nil {
		return "", apperror.Unavailable(MsgStorageUnavailable)
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", apperror.ValidationFailed("profilePic", MsgAvatarNotImage)
	}
	if file.Size > MaxAvatarBytes {
		return "", apperror.ValidationFailed("profilePic", MsgAvatarTooLarge)
	}

	url, err := s.uploader.UploadAvatar(ctx, caller.ID, file.Filename, file.ContentType, file.Body, file.Size)
	if err != nil {
		return "", fmt.Errorf("service/user: uploading avatar for %d: %w", caller.ID, err)
	}
	if err := s.users.Update(ctx, caller.ID, model.UserUpdate{ProfilePic: &url}); err != nil {
		return "", fmt.Errorf("service/user: saving avatar url for %d: %w", caller.ID, err)
	}

	s.logger.Info("profile picture updated", slog.Int64("userID", caller.ID))
	return url, nil
}
