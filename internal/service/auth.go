// AuthService sits between the HTTP handlers and the store:
//
//	AuthHandler (HTTP) → AuthService (business rules) → repository.Store (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// RESPONSIBILITIES:
//   - Register: uniqueness checks, then user + empty preference document
//     created atomically
//   - Login: constant-shape failure (same message and one bcrypt compare
//     whether or not the account exists)
//   - Google sign-in: resolve by google_id, then by email, else create
//
// It never touches cookies or HTTP; the handler does that with the token
// returned in AuthResult.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/validation"
)

// Client-facing messages.
const (
	DefaultProfilePic = "/Default-Profile-Picture.jpg"
	MsgEmailTaken     = "A user with this email already exists"
	MsgNameTaken      = "This username is already taken"
	MsgLoginFailed    = "User not found / password incorrect"
)

// AuthService handles registration, login and Google sign-in.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name            string  `json:"name"             validate:"required,min=3,max=50"`
	Email           string  `json:"email"            validate:"required,email"`
	Password        string  `json:"password"         validate:"required,min=8,max=72"`
	ProfilePic      *string `json:"profile_pic"`
	ThemePreference string  `json:"theme_preference" validate:"omitempty,oneof=light dark"`
}

// Register creates an account and its empty preference document in one
// transaction, then issues a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	taken, err := s.exists(ctx, s.store.Users().GetByEmail, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("email", MsgEmailTaken)
	}
	taken, err = s.exists(ctx, s.store.Users().GetByName, in.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("name", MsgNameTaken)
	}

	user := &model.User{
		Name:            in.Name,
		Email:           in.Email,
		ProfilePic:      in.ProfilePic,
		ThemePreference: in.ThemePreference,
	}
	if user.ProfilePic == nil || *user.ProfilePic == "" {
		pic := DefaultProfilePic
		user.ProfilePic = &pic
	}
	if user.ThemePreference == "" {
		user.ThemePreference = model.ThemeLight
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		data := &model.UserData{}
		if err := tx.UserData().Create(ctx, data); err != nil {
			return fmt.Errorf("creating user data: %w", err)
		}

		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		user.UserDataID = &data.ID

		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		if conflict := duplicateToConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("service/auth: registering %q: %w", in.Email, err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// LoginInput is the body of POST /api/auth/login. Email wins when both
// email and name are given.
type LoginInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials. A missing account and a wrong password give
// the same Unauthorized error, and both cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	email, name := strings.TrimSpace(in.Email), strings.TrimSpace(in.Name)
	if email == "" && name == "" {
		return nil, apperror.ValidationFailed("email", "email or name is required")
	}

	var (
		user *model.User
		err  error
	)
	if email != "" {
		user, err = s.store.Users().GetByEmail(ctx, email)
	} else {
		user, err = s.store.Users().GetByName(ctx, name)
	}
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up login: %w", err)
		}
		_ = s.passwords.VerifyNothing(in.Password)
		return nil, apperror.Unauthorized(MsgLoginFailed)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(MsgLoginFailed)
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// LoginWithGoogle resolves the account for a verified Google profile:
//  1. an account already linked to the Google id
//  2. an account with the same email, which gets linked
//  3. a new account with an unusable password and an empty preference
//     document; a taken display name gets a unique suffix
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil || gu.ID == "" || gu.Email == "" {
		return nil, fmt.Errorf("service/auth: incomplete Google profile")
	}
	users := s.store.Users()

	user, err := users.GetByGoogleID(ctx, gu.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google id: %w", err)
	}

	user, err = users.GetByEmail(ctx, gu.Email)
	switch {
	case err == nil:
		if err := users.SetGoogleID(ctx, user.ID, gu.ID); err != nil {
			return nil, fmt.Errorf("service/auth: linking google id to user %d: %w", user.ID, err)
		}
		s.logger.Info("linked Google account", slog.Int64("userID", user.ID))
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up google email: %w", err)
	}

	user, err = s.createGoogleUser(ctx, gu)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered via Google", slog.Int64("userID", user.ID))
	return s.issue(user)
}

func (s *AuthService) createGoogleUser(ctx context.Context, gu *auth.GoogleUser) (*model.User, error) {
	name := strings.TrimSpace(gu.Name)
	if name == "" {
		name, _, _ = strings.Cut(gu.Email, "@")
	}
	taken, err := s.exists(ctx, s.store.Users().GetByName, name)
	if err != nil {
		return nil, err
	}
	if taken {
		name = name + "-" + xid.New().String()
	}

	secret, err := auth.RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(secret)
	if err != nil {
		return nil, err
	}

	googleID := gu.ID
	user := &model.User{
		Name:            name,
		Email:           gu.Email,
		PasswordHash:    hash,
		ThemePreference: model.ThemeLight,
		GoogleID:        &googleID,
	}
	pic := gu.Picture
	if pic == "" {
		pic = DefaultProfilePic
	}
	user.ProfilePic = &pic

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		data := &model.UserData{}
		if err := tx.UserData().Create(ctx, data); err != nil {
			return fmt.Errorf("creating user data: %w", err)
		}
		user.UserDataID = &data.ID
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		// A registration can win the race between the lookups above and
		// this insert.
		if conflict := duplicateToConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("service/auth: creating google user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// exists runs a user lookup and reports whether it found a row.
func (s *AuthService) exists(ctx context.Context, get func(context.Context, string) (*model.User, error), key string) (bool, error) {
	_, err := get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("service/auth: checking %q: %w", key, err)
	}
}

// duplicateToConflict maps a unique violation on users.email or users.name
// to the matching 400 Conflict. It returns nil for anything else.
func duplicateToConflict(err error) *apperror.AppError {
	field, ok := repository.DuplicateField(err)
	if !ok {
		return nil
	}
	switch field {
	case "email":
		return apperror.Conflict("email", MsgEmailTaken)
	case "name":
		return apperror.Conflict("name", MsgNameTaken)
	}
	return apperror.Conflict(field, "A record with this "+field+" already exists")
}
