package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/service"
)

const (
	MsgLoggedOut         = "User logged out"
	MsgGoogleAuthFailed  = "Google authentication failed"
	MsgGoogleUnavailable = "Google sign-in is not configured"
)

// GoogleExchanger is the part of the OAuth flow the handler drives.
// *auth.GoogleProvider implements it.
type GoogleExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

var _ GoogleExchanger = (*auth.GoogleProvider)(nil)

// AuthHandler serves /api/auth: registration, password login, Google
// sign-in and the session cookie.
//
// The service decides who the user is; this handler only turns the
// result into a cookie and a response body.
type AuthHandler struct {
	auth          *service.AuthService
	google        GoogleExchanger // nil when Google sign-in is not configured
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, google GoogleExchanger, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          svc,
		google:        google,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// registerResponse is the 201 body of POST /register.
type registerResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	ProfilePic      *string `json:"profile_pic"`
	ThemePreference string  `json:"theme_preference"`
	UserDataID      *int64  `json:"user_data_id"`
}

// loginResponse is the 200 body of every successful login.
type loginResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func loginBody(u *model.User) loginResponse {
	return loginResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// statusResponse is the body of GET /status. UserID is null when logged out.
type statusResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	UserID   *int64 `json:"userId"`
}

// HandleRegister creates an account and logs it in.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.secureCookies)
	u := res.User
	writeJSON(w, http.StatusCreated, registerResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		ProfilePic:      u.ProfilePic,
		ThemePreference: u.ThemePreference,
		UserDataID:      u.UserDataID,
	})
}

// HandleLogin checks email (or name) and password.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.secureCookies)
	writeJSON(w, http.StatusOK, loginBody(res.User))
}

// HandleLogout clears the session cookie. Tokens are stateless, so the
// token itself stays valid until it expires.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeMessage(w, http.StatusOK, MsgLoggedOut)
}

// HandleStatus reports whether the request carries a valid session.
// Mounted behind auth.OptionalAuth; it never fails.
//
// HTTP: GET /api/auth/status
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}
	id := user.ID
	writeJSON(w, http.StatusOK, statusResponse{LoggedIn: true, UserID: &id})
}

// HandleGoogleLogin redirects to Google's consent page.
//
// HTTP: GET /api/auth/google
//
// The random state goes into a short-lived cookie and the redirect URL;
// the callback only proceeds when both agree, which ties the callback to
// a login this server started.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, h.logger, apperror.Unavailable(MsgGoogleUnavailable))
		return
	}

	state := xid.New().String()
	auth.SetStateCookie(w, state, h.secureCookies)
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes Google sign-in.
//
// HTTP: GET /api/auth/google/callback?code=...&state=...
//
// FLOW:
//  1. Check the state against the cookie
//  2. Exchange the code for the Google profile
//  3. Resolve or create the account (service)
//  4. Set the session cookie
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, h.logger, apperror.Unavailable(MsgGoogleUnavailable))
		return
	}

	q := r.URL.Query()
	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "oauth_error", Message: MsgGoogleAuthFailed})
		return
	}
	// Single use.
	auth.ClearStateCookie(w, h.secureCookies)

	code := q.Get("code")
	if q.Get("error") != "" || code == "" {
		h.logger.Info("google callback: no code", slog.String("error", q.Get("error")))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "oauth_error", Message: MsgGoogleAuthFailed})
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "oauth_error", Message: MsgGoogleAuthFailed})
		return
	}

	res, err := h.auth.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.secureCookies)
	writeJSON(w, http.StatusOK, loginBody(res.User))
}
