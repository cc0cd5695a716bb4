package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/service"
)

// avatarFormField is the multipart field carrying the image.
const avatarFormField = "profilePic"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

// UserHandler serves /api/users. Every route is behind the gate.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type avatarResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

// HTTP: GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Me(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.users.ByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: GET /api/users/email/{email}
func (h *UserHandler) HandleByEmail(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.ByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: GET /api/users/username/{name}
func (h *UserHandler) HandleByName(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.ByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.Authorize(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUploadAvatar accepts a multipart image in the "profilePic" field.
//
// HTTP: PUT /api/users/me/profile-picture
//
// The body is capped a little above MaxAvatarBytes so the form overhead
// fits; the service enforces the exact file size.
func (h *UserHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, apperror.ValidationFailed(avatarFormField, service.MsgAvatarTooLarge))
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed(avatarFormField, service.MsgNoFile))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed(avatarFormField, service.MsgNoFile))
		return
	}
	defer file.Close()

	url, err := h.users.UploadAvatar(r.Context(), service.AvatarFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, avatarResponse{Message: "Profile picture uploaded successfully!", ImageURL: url})
}
