package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gameratings/internal/service"
)

// UserDataHandler serves /api/userdata. The {id} in every route is the
// owning user's id.
type UserDataHandler struct {
	userData *service.UserDataService
	recs     *service.RecommendationService
	logger   *slog.Logger
}

func NewUserDataHandler(userData *service.UserDataService, recs *service.RecommendationService, logger *slog.Logger) *UserDataHandler {
	return &UserDataHandler{userData: userData, recs: recs, logger: logger}
}

type userDataCreatedResponse struct {
	Message    string `json:"message"`
	UserDataID int64  `json:"userDataId"`
}

// HTTP: POST /api/userdata
func (h *UserDataHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.UserDataInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.userData.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, userDataCreatedResponse{Message: "User data created successfully", UserDataID: id})
}

// HTTP: GET /api/userdata/{id}
func (h *UserDataHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := h.userData.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HTTP: PUT /api/userdata/{id}
func (h *UserDataHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.userData.Authorize(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UserDataInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.userData.Update(r.Context(), userID, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "User data updated successfully")
}

// HTTP: DELETE /api/userdata/{id}
func (h *UserDataHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.userData.Delete(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "User data deleted successfully")
}

// HandleRecommendations returns up to three suggested games.
//
// HTTP: GET /api/userdata/{id}/recommendations
func (h *UserDataHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.recs.Recommend(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
