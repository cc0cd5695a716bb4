package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gameratings/internal/service"
)

// ReviewHandler serves /api/reviews. Authorship always comes from the
// session, never from the body.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

type reviewCreatedResponse struct {
	Message  string `json:"message"`
	ReviewID int64  `json:"reviewId"`
}

// HTTP: POST /api/reviews
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.reviews.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewCreatedResponse{Message: "Review created successfully", ReviewID: id})
}

// HTTP: GET /api/reviews/{id}
func (h *ReviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HTTP: GET /api/reviews/game/{gameId}
func (h *ReviewHandler) HandleListByGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "gameId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	reviews, err := h.reviews.ListByGame(r.Context(), gameID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HTTP: PUT /api/reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.reviews.Authorize(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UpdateReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.reviews.Update(r.Context(), id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Review updated successfully")
}

// HTTP: DELETE /api/reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Review deleted successfully")
}
