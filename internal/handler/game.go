package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/service"
)

// GameHandler serves /api/games.
type GameHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

func NewGameHandler(games *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

type gameCreatedResponse struct {
	Message string `json:"message"`
	GameID  int64  `json:"game_id"`
}

// HandleList returns the catalog.
//
// HTTP: GET /api/games/all?limit=N
//
// A missing or unparsable limit falls back to the default; the service
// handles range clamping.
func (h *GameHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	games, err := h.games.List(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// HandleSearch filters the catalog.
//
// HTTP: GET /api/games/search?query=&genre=a,b&review_rating=7&game_mode=
func (h *GameHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.GameFilter{
		Query:    q.Get("query"),
		GameMode: q.Get("game_mode"),
	}
	if genre := q.Get("genre"); genre != "" {
		filter.Genres = strings.Split(genre, ",")
	}
	// Unparsable or non-positive ratings mean "no filter".
	if rating, err := strconv.Atoi(q.Get("review_rating")); err == nil && rating > 0 {
		filter.MinRating = rating
	}

	games, err := h.games.Search(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// HTTP: GET /api/games/{gameId}
func (h *GameHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	game, err := h.games.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// HTTP: POST /api/games/create
func (h *GameHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGameInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.games.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, gameCreatedResponse{Message: "Game created successfully", GameID: id})
}

// HTTP: PUT /api/games/{gameId}
func (h *GameHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.UpdateGameInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.games.Update(r.Context(), id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Game updated successfully")
}

// HandleDelete removes a game and its reviews. Unknown ids succeed too.
//
// HTTP: DELETE /api/games/{gameId}
func (h *GameHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.games.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Game deleted successfully")
}
