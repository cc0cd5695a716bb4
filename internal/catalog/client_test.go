package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rawgServer serves a canned RAWG API and records the last query.
func rawgServer(t *testing.T, lastQuery *string) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games", func(w http.ResponseWriter, r *http.Request) {
		*lastQuery = r.URL.RawQuery
		assert.Equal(t, "rawg-key", r.URL.Query().Get("key"))
		_, _ = io.WriteString(w, `{"results":[
			{"id":1,"name":"Hades","rating":4.4},
			{"id":2,"name":"Celeste","rating":4.2},
			{"id":3,"name":"Outer Wilds","rating":4.5}]}`)
	})
	mux.HandleFunc("/api/games/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"name":"Hades","description":"<p>Defy the god of the dead.</p>",
			"genres":[{"name":"Action"},{"name":"Indie"}],
			"developers":[{"name":"Supergiant Games"}],
			"platforms":[{"platform":{"name":"PC"}}],
			"released":"2020-09-17","rating":4.4}`)
	})
	mux.HandleFunc("/api/games/99", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{APIKey: "rawg-key", BaseURL: srv.URL + "/api/"}, quietLogger())
}

func TestClient_Popular(t *testing.T) {
	var q string
	c := rawgServer(t, &q)

	games, err := c.Popular(context.Background(), 2)
	require.NoError(t, err)

	assert.Len(t, games, 2, "results are truncated to the limit")
	assert.Equal(t, "Hades", games[0].Name)
	assert.Contains(t, q, "ordering=-rating")
	assert.Contains(t, q, "page_size=2")
}

func TestClient_Recent(t *testing.T) {
	var q string
	c := rawgServer(t, &q)
	c.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	games, err := c.Recent(context.Background(), 10, 0)
	require.NoError(t, err)

	assert.Len(t, games, 3)
	assert.Contains(t, q, "dates=2024-03-05%2C2024-03-15")
	assert.Contains(t, q, "page_size=100")
}

func TestClient_Game(t *testing.T) {
	var q string
	c := rawgServer(t, &q)

	g, err := c.Game(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Supergiant Games", g.Developers[0].Name)
	assert.Equal(t, "2020-09-17", g.Released)
}

func TestClient_GameNotFound(t *testing.T) {
	var q string
	c := rawgServer(t, &q)

	_, err := c.Game(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPageSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 100}, {-5, 100}, {20, 20}, {100, 100}, {500, 100},
	}
	for _, tt := range tests {
		if got := pageSize(tt.in); got != tt.want {
			t.Errorf("pageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
