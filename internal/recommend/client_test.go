package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gameratings/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// completionServer answers every request with status and body, and hands
// the decoded request to inspect.
func completionServer(t *testing.T, status int, body string, inspect func(map[string]any)) *CompletionClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if inspect != nil {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewCompletionClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, quietLogger())
}

// toolCallBody wraps arguments in the tools response shape.
func toolCallBody(name, arguments string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]any{
				"tool_calls": []any{map[string]any{
					"type":     "function",
					"function": map[string]any{"name": name, "arguments": arguments},
				}},
			},
		}},
	})
	return string(b)
}

const twoGames = `{"recommendations":[{"game_id":1,"title":"Hades","genre":"Action","review_rating":9},{"game_id":2,"title":"Celeste","genre":"Platformer","review_rating":8.5}]}`

func TestCompletionClient_ToolCall(t *testing.T) {
	var sent map[string]any
	c := completionServer(t, http.StatusOK, toolCallBody(FunctionName, twoGames), func(req map[string]any) { sent = req })

	res, err := c.Recommend(context.Background(), PromptContext{UserID: 1, Interests: []string{"space"}, Genres: []string{"RPG"}})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, Recommendation{GameID: 1, Title: "Hades", Genre: "Action", ReviewRating: 9}, res.Recommendations[0])
	assert.Equal(t, 8.5, res.Recommendations[1].ReviewRating)

	assert.Equal(t, DefaultModel, sent["model"])
	assert.EqualValues(t, 500, sent["max_tokens"])
	msgs := sent["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, SystemPrompt, msgs[0].(map[string]any)["content"])
	assert.Contains(t, msgs[1].(map[string]any)["content"], "space")
	choice := sent["tool_choice"].(map[string]any)
	assert.Equal(t, FunctionName, choice["function"].(map[string]any)["name"])
}

func TestCompletionClient_LegacyFunctionCall(t *testing.T) {
	body := `{"choices":[{"message":{"function_call":{"name":"get_recommendations","arguments":` +
		strings.ReplaceAll(mustQuote(twoGames), "\n", "") + `}}}]}`
	c := completionServer(t, http.StatusOK, body, nil)

	res, err := c.Recommend(context.Background(), PromptContext{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompletionClient_TruncatesToThree(t *testing.T) {
	args := `{"recommendations":[
		{"game_id":1,"title":"a","genre":"x","review_rating":1},
		{"game_id":2,"title":"b","genre":"x","review_rating":1},
		{"game_id":3,"title":"c","genre":"x","review_rating":1},
		{"game_id":4,"title":"d","genre":"x","review_rating":1}]}`
	c := completionServer(t, http.StatusOK, toolCallBody(FunctionName, args), nil)

	res, err := c.Recommend(context.Background(), PromptContext{})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, MaxRecommendations)
}

func TestCompletionClient_Failures(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantNoStructure bool
	}{
		{name: "plain text answer", status: 200, body: `{"choices":[{"message":{"content":"Try Hades!"}}]}`, wantNoStructure: true},
		{name: "no choices", status: 200, body: `{"choices":[]}`, wantNoStructure: true},
		{name: "other function", status: 200, body: toolCallBody("get_weather", `{}`), wantNoStructure: true},
		{name: "upstream 500", status: 500, body: `{"error":{"message":"overloaded"}}`},
		{name: "upstream 401", status: 401, body: `{"error":{"message":"bad key"}}`},
		{name: "bad arguments", status: 200, body: toolCallBody(FunctionName, `not json`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := completionServer(t, tt.status, tt.body, nil)
			_, err := c.Recommend(context.Background(), PromptContext{})
			require.Error(t, err)
			assert.Equal(t, tt.wantNoStructure, errors.Is(err, ErrNoStructuredCall), "err = %v", err)
		})
	}
}

// =========================================================================
// PROMPT TESTS
// =========================================================================

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(PromptContext{
		Interests: []string{"space", "story"},
		Genres:    []string{"RPG"},
		Candidates: []model.Game{
			{ID: 7, Title: "Mass Effect", Genre: "RPG", ReviewRating: 9},
		},
	})

	assert.Contains(t, p, `"space, story"`)
	assert.Contains(t, p, `"RPG"`)
	assert.Contains(t, p, "up to 3")
	assert.Contains(t, p, "7: Mass Effect [RPG]")
}

func TestBuildPrompt_NoCandidates(t *testing.T) {
	p := BuildPrompt(PromptContext{})
	assert.NotContains(t, p, "catalog")
}

func TestSchema(t *testing.T) {
	s := Schema()
	assert.Equal(t, "get_recommendations", s.Name)

	b, err := json.Marshal(s.Parameters)
	require.NoError(t, err)
	for _, field := range []string{"game_id", "title", "genre", "review_rating", `"maxItems":3`} {
		assert.Contains(t, string(b), field)
	}
}
