package recommend

import (
	"fmt"
	"strings"
)

// FunctionName is the function the model is forced to call.
const FunctionName = "get_recommendations"

// SystemPrompt is the fixed system message.
const SystemPrompt = "You are a helpful assistant that provides game recommendations."

// maxCandidatesInPrompt bounds how many catalog games are listed.
const maxCandidatesInPrompt = 50

// BuildPrompt renders the user message. It names the user's interests and
// preferred genres, asks for up to MaxRecommendations games and lists the
// catalog candidates the model should prefer.
func BuildPrompt(pc PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Based on the user's interests: %q and preferred genres: %q, recommend up to %d video games.",
		strings.Join(pc.Interests, ", "),
		strings.Join(pc.Genres, ", "),
		MaxRecommendations,
	)

	if len(pc.Candidates) > 0 {
		b.WriteString(" Prefer games from this catalog and use their game_id:\n")
		for i, g := range pc.Candidates {
			if i == maxCandidatesInPrompt {
				break
			}
			fmt.Fprintf(&b, "- %d: %s [%s] rated %d\n", g.ID, g.Title, g.Genre, g.ReviewRating)
		}
	}

	return b.String()
}

// FunctionDef is a function-calling definition.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Schema returns the get_recommendations definition: an object holding an
// array of at most MaxRecommendations games, every property required.
func Schema() FunctionDef {
	return FunctionDef{
		Name:        FunctionName,
		Description: "Get a list of recommended games for the user",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recommendations": map[string]any{
					"type":     "array",
					"maxItems": MaxRecommendations,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"game_id":       map[string]any{"type": "integer"},
							"title":         map[string]any{"type": "string"},
							"genre":         map[string]any{"type": "string"},
							"review_rating": map[string]any{"type": "number"},
						},
						"required": []string{"game_id", "title", "genre", "review_rating"},
					},
				},
			},
			"required": []string{"recommendations"},
		},
	}
}
