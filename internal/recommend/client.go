package recommend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Defaults for ClientConfig.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4-0613"
	DefaultTimeout   = 30 * time.Second
	defaultMaxTokens = 500
)

// ClientConfig configures a CompletionClient.
type ClientConfig struct {
	APIKey  string
	BaseURL string // without the trailing /chat/completions
	Model   string
	Timeout time.Duration
}

// CompletionClient is a Recommender backed by an OpenAI-compatible
// /chat/completions endpoint using forced function calling.
type CompletionClient struct {
	http   *http.Client
	url    string
	apiKey string
	model  string
	logger *slog.Logger
}

var _ Recommender = (*CompletionClient)(nil)

// NewCompletionClient fills unset config fields with the defaults.
func NewCompletionClient(cfg ClientConfig, logger *slog.Logger) *CompletionClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CompletionClient{
		http:   &http.Client{Timeout: cfg.Timeout},
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		logger: logger,
	}
}

// Wire types. Only the fields we send or read are declared.
type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatTool struct {
		Type     string      `json:"type"`
		Function FunctionDef `json:"function"`
	}

	toolChoice struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}

	chatRequest struct {
		Model      string        `json:"model"`
		Messages   []chatMessage `json:"messages"`
		Tools      []chatTool    `json:"tools"`
		ToolChoice toolChoice    `json:"tool_choice"`
		MaxTokens  int           `json:"max_tokens"`
	}

	functionCall struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}

	chatResponse struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Type     string       `json:"type"`
					Function functionCall `json:"function"`
				} `json:"tool_calls"`
				// Legacy shape, still returned by older deployments.
				FunctionCall *functionCall `json:"function_call"`
			} `json:"message"`
		} `json:"choices"`
	}
)

// Recommend sends one completion request and parses the function call.
func (c *CompletionClient) Recommend(ctx context.Context, pc PromptContext) (*Result, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildPrompt(pc)},
		},
		Tools:     []chatTool{{Type: "function", Function: Schema()}},
		MaxTokens: defaultMaxTokens,
	}
	req.ToolChoice.Type = "function"
	req.ToolChoice.Function.Name = FunctionName

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("recommend: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("recommend: building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recommend: calling completion API: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("completion API responded",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.Int64("user_id", pc.UserID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("recommend: completion API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("recommend: decoding completion response: %w", err)
	}

	call, err := extractCall(&parsed)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal([]byte(call.Arguments), &result); err != nil {
		return nil, fmt.Errorf("recommend: decoding function arguments: %w", err)
	}
	if len(result.Recommendations) > MaxRecommendations {
		result.Recommendations = result.Recommendations[:MaxRecommendations]
	}
	if result.Recommendations == nil {
		result.Recommendations = []Recommendation{}
	}
	return &result, nil
}

// extractCall finds the get_recommendations call in either the tools or
// the legacy function_call shape.
func extractCall(resp *chatResponse) (*functionCall, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrNoStructuredCall
	}
	msg := resp.Choices[0].Message

	var call *functionCall
	if len(msg.ToolCalls) > 0 {
		call = &msg.ToolCalls[0].Function
	} else if msg.FunctionCall != nil {
		call = msg.FunctionCall
	}

	if call == nil {
		return nil, ErrNoStructuredCall
	}
	if call.Name != FunctionName {
		return nil, fmt.Errorf("recommend: unexpected function called: %s: %w", call.Name, ErrNoStructuredCall)
	}
	return call, nil
}
