// Package catalog imports games from the RAWG video game database into the
// local catalog.
//
// Client talks to the RAWG REST API through a circuit breaker. Importer
// fetches full details for a batch of listed games with a bounded set of
// workers, converts them with ToModel and inserts the titles the store
// does not have yet.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sakif/gameratings/internal/breaker"
)

// Defaults for ClientConfig.
const (
	DefaultBaseURL  = "https://api.rawg.io/api"
	DefaultTimeout  = 15 * time.Second
	DefaultPageSize = 100
	maxPageSize     = 100
)

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Named is the {"name": ...} object RAWG uses for genres, tags and so on.
type Named struct {
	Name string `json:"name"`
}

// PlatformEntry wraps a platform the way RAWG nests it.
type PlatformEntry struct {
	Platform Named `json:"platform"`
}

// GameDetail is the subset of a RAWG game we read. List endpoints leave
// Description, Developers and Publishers empty; Client.Game fills them.
type GameDetail struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Genres          []Named         `json:"genres"`
	Tags            []Named         `json:"tags"`
	Platforms       []PlatformEntry `json:"platforms"`
	Playtime        int             `json:"playtime"`
	Developers      []Named         `json:"developers"`
	Publishers      []Named         `json:"publishers"`
	Released        string          `json:"released"`
	Rating          float64         `json:"rating"`
	BackgroundImage string          `json:"background_image"`
}

type listResponse struct {
	Results []GameDetail `json:"results"`
}

// Client is a small RAWG API client.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	cb      *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient creates a Client whose calls share one "rawg-api" breaker.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		cb:      breaker.New[[]byte]("rawg-api", logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Popular lists the highest rated games.
func (c *Client) Popular(ctx context.Context, limit int) ([]GameDetail, error) {
	q := url.Values{}
	q.Set("ordering", "-rating")
	q.Set("page_size", strconv.Itoa(pageSize(limit)))
	return c.list(ctx, q, limit)
}

// Recent lists games released within the last days days, today included.
func (c *Client) Recent(ctx context.Context, days, limit int) ([]GameDetail, error) {
	if days <= 0 {
		days = 10
	}
	today := c.now().UTC()
	from := today.AddDate(0, 0, -days)

	q := url.Values{}
	q.Set("dates", from.Format(time.DateOnly)+","+today.Format(time.DateOnly))
	q.Set("page_size", strconv.Itoa(pageSize(limit)))
	return c.list(ctx, q, limit)
}

// Game fetches the full record for one RAWG game id.
func (c *Client) Game(ctx context.Context, id int64) (*GameDetail, error) {
	body, err := c.get(ctx, "/games/"+strconv.FormatInt(id, 10), url.Values{})
	if err != nil {
		return nil, err
	}
	var g GameDetail
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("catalog: decoding game %d: %w", id, err)
	}
	return &g, nil
}

func (c *Client) list(ctx context.Context, q url.Values, limit int) ([]GameDetail, error) {
	body, err := c.get(ctx, "/games", q)
	if err != nil {
		return nil, err
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("catalog: decoding game list: %w", err)
	}
	if limit > 0 && len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}
	return resp.Results, nil
}

// get performs one GET through the breaker and returns the body.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	q.Set("key", c.apiKey)
	target := c.baseURL + path + "?" + q.Encode()

	return breaker.Execute(c.cb, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("catalog: building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog: GET %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.logger.Warn("RAWG request failed",
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)
			return nil, fmt.Errorf("catalog: GET %s: status %d", path, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
		}
		return body, nil
	})
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
