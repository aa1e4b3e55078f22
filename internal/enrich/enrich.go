// Package enrich looks up vendor names against a web search API.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrDisabled is returned once the search API has rate-limited the client.
// The client stays disabled for the rest of the process.
var ErrDisabled = errors.New("enrichment disabled after rate limit")

// ErrNotConfigured is returned by New when the API key or engine ID is
// missing.
var ErrNotConfigured = errors.New("enrichment not configured")

// DefaultMinDelay is the minimum spacing between two search requests.
const DefaultMinDelay = time.Second

// Result is the top hit for a query.
type Result struct {
	Title       string
	Snippet     string
	Link        string
	DisplayLink string
}

// Config configures a Client. Endpoint and HTTPClient are for tests.
type Config struct {
	APIKey     string
	EngineID   string
	MinDelay   time.Duration
	Endpoint   string
	HTTPClient *http.Client
}

// Client queries the custom search API. Results, including empty ones, are
// cached by normalized query for the lifetime of the client.
type Client struct {
	svc     *customsearch.Service
	cx      string
	limiter *rate.Limiter
	log     *zap.Logger

	mu       sync.Mutex
	cache    map[string]*Result
	disabled bool
}

// New creates a Client.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrNotConfigured
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating search service: %w", err)
	}

	return &Client{
		svc:     svc,
		cx:      cfg.EngineID,
		limiter: rate.NewLimiter(rate.Every(cfg.MinDelay), 1),
		log:     log,
		cache:   make(map[string]*Result),
	}, nil
}

// Disabled reports whether a rate-limit response has tripped the breaker.
func (c *Client) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// Search returns the top result for query, or nil when there is none.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return nil, ErrDisabled
	}
	if r, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.svc.Cse.List().Cx(c.cx).Q(query).Num(1).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
			c.mu.Lock()
			c.disabled = true
			c.mu.Unlock()
			c.log.Warn("search rate limited, enrichment disabled")
			return nil, ErrDisabled
		}
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	var r *Result
	if len(resp.Items) > 0 {
		top := resp.Items[0]
		r = &Result{Title: top.Title, Snippet: top.Snippet, Link: top.Link, DisplayLink: top.DisplayLink}
	}
	c.mu.Lock()
	c.cache[key] = r
	c.mu.Unlock()
	return r, nil
}

// titleSeparators split a page title from the site boilerplate after it.
var titleSeparators = []string{":", "|", " - ", " – ", " — "}

// SuggestName derives a business name from a result title, dropping the
// tagline after the first separator. It returns "" for a nil result.
func SuggestName(r *Result) string {
	if r == nil {
		return ""
	}
	title := strings.TrimSpace(r.Title)
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i > 0 {
			title = strings.TrimSpace(title[:i])
		}
	}
	return title
}
