package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/circuitbreaker"
	"github.com/influencer-scout/backend/pkg/logger"
)

var (
	ErrUpstreamStatus = errors.New("upstream search API returned non-success status")
	ErrEmptyBody      = errors.New("upstream search API returned empty body")
	ErrMalformedBody  = errors.New("upstream search API returned malformed body")
)

// Page is one page of upstream search results plus the continuation state
// needed to request the next one.
type Page struct {
	Items    []models.Video
	HasMore  bool
	Cursor   int64
	SearchID string
}

type searchResponse struct {
	ItemList []models.Video `json:"item_list"`
	HasMore  bool           `json:"has_more"`
	Cursor   int64          `json:"cursor"`
	Extra    struct {
		LogID string `json:"logid"`
	} `json:"extra"`
}

type Config struct {
	BaseURL        string
	APIKey         string
	APIHost        string
	Timeout        time.Duration
	CallsPerMinute int
}

// Client talks to the third-party video search API. Every call first waits
// on an advisory rate limiter (delaying, never failing) and then runs under
// a circuit breaker so a flapping upstream fails fast instead of piling up.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
	limiter    *Limiter
	breaker    *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	callsPerMinute := cfg.CallsPerMinute
	if callsPerMinute == 0 {
		callsPerMinute = 30
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		apiHost: cfg.APIHost,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: NewLimiter(callsPerMinute, time.Minute),
		breaker: circuitbreaker.NewCircuitBreaker("tiktok-search", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			Logger:           logger.Log,
		}),
	}
}

// FetchPage requests one page of results. Non-2xx responses, empty bodies
// and unparsable payloads are all hard failures; there is no fallback to
// stale or mock data.
func (c *Client) FetchPage(ctx context.Context, keyword string, cursor int64, searchID string) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var page *Page
	err := c.breaker.Execute(ctx, func() error {
		var err error
		page, err = c.fetchPage(ctx, keyword, cursor, searchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) fetchPage(ctx context.Context, keyword string, cursor int64, searchID string) (*Page, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("cursor", fmt.Sprintf("%d", cursor))
	params.Set("search_id", searchID)

	reqURL := fmt.Sprintf("%s/api/search/video?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("Upstream search error",
			zap.Int("status", resp.StatusCode),
			zap.String("keyword", keyword),
		)
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrEmptyBody
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	page := &Page{
		Items:   parsed.ItemList,
		HasMore: parsed.HasMore,
		Cursor:  parsed.Cursor,
	}
	if parsed.Extra.LogID != "" {
		page.SearchID = parsed.Extra.LogID
	}

	logger.Debug("Search page fetched",
		zap.String("keyword", keyword),
		zap.Int("items", len(page.Items)),
		zap.Bool("has_more", page.HasMore),
		zap.Int64("cursor", page.Cursor),
	)

	return page, nil
}
