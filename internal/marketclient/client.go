// Package marketclient implements the REST client against the upstream
// market-data capability: the leaderboard of top traders, per-address
// trade history, and per-address position snapshots. It is a
// resty.Client with a base URL, bounded retry on transient failures, and
// a rate limiter consulted before every request, but every endpoint here
// is a read, and 429s are treated as their own retryable category
// distinct from 5xx.
package marketclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	"hlcopy/internal/hlerr"
	"hlcopy/internal/ratelimit"
)

// Client is the REST client for the upstream leaderboard/trades/positions
// endpoints.
type Client struct {
	http    *resty.Client
	limits  *ratelimit.Group
	logger  *slog.Logger
	maxPage int // hard cap on paginated records per address (default 1000)
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithMaxPageRecords overrides the default pagination cap.
func WithMaxPageRecords(n int) Option {
	return func(c *Client) { c.maxPage = n }
}

// New creates a Client against baseURL, authenticated with apiKey, rate
// limited by limits.
func New(baseURL, apiKey string, limits *ratelimit.Group, logger *slog.Logger, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(4).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}

	c := &Client{
		http:    httpClient,
		limits:  limits,
		logger:  logger,
		maxPage: 1000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// classifyStatus maps an HTTP status code to an hlerr.Kind for non-2xx
// responses that survived resty's retry budget.
func classifyStatus(status int) hlerr.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return hlerr.RateLimited
	case status >= 500:
		return hlerr.TransientNetwork
	default:
		return hlerr.ApiError
	}
}

// NormalizeAddress lowercases and validates a 42-char hex address using
// go-ethereum's address parsing, the one piece of that dependency this
// domain actually needs (there is no on-chain signing here).
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", hlerr.New(hlerr.MalformedResponse, fmt.Sprintf("invalid address: %q", addr))
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

func wrapHTTPErr(kind hlerr.Kind, op string, err error) error {
	return hlerr.Wrap(kind, op, err)
}

// statusErr builds an hlerr.Error from the resty response for a non-2xx,
// non-retried-away status, classifying the kind from the status code.
func statusErr(op string, resp *resty.Response) error {
	kind := classifyStatus(resp.StatusCode())
	return hlerr.New(kind, fmt.Sprintf("%s: status %d: %s", op, resp.StatusCode(), truncate(resp.String(), 300)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
