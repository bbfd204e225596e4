package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FormatCD restricts searches to compact discs.
const FormatCD = "CD"

// Catalog defines the Discogs operations used by identification.
type Catalog interface {
	Search(ctx context.Context, params SearchParams) (*SearchResponse, error)
	GetRelease(ctx context.Context, releaseID int64) (*Release, error)
}

// Credentials holds either a personal token or a key/secret pair.
type Credentials struct {
	Token  string
	Key    string
	Secret string
}

func (c Credentials) header() (string, error) {
	if token := strings.TrimSpace(c.Token); token != "" {
		return "Discogs token=" + token, nil
	}
	key := strings.TrimSpace(c.Key)
	secret := strings.TrimSpace(c.Secret)
	if key != "" && secret != "" {
		return fmt.Sprintf("Discogs key=%s, secret=%s", key, secret), nil
	}
	return "", errors.New("discogs token or key/secret pair required")
}

// Client provides access to the Discogs database API.
type Client struct {
	authHeader string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a Discogs client.
func New(creds Credentials, baseURL, userAgent string, opts ...Option) (*Client, error) {
	authHeader, err := creds.header()
	if err != nil {
		return nil, err
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("discogs base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("discogs user agent required")
	}
	client := &Client{
		authHeader: authHeader,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchParams selects one search strategy. Exactly one of Barcode, CatNo or
// Query is expected; Format and PerPage are optional filters.
type SearchParams struct {
	Barcode string
	CatNo   string
	Query   string
	Format  string
	PerPage int
}

func (p SearchParams) values() (url.Values, error) {
	params := url.Values{}
	params.Set("type", "release")
	switch {
	case strings.TrimSpace(p.Barcode) != "":
		params.Set("barcode", strings.TrimSpace(p.Barcode))
	case strings.TrimSpace(p.CatNo) != "":
		params.Set("catno", strings.TrimSpace(p.CatNo))
	case strings.TrimSpace(p.Query) != "":
		params.Set("q", strings.TrimSpace(p.Query))
	default:
		return nil, errors.New("search requires barcode, catno or query")
	}
	if format := strings.TrimSpace(p.Format); format != "" {
		params.Set("format", format)
	}
	if p.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return params, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	Operation  string
	StatusCode int
	Latency    time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("discogs %s returned %d (latency=%v)", e.Operation, e.StatusCode, e.Latency)
	}
	return fmt.Sprintf("discogs %s returned %d (latency=%v): %s", e.Operation, e.StatusCode, e.Latency, e.Body)
}

// NotFound reports whether the response was a 404.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RateLimited reports whether Discogs throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Search queries /database/search.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	values, err := params.values()
	if err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(c.baseURL + "/database/search")
	if err != nil {
		return nil, fmt.Errorf("parse discogs url: %w", err)
	}
	endpoint.RawQuery = values.Encode()

	var payload SearchResponse
	if err := c.getJSON(ctx, "search", endpoint.String(), &payload); err != nil {
		return nil, err
	}
	if params.PerPage > 0 && len(payload.Results) > params.PerPage {
		payload.Results = payload.Results[:params.PerPage]
	}
	return &payload, nil
}

// GetRelease fetches full release details.
func (c *Client) GetRelease(ctx context.Context, releaseID int64) (*Release, error) {
	if releaseID <= 0 {
		return nil, errors.New("release id must be positive")
	}
	endpoint, err := url.Parse(c.baseURL + "/releases/" + strconv.FormatInt(releaseID, 10))
	if err != nil {
		return nil, fmt.Errorf("parse discogs url: %w", err)
	}
	var payload Release
	if err := c.getJSON(ctx, "release", endpoint.String(), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, operation, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.discogs.v2.discogs+json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Latency:    latency,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode discogs %s response: %w", operation, err)
	}
	return nil
}
