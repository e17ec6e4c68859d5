// Package webflow reads CMS collections and items from the Webflow Data API v2.
//
// Items are exposed as a lazy, restartable sequence:
//
//	client := webflow.NewClient(webflow.Options{Token: token, SiteID: siteID})
//	for item, err := range client.Items(ctx, collectionID) {
//		if err != nil {
//			return err
//		}
//		// use item
//	}
package webflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
)

const (
	DefaultBaseURL  = "https://api.webflow.com/v2"
	DefaultPageSize = 100

	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	Token             string
	SiteID            string
	PageSize          int
	RequestsPerMinute int // 0 disables client-side limiting
	MaxRetries        int
	HTTPClient        *http.Client
	Logger            *zap.SugaredLogger
}

// Client interfaces with the Webflow Data API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	siteID     string
	pageSize   int
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

// NewClient creates a new Webflow API client
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		siteID:     opts.SiteID,
		pageSize:   opts.PageSize,
		maxRetries: opts.MaxRetries,
		retryDelay: initialRetryDelay,
		logger:     logging.OrNop(opts.Logger),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}
	return c
}

// PageSize returns the number of items requested per page.
func (c *Client) PageSize() int {
	return c.pageSize
}

type listCollectionsResponse struct {
	Collections []entities.SourceCollection `json:"collections"`
}

// ItemsPage is one page of the items endpoint.
type ItemsPage struct {
	Items      []entities.SourceItem `json:"items"`
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Total  int `json:"total"`
	} `json:"pagination"`
}

// ListCollections returns every CMS collection of the configured site.
func (c *Client) ListCollections(ctx context.Context) ([]entities.SourceCollection, error) {
	var resp listCollectionsResponse
	path := "/sites/" + url.PathEscape(c.siteID) + "/collections"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "list collections")
	}
	return resp.Collections, nil
}

// ListItems fetches a single page of items.
func (c *Client) ListItems(ctx context.Context, collectionID string, limit, offset int) (*ItemsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page ItemsPage
	path := "/collections/" + url.PathEscape(collectionID) + "/items"
	if err := c.get(ctx, path, q, &page); err != nil {
		return nil, errors.Wrapf(err, "list items of collection %s at offset %d", collectionID, offset)
	}
	return &page, nil
}

// Items returns every item of a collection as a lazy sequence. Each range over
// the sequence starts again from offset zero. Paging continues while a page
// comes back full, so a collection whose size is an exact multiple of the page
// size ends with one empty page. The first error is yielded once and ends the
// sequence.
func (c *Client) Items(ctx context.Context, collectionID string) iter.Seq2[entities.SourceItem, error] {
	return func(yield func(entities.SourceItem, error) bool) {
		offset := 0
		for {
			page, err := c.ListItems(ctx, collectionID, c.pageSize, offset)
			if err != nil {
				yield(entities.SourceItem{}, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			// Advance by what was returned, not by what was requested
			offset += len(page.Items)
			if len(page.Items) < c.pageSize {
				return
			}
		}
	}
}

// FetchAllItems collects every item of a collection.
func (c *Client) FetchAllItems(ctx context.Context, collectionID string) ([]entities.SourceItem, error) {
	var items []entities.SourceItem
	for item, err := range c.Items(ctx, collectionID) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindCollection resolves a collection by id, slug or display name.
func FindCollection(collections []entities.SourceCollection, ref string) (entities.SourceCollection, error) {
	for _, col := range collections {
		if col.Matches(ref) {
			return col, nil
		}
	}
	return entities.SourceCollection{}, errors.Wrapf(ErrNotFound, "collection %q", ref)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelayFor(attempt, lastErr)
			c.logger.Debugw("retrying webflow request", "path", path, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = c.doRequest(ctx, u, out)
		if lastErr == nil {
			return nil
		}

		// Only retry on rate limits or server errors
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}

	return errors.Wrap(lastErr, "max retries exceeded")
}

func (c *Client) doRequest(ctx context.Context, u string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// retryDelayFor prefers the server's Retry-After over the backoff schedule.
func (c *Client) retryDelayFor(attempt int, lastErr error) time.Duration {
	var remote *RemoteError
	if errors.As(lastErr, &remote) && remote.RetryAfter > 0 {
		return min(remote.RetryAfter, maxRetryDelay)
	}
	return c.calculateRetryDelay(attempt)
}

// parseRetryAfter reads delay-seconds or an HTTP date. Zero means absent.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func (c *Client) calculateRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// errorMessage pulls "message" out of a Webflow error body, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		if payload.Code != "" {
			return fmt.Sprintf("%s (%s)", payload.Message, payload.Code)
		}
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
