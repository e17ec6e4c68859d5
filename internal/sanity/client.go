// Package sanity talks to the Sanity HTTP API: document mutations, GROQ
// queries and image asset uploads.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
	"github.com/mrlokans/cms-migrator/internal/storage"
)

const (
	DefaultAPIVersion = "2024-01-01"
	defaultTimeout    = 60 * time.Second
)

// Options configures a Client. BaseURL overrides https://<project>.api.sanity.io.
type Options struct {
	ProjectID  string
	Dataset    string
	Token      string
	APIVersion string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client is a Sanity dataset client
type Client struct {
	baseURL    string
	dataset    string
	token      string
	apiVersion string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

var _ storage.AssetStore = (*Client)(nil)

// NewClient creates a client bound to one project dataset
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		dataset:    opts.Dataset,
		token:      opts.Token,
		apiVersion: strings.TrimPrefix(opts.APIVersion, "v"),
		httpClient: opts.HTTPClient,
		logger:     logging.OrNop(opts.Logger),
	}
	if c.baseURL == "" {
		c.baseURL = fmt.Sprintf("https://%s.api.sanity.io", opts.ProjectID)
	}
	if c.apiVersion == "" {
		c.apiVersion = DefaultAPIVersion
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Dataset returns the dataset name the client writes to.
func (c *Client) Dataset() string {
	return c.dataset
}

// Mutation is one entry of a mutate request, e.g. {"create": {...}}.
type Mutation map[string]any

func CreateMutation(doc map[string]any) Mutation {
	return Mutation{"create": doc}
}

func PatchMutation(id string, set map[string]any) Mutation {
	return Mutation{"patch": map[string]any{"id": id, "set": set}}
}

func DeleteQueryMutation(query string, params map[string]any) Mutation {
	del := map[string]any{"query": query}
	if len(params) > 0 {
		del["params"] = params
	}
	return Mutation{"delete": del}
}

type MutationResult struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

type MutateResponse struct {
	TransactionID string           `json:"transactionId"`
	Results       []MutationResult `json:"results"`
}

// Mutate submits mutations as one transaction and waits until they are visible to queries.
func (c *Client) Mutate(ctx context.Context, mutations ...Mutation) (*MutateResponse, error) {
	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal mutations")
	}

	q := url.Values{}
	q.Set("returnIds", "true")
	q.Set("visibility", "sync")

	var resp MutateResponse
	endpoint := c.apiURL("/data/mutate/"+url.PathEscape(c.dataset), q)
	if err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Create writes one document and returns its id.
func (c *Client) Create(ctx context.Context, doc map[string]any) (string, error) {
	resp, err := c.Mutate(ctx, CreateMutation(doc))
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 || resp.Results[0].ID == "" {
		return "", errors.Newf("create returned no document id (transaction %s)", resp.TransactionID)
	}
	return resp.Results[0].ID, nil
}

// Patch sets attributes on an existing document.
func (c *Client) Patch(ctx context.Context, id string, set map[string]any) error {
	_, err := c.Mutate(ctx, PatchMutation(id, set))
	return err
}

// DeleteByQuery deletes every document matched by query and returns how many were removed.
func (c *Client) DeleteByQuery(ctx context.Context, query string, params map[string]any) (int, error) {
	resp, err := c.Mutate(ctx, DeleteQueryMutation(query, params))
	if err != nil {
		return 0, err
	}
	return len(resp.Results), nil
}

// Query runs a GROQ query and decodes its result into out.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, out any) error {
	q := url.Values{}
	q.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "failed to encode query param %s", name)
		}
		q.Set("$"+name, string(encoded))
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	endpoint := c.apiURL("/data/query/"+url.PathEscape(c.dataset), q)
	if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &resp); err != nil {
		return err
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrap(err, "failed to decode query result")
	}
	return nil
}

// Count returns the number of documents of a type.
func (c *Client) Count(ctx context.Context, docType string) (int, error) {
	var n int
	err := c.Query(ctx, `count(*[_type == $type])`, map[string]any{"type": docType}, &n)
	return n, err
}

// FindIDBySlug returns the id of the document of docType with the given slug,
// or "" when there is none.
func (c *Client) FindIDBySlug(ctx context.Context, docType, slug string) (string, error) {
	var id *string
	err := c.Query(ctx, `*[_type == $type && slug.current == $slug][0]._id`,
		map[string]any{"type": docType, "slug": slug}, &id)
	if err != nil || id == nil {
		return "", err
	}
	return *id, nil
}

// Ping checks credentials and dataset access with a trivial query.
func (c *Client) Ping(ctx context.Context) error {
	var n int
	return c.Query(ctx, `count(*[_type == "sanity.imageAsset"])`, nil, &n)
}

type assetResponse struct {
	Document struct {
		ID  string `json:"_id"`
		URL string `json:"url"`
	} `json:"document"`
}

// UploadAsset stores an image asset. Sanity deduplicates image assets by
// content hash, so uploading the same bytes twice returns the same asset id.
func (c *Client) UploadAsset(ctx context.Context, upload storage.Upload) (*entities.AssetReference, error) {
	q := url.Values{}
	q.Set("filename", upload.Filename)

	var resp assetResponse
	endpoint := c.apiURL("/assets/images/"+url.PathEscape(c.dataset), q)
	if err := c.do(ctx, http.MethodPost, endpoint, upload.ContentType, upload.Content, &resp); err != nil {
		return nil, err
	}
	if resp.Document.ID == "" {
		return nil, errors.New("asset upload returned no document id")
	}

	c.logger.Debugw("uploaded image asset", "filename", upload.Filename, "asset_id", resp.Document.ID)
	return &entities.AssetReference{AssetID: resp.Document.ID, URL: resp.Document.URL}, nil
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := c.baseURL + "/v" + c.apiVersion + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WriteError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
