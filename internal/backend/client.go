package backend

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
)

// Client is the surface the rest of the gateway depends on. RESTClient
// implements it against the real backend; MockClient satisfies it without
// network I/O.
type Client interface {
	// InsertRow inserts a record into a table and returns the inserted
	// representation.
	InsertRow(ctx context.Context, table string, record interface{}) ([]byte, error)

	// SelectRows queries a table. Filter values use the operator syntax,
	// e.g. {"email": "eq.a@b.c"}.
	SelectRows(ctx context.Context, table string, filters map[string]string) ([]byte, error)

	// GetUser verifies an access token against the identity endpoint.
	GetUser(ctx context.Context, accessToken string) (*User, error)

	// UploadObject stores a blob in a bucket and returns the object key.
	UploadObject(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error)
}

// RESTClient talks to the backend data service over its REST surface.
type RESTClient struct {
	baseURL    string
	restURL    string
	authURL    string
	storageURL string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a client for the given endpoint/key.
func NewRESTClient(cfg Config) (*RESTClient, error) {
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("endpoint URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := strings.TrimRight(cfg.EndpointURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &RESTClient{
		baseURL:    baseURL,
		restURL:    baseURL + "/rest/v1",
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// InsertRow inserts a record and asks for the stored representation back.
func (c *RESTClient) InsertRow(ctx context.Context, table string, record interface{}) ([]byte, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL+"/"+table, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	respBody, statusCode, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	return respBody, nil
}

// SelectRows queries a table with the given filters.
func (c *RESTClient) SelectRows(ctx context.Context, table string, filters map[string]string) ([]byte, error) {
	params := url.Values{}
	params.Set("select", "*")
	for column, condition := range filters {
		params.Add(column, condition)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/"+table+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req, "")

	respBody, statusCode, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	return respBody, nil
}

// GetUser verifies an access token against the identity endpoint.
func (c *RESTClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req, accessToken)

	respBody, statusCode, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &user, nil
}

// UploadObject stores a blob and returns the object key reported by the
// backend, falling back to bucket/path when the response omits it.
func (c *RESTClient) UploadObject(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.storageURL+"/object/"+bucket+"/"+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req, "")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	respBody, statusCode, err := c.do(req)
	if err != nil {
		return "", err
	}
	if statusCode >= 400 {
		return "", parseError(respBody, statusCode)
	}

	var uploadResp struct {
		Key string `json:"Key"`
	}
	if err := json.Unmarshal(respBody, &uploadResp); err == nil && uploadResp.Key != "" {
		return uploadResp.Key, nil
	}

	return bucket + "/" + objectPath, nil
}

// setHeaders attaches the apikey header plus a bearer: the caller's access
// token when verifying identity, otherwise the client's own key.
func (c *RESTClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *RESTClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
