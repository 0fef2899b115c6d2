package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neboloop/turbo/internal/types"
)

// DefaultRemoteTimeout bounds a single remote call when the caller supplies
// no http.Client of its own.
const DefaultRemoteTimeout = 30 * time.Second

// Remote is the HTTP client for the REST service used as the browser
// fallback. Its methods return *RemoteError for non-2xx responses and the
// transport error otherwise.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote creates a client for baseURL (e.g. "http://localhost:3001").
// A nil client gets one with DefaultRemoteTimeout.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: DefaultRemoteTimeout}
	}
	return &Remote{base: strings.TrimRight(baseURL, "/"), client: client}
}

// BaseURL returns the service base URL.
func (r *Remote) BaseURL() string { return r.base }

// ReadFile returns the text content of path.
func (r *Remote) ReadFile(ctx context.Context, path string) (string, error) {
	body, err := r.do(ctx, http.MethodGet, "/api/fs/read?path="+url.QueryEscape(path), nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// WriteFile stores content at path.
func (r *Remote) WriteFile(ctx context.Context, path, content string) error {
	_, err := r.do(ctx, http.MethodPost, "/api/fs/write", &types.FSWriteRequest{Path: path, Content: &content})
	return err
}

// FileExists reports whether path exists on the service side.
func (r *Remote) FileExists(ctx context.Context, path string) (bool, error) {
	body, err := r.do(ctx, http.MethodGet, "/api/fs/exists?path="+url.QueryEscape(path), nil)
	if err != nil {
		return false, err
	}
	var resp types.FSExistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode exists response: %w", err)
	}
	return resp.Exists, nil
}

// Users fetches one page of the dummy dataset. Zero values let the service
// apply its defaults.
func (r *Remote) Users(ctx context.Context, page, limit int) (*types.PaginatedUsersResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/data/users/paginated"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	body, err := r.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out types.PaginatedUsersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode users response: %w", err)
	}
	return &out, nil
}

// Health pings the service.
func (r *Remote) Health(ctx context.Context) (*types.HealthResponse, error) {
	body, err := r.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	var out types.HealthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &out, nil
}

func (r *Remote) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage prefers the JSON {"error": "..."} field, then the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
