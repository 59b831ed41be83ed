// HTTP client adapter for the learning-resource REST API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/shared"
)

const (
	MessageTooManyRequests = "Too many requests. Please try again later."
	MessageServerError     = "Server error. Please try again later."
	MessageSessionExpired  = "Session expired. Please login again."
)

// CredentialSource supplies the bearer credential at send time.
type CredentialSource interface {
	Token() string
}

// Refresher renews the bearer credential after a 401.
//
// Refresh returns the replacement credential. Expire is called once a refresh fails
// and must leave the caller's session in a clean anonymous state.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
	Expire(ctx context.Context, cause error)
}

// Request describes a single API call.
//
// Attempt counts how many refresh cycles the call has already been through; a call with
// Attempt > 0 never triggers another refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON unless it is already a []byte or [json.RawMessage].
	Body any
	// Attempt is 0 for an originating request and 1 for its single retry.
	Attempt int
	// NoRefresh disables the refresh path, e.g. for the credential endpoints themselves.
	NoRefresh bool
	// Anonymous suppresses the Authorization header.
	Anonymous bool

	bearer string
}

// APIService is the single HTTP client adapter used by every API call.
type APIService struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	credentials CredentialSource
	refresher   Refresher
	notifier    shared.Notifier
	logger      *log.Logger
}

// NewAPIService creates a new API service instance for the learning-resource API.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = shared.DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		notifier:   shared.NopNotifier{},
	}
}

// BaseURL returns the API root every path is resolved against.
func (a *APIService) BaseURL() string { return a.baseURL }

// Authorize wires the credential source and the refresher used on 401 responses. Either may be nil.
func (a *APIService) Authorize(src CredentialSource, r Refresher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.credentials = src
	a.refresher = r
}

// SetNotifier sets the sink for rate-limit and server-error notices.
func (a *APIService) SetNotifier(n shared.Notifier) {
	if n == nil {
		n = shared.NopNotifier{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifier = n
}

// SetLogger enables debug logging of requests. Credentials are never logged.
func (a *APIService) SetLogger(l *log.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = l
}

func (a *APIService) deps() (CredentialSource, Refresher, shared.Notifier, *log.Logger) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.credentials, a.refresher, a.notifier, a.logger
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Decode unmarshals the body into out.
func (r *APIResponse) Decode(out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDecodeResponse, err)
	}
	return nil
}

// Do performs req and classifies any failure as an [*APIError].
//
// A 401 on an originating request triggers exactly one refresh through the configured
// [Refresher]; on success the request is re-issued once with the new credential, on failure
// the refresher's Expire hook runs and an error of kind [KindSessionExpired] is returned.
// If ctx ends while waiting on the refresh, the session is left alone and ctx.Err() is returned.
func (a *APIService) Do(ctx context.Context, req Request) (*APIResponse, error) {
	src, refresher, notifier, logger := a.deps()

	if !req.Anonymous && req.bearer == "" && src != nil {
		req.bearer = src.Token()
	}

	resp, err := a.send(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := newStatusError(req.Method, req.Path, resp.StatusCode, resp.Body)

	switch apiErr.Kind {
	case KindUnauthorized:
		if req.NoRefresh || req.Attempt > 0 || refresher == nil {
			return resp, apiErr
		}
		return a.retryAfterRefresh(ctx, req, refresher, apiErr, logger)
	case KindRateLimited:
		notifier.Notify(shared.Notice{Level: shared.NoticeWarn, Message: MessageTooManyRequests})
	case KindServer:
		notifier.Notify(shared.Notice{Level: shared.NoticeError, Message: MessageServerError})
	}

	return resp, apiErr
}

func (a *APIService) retryAfterRefresh(ctx context.Context, req Request, r Refresher, cause *APIError, logger *log.Logger) (*APIResponse, error) {
	if logger != nil {
		logger.Debug("refreshing credential", "method", req.Method, "path", req.Path)
	}

	token, err := r.Refresh(ctx)
	if err != nil && ctx.Err() != nil {
		// The caller gave up; the session itself is still intact.
		return nil, &APIError{Kind: KindNetwork, Method: req.Method, Path: req.Path, Err: ctx.Err()}
	}
	if err != nil || token == "" {
		if err == nil {
			err = shared.ErrRefreshFailed
		}
		r.Expire(ctx, err)
		return nil, &APIError{
			Kind:    KindSessionExpired,
			Method:  req.Method,
			Path:    req.Path,
			Status:  cause.Status,
			Message: MessageSessionExpired,
			Err:     errors.Join(shared.ErrRefreshFailed, err),
		}
	}

	retry := req
	retry.Attempt = req.Attempt + 1
	retry.bearer = token
	return a.Do(ctx, retry)
}

func (a *APIService) send(ctx context.Context, req Request, logger *log.Logger) (*APIResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	req.Method = method

	fullURL := a.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &APIError{Kind: KindDecode, Method: method, Path: req.Path, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Method: method, Path: req.Path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Method: method, Path: req.Path, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Method: method, Path: req.Path, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if logger != nil {
		logger.Debug("api request", "method", method, "path", req.Path, "status", resp.StatusCode, "attempt", req.Attempt)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func encodeBody(v any) (io.Reader, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// Call performs req and decodes a successful JSON body into out.
func (a *APIService) Call(ctx context.Context, req Request, out any) error {
	resp, err := a.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return &APIError{Kind: KindDecode, Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// Get performs an authenticated GET request and returns the raw response.
//
// A non-2xx status is reported through the error; the response is still returned when one was received.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post performs an authenticated POST request with the given JSON data.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	var body any
	if len(data) > 0 {
		body = data
	}
	return a.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Delete performs an authenticated DELETE request.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}
