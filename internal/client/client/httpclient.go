package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/invoiceclient/internal/common"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const defaultDownloadName = "download"

// Outcome is the result of a single attempt. NeedsRetry is set after a 401
// was recovered by refreshing the access token; the caller should resend
// the same request once.
type Outcome struct {
	NeedsRetry bool
	StatusCode int
	Body       []byte
}

// payload is a request body that can be sent more than once.
type payload struct {
	data        []byte
	contentType string
}

func jsonPayload(body any) (payload, error) {
	if body == nil {
		return payload{contentType: common.JSONContentType}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return payload{}, fmt.Errorf("encode request body: %w", err)
	}
	return payload{data: data, contentType: common.JSONContentType}, nil
}

// HTTPClient talks to the invoice REST API. It attaches the bearer token
// from its TokenSource and recovers from an expired access token by
// refreshing it once and resending the request.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	log     logging.Logger
	nav     Navigator
	saver   FileSaver

	mu     sync.RWMutex
	tokens TokenSource

	refreshGroup singleflight.Group
}

// New builds a client for the API rooted at baseURL, e.g.
// http://localhost:5000/api.
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:     logging.Discard(),
		nav:     NavigatorFunc(func(context.Context, string) {}),
		saver:   DirSaver{Dir: "downloads"},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// SetTokenSource attaches the session after construction.
func (c *HTTPClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *HTTPClient) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *HTTPClient) accessToken() string {
	if ts := c.tokenSource(); ts != nil {
		return ts.AccessToken()
	}
	return ""
}

// Request performs one attempt. On 2xx it returns the raw body. On 401 it
// refreshes the access token and reports NeedsRetry; when the refresh
// fails the session is logged out, the user is sent to /login and
// common.ErrAuthExpired is returned. Other statuses yield *APIError.
func (c *HTTPClient) Request(ctx context.Context, method, path string, body any, query Params) (Outcome, error) {
	p, err := jsonPayload(body)
	if err != nil {
		return Outcome{}, err
	}
	return c.attempt(ctx, method, path, p, query, true)
}

// Do runs Request and resends once when asked to. A second 401 is returned
// as *APIError without another refresh. When out is non-nil the 2xx body
// is decoded into it.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, query Params, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, p, query, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, p payload, query Params, out any) error {
	o, err := c.attempt(ctx, method, path, p, query, true)
	if err != nil {
		return err
	}
	if o.NeedsRetry {
		c.log.Debug(ctx, "retrying after token refresh", "method", method, "endpoint", path)
		o, err = c.attempt(ctx, method, path, p, query, false)
		if err != nil {
			return err
		}
	}
	return decode(o.Body, out)
}

// CallWithToken performs one attempt with an explicit bearer token and no
// refresh handling. Auth endpoints use it.
func (c *HTTPClient) CallWithToken(ctx context.Context, method, path, token string, body, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}

	resp, respBody, err := c.send(ctx, method, path, p, nil, token)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp, respBody)}
	}
	return decode(respBody, out)
}

func (c *HTTPClient) attempt(ctx context.Context, method, path string, p payload, query Params, allowRefresh bool) (Outcome, error) {
	token := c.accessToken()

	resp, body, err := c.send(ctx, method, path, p, query, token)
	if err != nil {
		return Outcome{}, err
	}

	if isSuccess(resp.StatusCode) {
		return Outcome{StatusCode: resp.StatusCode, Body: body}, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp, body)}

	if resp.StatusCode != http.StatusUnauthorized || !allowRefresh {
		return Outcome{StatusCode: resp.StatusCode}, apiErr
	}

	if err := c.recoverUnauthorized(ctx, token); err != nil {
		return Outcome{StatusCode: resp.StatusCode}, err
	}
	return Outcome{NeedsRetry: true, StatusCode: resp.StatusCode}, nil
}

// recoverUnauthorized refreshes the access token after a 401. Concurrent
// callers share one refresh; a token that already changed since the
// request was sent is reused without refreshing again. A token that was
// cleared since then means another caller already logged out, so this one
// fails without a second logout or redirect.
func (c *HTTPClient) recoverUnauthorized(ctx context.Context, usedToken string) error {
	ts := c.tokenSource()
	if ts == nil {
		c.nav.Navigate(ctx, common.LoginPath)
		return common.ErrAuthExpired
	}

	switch current := ts.AccessToken(); {
	case current == "" && usedToken != "":
		return common.ErrAuthExpired
	case current != "" && current != usedToken:
		return nil
	}

	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		if _, err := ts.RefreshAccessToken(ctx); err != nil {
			c.log.Warn(ctx, "token refresh failed, logging out", "error", err)
			ts.Logout(ctx)
			c.nav.Navigate(ctx, common.LoginPath)
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthExpired, err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, p payload, query Params, token string) (*http.Request, error) {
	var body io.Reader
	if p.data != nil {
		body = bytes.NewReader(p.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, buildURL(c.baseURL, path, query), body)
	if err != nil {
		return nil, err
	}
	if p.contentType != "" {
		req.Header.Set(common.ContentTypeHeader, p.contentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	req.Header.Set(common.RequestIDHeader, uuid.NewString())
	return req, nil
}

// send performs the round trip and reads the whole body.
func (c *HTTPClient) send(ctx context.Context, method, path string, p payload, query Params, token string) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, p, query, token)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Error(ctx, "api call failed", "method", method, "endpoint", path, "error", err)
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error(ctx, "api call failed", "method", method, "endpoint", path, "error", err)
		return nil, nil, err
	}

	c.log.Debug(ctx, "api call", "method", method, "endpoint", path, "status", resp.StatusCode)
	return resp, body, nil
}

// Get issues a GET with params encoded in the query string.
func (c *HTTPClient) Get(ctx context.Context, path string, params Params, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, params, out)
}

// Post JSON-encodes body when it is non-nil.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, nil, out)
}

func (c *HTTPClient) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, nil, out)
}

func (c *HTTPClient) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, nil, out)
}

func (c *HTTPClient) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// GetPaginated sets page and per_page, then overlays extra.
func (c *HTTPClient) GetPaginated(ctx context.Context, path string, page, perPage int, extra Params, out any) error {
	params := Params{"page": page, "per_page": perPage}.Merge(extra)
	return c.Get(ctx, path, params, out)
}

// Search sets search and the comma-joined fields (omitted when empty), then
// overlays extra.
func (c *HTTPClient) Search(ctx context.Context, path, query string, fields []string, extra Params, out any) error {
	params := Params{"search": query}
	if len(fields) > 0 {
		params["fields"] = strings.Join(fields, ",")
	}
	return c.Get(ctx, path, params.Merge(extra), out)
}

// UploadFile POSTs a multipart form with r under the "file" field plus the
// extra fields as strings. The multipart content type replaces the JSON one.
func (c *HTTPClient) UploadFile(ctx context.Context, path, filename string, r io.Reader, extra map[string]any, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := formatParam(extra[k])
		if !ok {
			continue
		}
		if err := w.WriteField(k, s); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	p := payload{data: buf.Bytes(), contentType: w.FormDataContentType()}
	return c.do(ctx, http.MethodPost, path, p, nil, out)
}

// DownloadFile GETs path with the auth headers and hands the body to the
// FileSaver under filename ("download" when empty). It returns the saved
// location.
func (c *HTTPClient) DownloadFile(ctx context.Context, path, filename string) (string, error) {
	if filename == "" {
		filename = defaultDownloadName
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, payload{contentType: common.JSONContentType}, nil, c.accessToken())
	if err != nil {
		return "", err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Error(ctx, "file download failed", "endpoint", path, "error", err)
		return "", err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		err := fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
		c.log.Error(ctx, "file download failed", "endpoint", path, "error", err)
		return "", err
	}

	location, err := c.saver.Save(ctx, filename, resp.Body)
	if err != nil {
		c.log.Error(ctx, "file download failed", "endpoint", path, "error", err)
		return "", err
	}
	return location, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// errorMessage extracts the "error" field of a JSON body. A JSON body
// without it gives the generic message; a non-JSON body gives the status
// text.
func errorMessage(resp *http.Response, body []byte) string {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		if text := http.StatusText(resp.StatusCode); text != "" {
			return text
		}
		return defaultErrorMessage
	}

	if m, ok := parsed.(map[string]any); ok {
		if s, ok := m["error"].(string); ok && s != "" {
			return s
		}
	}
	return defaultErrorMessage
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Join(common.ErrInvalidResponse, err)
	}
	return nil
}
