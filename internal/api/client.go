package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/logger"
	"github.com/spigell/hr-pilot/internal/session"
)

const (
	apiURL          = "http://127.0.0.1:8000/api"
	userAgent       = "spigell/hr-pilot"
	acceptEncoding  = "gzip"
	requestIDHeader = "X-Request-ID"
)

// Client is the single point of contact with the backend REST API. It
// attaches the session token, encodes bodies and turns every failure into a
// *RequestError. It never retries and sets no timeout of its own.
type Client struct {
	session   *session.Session
	navigator Navigator
	logger    *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(sess *session.Session, navigator Navigator, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if navigator == nil {
		navigator = NewLocation("")
	}

	if sess == nil {
		// A memory store never fails to load.
		sess, _ = session.Open(session.NewMemoryStore(""))
	}

	return &Client{
		session:    sess,
		navigator:  navigator,
		logger:     logger,
		HTTPClient: &http.Client{},
		UserAgent:  userAgent,
		APIURL:     apiURL,
	}
}

// Get issues a GET and returns the decoded JSON body.
func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST. A nil body sends no payload and no Content-Type.
func (c *Client) Post(ctx context.Context, path string, body Body) (any, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Upload issues a multipart POST.
func (c *Client) Upload(ctx context.Context, path string, payload *MultipartBody) (any, error) {
	if payload == nil {
		payload = &MultipartBody{}
	}

	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) Token() string {
	return c.session.Token()
}

func (c *Client) SetToken(token string) error {
	return c.session.SetToken(token)
}

// Session exposes the session the client reads its token from.
func (c *Client) Session() *session.Session {
	return c.session
}

// Logout clears the token and sends the navigator to the login page. The
// redirect happens even if the store could not be cleared.
func (c *Client) Logout() error {
	err := c.session.Clear()
	c.navigator.Redirect(PageLogin)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body Body) (any, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Err: err}
	}

	resp, err := c.request(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, &RequestError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.unauthorized(resp)
	}

	reader, err := responseReader(resp)
	if err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Status: resp.Status, Message: err.Error(), Err: err}
	}
	defer reader.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A body that cannot be read is treated like one that cannot be parsed.
		data, _ := io.ReadAll(reader)
		reqErr := newStatusError(resp, data)

		if errors.Is(reqErr, ErrSubscriptionLimit) {
			c.logger.Warn("subscription limit reached", zap.String("redirect", PageLimitReached))
			c.navigator.Redirect(PageLimitReached)
		}

		c.logger.Debug("request rejected",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("message", reqErr.Message),
		)

		return nil, reqErr
	}

	var result any
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    fmt.Sprintf("decoding response: %v", err),
			Err:        err,
		}
	}

	return result, nil
}

// unauthorized applies the session expiry policy: a 401 on a protected page
// with a stored token ends the session; anywhere else it is a plain failure.
func (c *Client) unauthorized(resp *http.Response) error {
	page := c.navigator.CurrentPage()

	if !IsPublicPage(page) && c.session.Authenticated() {
		c.logger.Warn("session expired, please log in again", zap.String("page", page))
		if err := c.Logout(); err != nil {
			c.logger.Warn("clearing expired session", zap.Error(err))
		}
	}

	return &RequestError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    unauthorizedMessage,
		Err:        ErrUnauthorized,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body Body) (*http.Request, error) {
	var (
		payload     io.Reader
		contentType string
	)

	if body != nil {
		var err error
		payload, contentType, err = body.encode()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIURL+path, payload)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", logger.RequestFields(req.Method, req.URL.String(), req.Header.Get(requestIDHeader))...)

	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set(requestIDHeader, uuid.NewString())

	return req
}

// responseReader undoes gzip content encoding. Setting Accept-Encoding by
// hand disables the transport's own decompression.
func responseReader(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		return reader, nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
