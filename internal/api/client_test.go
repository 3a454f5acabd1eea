package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hr-pilot/internal/session"
)

type captured struct {
	method      string
	path        string
	header      http.Header
	body        []byte
	contentType string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []captured
	status   int
	body     string
	gzip     bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, captured{
		method:      r.Method,
		path:        r.URL.RequestURI(),
		header:      r.Header.Clone(),
		body:        data,
		contentType: r.Header.Get("Content-Type"),
	})
	status, body, compress := f.status, f.body, f.gzip
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	if compress {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(status)
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(body))
		_ = gz.Close()
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeBackend) last(t *testing.T) captured {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "no request reached the backend")
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, backend *fakeBackend, token, page string) (*Client, *Location, *session.Session) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	sess, err := session.Open(session.NewMemoryStore(token))
	require.NoError(t, err)

	location := NewLocation(page)
	client := New(sess, location, zap.NewNop())
	client.APIURL = srv.URL + "/api"

	return client, location, sess
}

func TestBearerHeader(t *testing.T) {
	backend := &fakeBackend{body: `{}`}

	client, _, sess := newTestClient(t, backend, "secret-token", PageDashboard)
	_, err := client.Get(context.Background(), "/vacancies/")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", backend.last(t).header.Get("Authorization"))
	assert.Equal(t, "/api/vacancies/", backend.last(t).path)
	assert.NotEmpty(t, backend.last(t).header.Get(requestIDHeader))

	require.NoError(t, sess.Clear())
	_, err = client.Get(context.Background(), "/vacancies/")
	require.NoError(t, err)
	_, present := backend.last(t).header["Authorization"]
	assert.False(t, present, "no Authorization header without a token")
}

func TestPostEncodings(t *testing.T) {
	backend := &fakeBackend{body: `{"ok": true}`}
	client, _, _ := newTestClient(t, backend, "", PageLogin)
	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		_, err := client.Post(ctx, "/vacancies/", JSONBody{Value: map[string]any{"a": 1}})
		require.NoError(t, err)

		req := backend.last(t)
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "application/json", req.contentType)
		assert.JSONEq(t, `{"a": 1}`, string(req.body))
	})

	t.Run("form", func(t *testing.T) {
		_, err := client.Post(ctx, "/auth/login", FormBody{"username": {"hr@example.com"}, "password": {"p@ss"}})
		require.NoError(t, err)

		req := backend.last(t)
		assert.Equal(t, "application/x-www-form-urlencoded", req.contentType)
		values, err := url.ParseQuery(string(req.body))
		require.NoError(t, err)
		assert.Equal(t, "hr@example.com", values.Get("username"))
		assert.Equal(t, "p@ss", values.Get("password"))
	})

	t.Run("no body", func(t *testing.T) {
		_, err := client.Post(ctx, "/candidates/1/analyze", nil)
		require.NoError(t, err)

		req := backend.last(t)
		assert.Empty(t, req.contentType)
		assert.Empty(t, req.body)
	})
}

func TestUploadMultipart(t *testing.T) {
	backend := &fakeBackend{body: `{"id": 7}`}
	client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

	payload := &MultipartBody{}
	payload.AddField("note", "first round")
	payload.AddFile("file", "cv.txt", strings.NewReader("Go developer"))

	result, err := client.Upload(context.Background(), "/candidates/upload?vacancy_id=3", payload)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(7)}, result)

	req := backend.last(t)
	assert.Equal(t, "/api/candidates/upload?vacancy_id=3", req.path)

	mediaType, params, err := mime.ParseMediaType(req.contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	require.NotEmpty(t, params["boundary"])

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"first round"}, form.Value["note"])
	require.Len(t, form.File["file"], 1)
	assert.Equal(t, "cv.txt", form.File["file"][0].Filename)
}

func TestPostNilMultipartBody(t *testing.T) {
	backend := &fakeBackend{body: `{}`}
	client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

	_, err := client.Post(context.Background(), "/candidates/upload", (*MultipartBody)(nil))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(backend.last(t).contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.NotEmpty(t, params["boundary"])
}

func TestUnauthorizedOnProtectedPageEndsSession(t *testing.T) {
	backend := &fakeBackend{status: http.StatusUnauthorized, body: `{"detail": "Could not validate credentials"}`}

	core, logs := observer.New(zapcore.WarnLevel)
	client, location, sess := newTestClient(t, backend, "expired", PageDashboard)
	client.logger = zap.New(core)

	_, err := client.Get(context.Background(), "/analytics/")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Unauthorized", err.Error())

	assert.False(t, sess.Authenticated(), "token must be cleared")
	assert.Equal(t, []string{PageLogin}, location.Redirects())
	assert.Equal(t, PageLogin, location.CurrentPage())
	assert.Equal(t, 1, logs.FilterMessage("session expired, please log in again").Len())
}

func TestUnauthorizedOnPublicPageOrWithoutToken(t *testing.T) {
	cases := []struct {
		name  string
		token string
		page  string
	}{
		{name: "login page", token: "tok", page: "/app/" + PageLogin},
		{name: "register page", token: "tok", page: PageRegister},
		{name: "landing page", token: "tok", page: PageLanding},
		{name: "site root", token: "tok", page: "/"},
		{name: "protected page without token", token: "", page: PageDashboard},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{status: http.StatusUnauthorized, body: `{"detail": "Incorrect email or password"}`}
			client, location, sess := newTestClient(t, backend, tc.token, tc.page)

			_, err := client.Post(context.Background(), "/auth/login", FormBody{"username": {"x"}})
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, "Unauthorized", reqErr.Message)
			assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)

			assert.Empty(t, location.Redirects())
			assert.Equal(t, tc.token, sess.Token())
		})
	}
}

func TestSubscriptionLimitRedirects(t *testing.T) {
	backend := &fakeBackend{
		status: http.StatusPaymentRequired,
		body:   `{"detail": {"error": "SUBSCRIPTION_LIMIT_REACHED", "msg": "Resume limit reached"}}`,
	}
	client, location, sess := newTestClient(t, backend, "tok", PageDashboard)

	var redirected string
	location.OnRedirect = func(target string) { redirected = target }

	_, err := client.Upload(context.Background(), "/candidates/upload?vacancy_id=1", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSubscriptionLimit)
	assert.Equal(t, "Resume limit reached", err.Error())

	assert.Equal(t, PageLimitReached, redirected)
	assert.Equal(t, "pricing.html?error=limit_reached", location.CurrentPage())
	assert.True(t, sess.Authenticated(), "402 keeps the session")
}

func TestPaymentRequiredWithoutSentinel(t *testing.T) {
	backend := &fakeBackend{status: http.StatusPaymentRequired, body: `{"detail": {"error": "OTHER"}}`}
	client, location, _ := newTestClient(t, backend, "tok", PageDashboard)

	_, err := client.Get(context.Background(), "/candidates/")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSubscriptionLimit))
	assert.Empty(t, location.Redirects())
	assert.Equal(t, `{"error":"OTHER"}`, err.Error())
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		expect string
	}{
		{name: "string detail", status: 400, body: `{"detail": "Invalid credentials"}`, expect: "Invalid credentials"},
		{name: "object detail msg", status: 422, body: `{"detail": {"msg": "too short"}}`, expect: "too short"},
		{name: "object detail without msg", status: 400, body: `{"detail": {"error": "BAD"}}`, expect: `{"error":"BAD"}`},
		{name: "list detail", status: 422, body: `{"detail": [{"loc": ["body"], "msg": "field required"}]}`, expect: `[{"loc":["body"],"msg":"field required"}]`},
		{name: "top level message", status: 500, body: `{"message": "boom"}`, expect: "boom"},
		{name: "unparseable body", status: 404, body: `<html>not found</html>`, expect: "Not Found"},
		{name: "empty object", status: 503, body: `{}`, expect: "Service Unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{status: tc.status, body: tc.body}
			client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

			_, err := client.Get(context.Background(), "/vacancies/1")
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tc.expect, reqErr.Message)
			assert.Equal(t, tc.status, reqErr.StatusCode)
		})
	}
}

func TestSuccessReturnsBodyUnmodified(t *testing.T) {
	payload := `{"active_vacancies": 3, "top_skills": ["Go", "SQL"], "avg_ai_score": 71.5, "nested": {"k": null}}`

	for _, compressed := range []bool{false, true} {
		backend := &fakeBackend{body: payload, gzip: compressed}
		client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

		result, err := client.Get(context.Background(), "/analytics/")
		require.NoError(t, err)

		var expected any
		require.NoError(t, json.Unmarshal([]byte(payload), &expected))
		assert.Equal(t, expected, result)
		assert.Equal(t, "gzip", backend.last(t).header.Get("Accept-Encoding"))
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	backend := &fakeBackend{body: `not json`}
	client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

	_, err := client.Get(context.Background(), "/analytics/")
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusOK, reqErr.StatusCode)
}

func TestNetworkFailure(t *testing.T) {
	sess, err := session.Open(nil)
	require.NoError(t, err)

	client := New(sess, nil, nil)
	srv := httptest.NewServer(http.NotFoundHandler())
	client.APIURL = srv.URL + "/api"
	srv.Close()

	_, err = client.Get(context.Background(), "/vacancies/")
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.StatusCode)
	assert.NotNil(t, reqErr.Unwrap())
}

func TestLogout(t *testing.T) {
	backend := &fakeBackend{body: `{}`}
	client, location, _ := newTestClient(t, backend, "tok", PageDashboard)

	require.NoError(t, client.SetToken("other"))
	assert.Equal(t, "other", client.Token())

	require.NoError(t, client.Logout())
	assert.Empty(t, client.Token())
	assert.Equal(t, []string{PageLogin}, location.Redirects())
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	backend := &fakeBackend{body: `[]`}
	client, _, _ := newTestClient(t, backend, "tok", PageDashboard)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background(), "/activities/")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Len(t, backend.requests, 8)

	ids := make(map[string]struct{})
	for _, req := range backend.requests {
		ids[req.header.Get(requestIDHeader)] = struct{}{}
	}
	assert.Len(t, ids, 8, "every call carries its own request id")
}

func TestCanceledContext(t *testing.T) {
	backend := &fakeBackend{body: `[]`}
	client, location, sess := newTestClient(t, backend, "tok", PageDashboard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/vacancies/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, location.Redirects())
	assert.True(t, sess.Authenticated())
}
