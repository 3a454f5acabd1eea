package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()

	s := New(cfg, zap.NewNop())
	_, err := s.AddUser("hr@example.com", "pw", "HR")
	require.NoError(t, err)

	token, err := s.IssueToken("hr@example.com", time.Minute)
	require.NoError(t, err)

	return s, token
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func authed(method, target, token string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload["detail"]
}

func TestLogin(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	form := url.Values{"username": {"hr@example.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token_type":"bearer"`)

	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec = serve(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect email or password", detail(t, rec))
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := serve(s, authed(http.MethodPost, "/api/auth/register", "", []byte(`{"email":""}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	list, ok := detail(t, rec).([]any)
	require.True(t, ok, "validation errors are a list")
	require.Len(t, list, 1)
}

func TestAuthentication(t *testing.T) {
	s, token := newTestServer(t, Config{})

	rec := serve(s, authed(http.MethodGet, "/api/vacancies/", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", detail(t, rec))

	rec = serve(s, authed(http.MethodGet, "/api/vacancies/", "not-a-jwt", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))

	expired, err := s.IssueToken("hr@example.com", -time.Minute)
	require.NoError(t, err)
	rec = serve(s, authed(http.MethodGet, "/api/vacancies/", expired, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stranger, err := s.IssueToken("ghost@example.com", time.Minute)
	require.NoError(t, err)
	rec = serve(s, authed(http.MethodGet, "/api/vacancies/", stranger, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(s, authed(http.MethodGet, "/api/vacancies/", token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func uploadRequest(t *testing.T, vacancyID, token, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/candidates/upload?vacancy_id="+vacancyID, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadQuota(t *testing.T) {
	s, token := newTestServer(t, Config{ResumeLimit: 1})

	rec := serve(s, authed(http.MethodPost, "/api/vacancies/", token, []byte(`{"title":"Go Developer"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var vacancy struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vacancy))
	id := strconv.Itoa(vacancy.ID)

	rec = serve(s, uploadRequest(t, id, token, "a.txt", "Go"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, uploadRequest(t, id, token, "b.txt", "Go"))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	d, ok := detail(t, rec).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SUBSCRIPTION_LIMIT_REACHED", d["error"])
	assert.NotEmpty(t, d["msg"])

	rec = serve(s, uploadRequest(t, "999", token, "c.txt", "Go"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnership(t *testing.T) {
	s, token := newTestServer(t, Config{})
	_, err := s.AddUser("other@example.com", "pw", "Other")
	require.NoError(t, err)
	other, err := s.IssueToken("other@example.com", time.Minute)
	require.NoError(t, err)

	rec := serve(s, authed(http.MethodPost, "/api/vacancies/", token, []byte(`{"title":"Go Developer"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, authed(http.MethodGet, "/api/vacancies/", other, nil))
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(s, authed(http.MethodPost, "/api/vacancies/", token, []byte(`{"title":"  "}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(s, authed(http.MethodGet, "/api/vacancies/abc", token, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(Config{}, zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	serve(s, req)

	entries := logs.FilterMessage("served request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/analytics/", fields["path"])
	assert.Equal(t, int64(http.StatusUnauthorized), fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestRunStopsWithContext(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/vacancies/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusUnauthorized
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
