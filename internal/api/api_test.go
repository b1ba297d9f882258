// ABOUTME: End-to-end tests for the HTTP API against a temporary SQLite forum
// ABOUTME: Covers auth flow, tree reads and writes, error details, rate limiting, and metrics

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-forum/internal/auth"
	"github.com/2389/coven-forum/internal/forum"
	"github.com/2389/coven-forum/internal/store"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "forum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := forum.NewService(s, 0)
	require.NoError(t, svc.Bootstrap(context.Background(), "Home", ""))

	a := New(svc, auth.NewAuthority(s, 0), opts)
	return &testAPI{t: t, handler: a.Handler()}
}

// do sends a form request. DELETE parameters travel in the query string.
func (ta *testAPI) do(method, path, token string, values url.Values) *httptest.ResponseRecorder {
	ta.t.Helper()

	var body io.Reader
	if values != nil {
		if method == http.MethodDelete || method == http.MethodGet {
			path += "?" + values.Encode()
		} else {
			body = strings.NewReader(values.Encode())
		}
	}

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func (ta *testAPI) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	ta.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

// login signs the user up and returns a bearer token
func (ta *testAPI) login(name, password string) string {
	ta.t.Helper()
	creds := url.Values{"username": {name}, "password": {password}}

	rec := ta.do(http.MethodPost, "/api/signup", "", creds)
	require.Equal(ta.t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ta.do(http.MethodPost, "/api/authenticate", "", creds)
	require.Equal(ta.t, http.StatusOK, rec.Code, rec.Body.String())

	var tok TokenResponse
	require.NoError(ta.t, json.NewDecoder(rec.Body).Decode(&tok))
	return tok.AccessToken
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["detail"]
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) (string, T) {
	t.Helper()
	var env struct {
		Type string `json:"type"`
		Data T      `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Type, env.Data
}

func TestHealth(t *testing.T) {
	ta := newTestAPI(t, Options{})

	rec := ta.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetRootTopic(t *testing.T) {
	ta := newTestAPI(t, Options{})

	rec := ta.do(http.MethodGet, "/api/topic/0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t,
		`{"type":"topic","data":{"id":0,"title":"Home","path":[{"id":0,"title":"Home"}],"topics":[],"threads":[]}}`,
		rec.Body.String())
}

func TestGetTopic_Errors(t *testing.T) {
	ta := newTestAPI(t, Options{})

	rec := ta.do(http.MethodGet, "/api/topic/999", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, detailTopicNotFound, detailOf(t, rec))

	rec = ta.do(http.MethodGet, "/api/topic/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id must be an integer", detailOf(t, rec))

	rec = ta.do(http.MethodGet, "/api/thread/999", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, detailThreadNotFound, detailOf(t, rec))
}

func TestSignupAuthenticateWhoami(t *testing.T) {
	ta := newTestAPI(t, Options{})
	token := ta.login("alice", "Password1")
	require.NotEmpty(t, token)

	rec := ta.do(http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "alice", user.Name)
	assert.NotZero(t, user.ID)
}

func TestAuthenticate_TokenType(t *testing.T) {
	ta := newTestAPI(t, Options{})
	creds := url.Values{"username": {"alice"}, "password": {"Password1"}}
	require.Equal(t, http.StatusNoContent, ta.do(http.MethodPost, "/api/signup", "", creds).Code)

	rec := ta.do(http.MethodPost, "/api/authenticate", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)

	var tok TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tok))
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestSignup_Errors(t *testing.T) {
	ta := newTestAPI(t, Options{})
	ta.login("alice", "Password1")

	tests := []struct {
		name   string
		values url.Values
		detail string
	}{
		{"taken name", url.Values{"username": {"alice"}, "password": {"Other1"}}, detailUserExists},
		{"bad password", url.Values{"username": {"bob"}, "password": {"not ok!"}}, detailBadPassword},
		{"missing username", url.Values{"password": {"abc"}}, "username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(http.MethodPost, "/api/signup", "", tt.values)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.detail, detailOf(t, rec))
		})
	}
}

func TestSignup_JSONBody(t *testing.T) {
	ta := newTestAPI(t, Options{})

	rec := ta.doJSON(http.MethodPost, "/api/signup", "", `{"username":"carol","password":"Secret9"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ta.doJSON(http.MethodPost, "/api/signup", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", detailOf(t, rec))
}

func TestAuthenticate_Errors(t *testing.T) {
	ta := newTestAPI(t, Options{})
	ta.login("alice", "Password1")

	rec := ta.do(http.MethodPost, "/api/authenticate", "", url.Values{"username": {"ghost"}, "password": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, detailUnknownUser, detailOf(t, rec))

	rec = ta.do(http.MethodPost, "/api/authenticate", "", url.Values{"username": {"alice"}, "password": {"Password2"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, detailWrongPassword, detailOf(t, rec))
}

func TestAuthenticate_ReplacesToken(t *testing.T) {
	ta := newTestAPI(t, Options{})
	first := ta.login("alice", "Password1")

	rec := ta.do(http.MethodPost, "/api/authenticate", "", url.Values{"username": {"alice"}, "password": {"Password1"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(http.MethodGet, "/api/user", first, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.DetailInvalidToken, detailOf(t, rec))
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ta := newTestAPI(t, Options{})

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/user"},
		{http.MethodPost, "/api/message"},
		{http.MethodDelete, "/api/message"},
		{http.MethodPost, "/api/topic"},
		{http.MethodDelete, "/api/topic"},
		{http.MethodPost, "/api/thread"},
		{http.MethodDelete, "/api/thread"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := ta.do(rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestForumFlow(t *testing.T) {
	ta := newTestAPI(t, Options{})
	token := ta.login("alice", "Password1")

	// topic under root
	rec := ta.do(http.MethodPost, "/api/topic", token, url.Values{"parent_id": {"0"}, "title": {"Recipes"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kind, created := decodeEnvelope[CreatedResponse](t, rec)
	assert.Equal(t, "topic", kind)
	assert.Equal(t, "Recipes", created.Title)
	topicID := created.ID

	// thread via JSON
	rec = ta.doJSON(http.MethodPost, "/api/thread", token,
		`{"parent_id":`+itoa(topicID)+`,"title":"Lentil soup","is_vegan":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kind, createdThread := decodeEnvelope[CreatedResponse](t, rec)
	assert.Equal(t, "thread", kind)
	threadID := createdThread.ID

	// post
	rec = ta.do(http.MethodPost, "/api/message", token, url.Values{"thread_id": {itoa(threadID)}, "message": {"**hot** <script>x</script>"}})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// topic view counts
	rec = ta.do(http.MethodGet, "/api/topic/0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, root := decodeEnvelope[TopicResponse](t, rec)
	require.Len(t, root.Topics, 1)
	assert.Equal(t, TopicChild{ID: topicID, Title: "Recipes", NumTopics: 0, NumThreads: 1, Link: topicID}, root.Topics[0])

	rec = ta.do(http.MethodGet, "/api/topic/"+itoa(topicID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, sub := decodeEnvelope[TopicResponse](t, rec)
	assert.Equal(t, []PathEntry{{0, "Home"}, {topicID, "Recipes"}}, sub.Path)
	require.Len(t, sub.Threads, 1)
	assert.Equal(t, ThreadChild{ID: threadID, Title: "Lentil soup", NumPosts: 1, IsVegan: true, Link: threadID}, sub.Threads[0])

	// thread view
	rec = ta.do(http.MethodGet, "/api/thread/"+itoa(threadID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kind, thread := decodeEnvelope[ThreadResponse](t, rec)
	assert.Equal(t, "thread", kind)
	assert.True(t, thread.IsVegan)
	assert.Equal(t, []PathEntry{{0, "Home"}, {topicID, "Recipes"}}, thread.Path)
	require.Len(t, thread.Posts, 1)
	assert.Equal(t, "alice", thread.Posts[0].User)
	assert.Contains(t, thread.Posts[0].HTML, "<strong>hot</strong>")
	assert.NotContains(t, thread.Posts[0].HTML, "<script>")
}

func TestCreate_Errors(t *testing.T) {
	ta := newTestAPI(t, Options{})
	token := ta.login("alice", "Password1")

	tests := []struct {
		name   string
		path   string
		values url.Values
		detail string
	}{
		{"topic missing parent", "/api/topic", url.Values{"parent_id": {"42"}, "title": {"x"}}, detailTopicNotFound},
		{"topic no title", "/api/topic", url.Values{"parent_id": {"0"}}, "title is required"},
		{"topic blank title", "/api/topic", url.Values{"parent_id": {"0"}, "title": {"  "}}, "title is required"},
		{"topic bad parent", "/api/topic", url.Values{"parent_id": {"one"}, "title": {"x"}}, "parent_id must be an integer"},
		{"thread missing parent", "/api/thread", url.Values{"parent_id": {"42"}, "title": {"x"}}, detailTopicNotFound},
		{"thread bad flag", "/api/thread", url.Values{"parent_id": {"0"}, "title": {"x"}, "is_vegan": {"maybe"}}, "is_vegan must be a boolean"},
		{"message missing thread", "/api/message", url.Values{"thread_id": {"42"}, "message": {"hi"}}, detailThreadNotFound},
		{"message no thread id", "/api/message", url.Values{"message": {"hi"}}, "thread_id is required"},
		{"message empty", "/api/message", url.Values{"thread_id": {"0"}}, "message is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(http.MethodPost, tt.path, token, tt.values)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.detail, detailOf(t, rec))
		})
	}
}

func TestDelete_OwnershipAndEmptiness(t *testing.T) {
	ta := newTestAPI(t, Options{})
	alice := ta.login("alice", "Password1")
	bob := ta.login("bob", "Password2")

	rec := ta.do(http.MethodPost, "/api/topic", alice, url.Values{"parent_id": {"0"}, "title": {"Mine"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	_, topic := decodeEnvelope[CreatedResponse](t, rec)

	rec = ta.do(http.MethodPost, "/api/thread", alice, url.Values{"parent_id": {itoa(topic.ID)}, "title": {"T"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	_, thread := decodeEnvelope[CreatedResponse](t, rec)

	rec = ta.do(http.MethodPost, "/api/message", alice, url.Values{"thread_id": {itoa(thread.ID)}, "message": {"hi"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ta.do(http.MethodGet, "/api/thread/"+itoa(thread.ID), "", nil)
	_, view := decodeEnvelope[ThreadResponse](t, rec)
	require.Len(t, view.Posts, 1)
	postID := view.Posts[0].ID

	check := func(token, path, key string, id int64, wantCode int, wantDetail string) {
		t.Helper()
		rec := ta.do(http.MethodDelete, path, token, url.Values{key: {itoa(id)}})
		assert.Equal(t, wantCode, rec.Code, rec.Body.String())
		if wantDetail != "" {
			assert.Equal(t, wantDetail, detailOf(t, rec))
		}
	}

	check(bob, "/api/message", "post_id", postID, http.StatusBadRequest, detailPostNotOwned)
	check(alice, "/api/message", "post_id", 9999, http.StatusBadRequest, detailPostNotFound)
	check(bob, "/api/thread", "thread_id", thread.ID, http.StatusBadRequest, detailThreadNotOwned)
	check(alice, "/api/thread", "thread_id", thread.ID, http.StatusBadRequest, detailThreadNotEmpty)
	check(alice, "/api/topic", "topic_id", topic.ID, http.StatusBadRequest, detailTopicNotEmpty)
	check(alice, "/api/topic", "topic_id", 0, http.StatusBadRequest, detailTopicNotOwned)

	check(alice, "/api/message", "post_id", postID, http.StatusNoContent, "")
	check(alice, "/api/thread", "thread_id", thread.ID, http.StatusNoContent, "")
	check(alice, "/api/topic", "topic_id", topic.ID, http.StatusNoContent, "")

	check(alice, "/api/topic", "topic_id", topic.ID, http.StatusBadRequest, detailTopicNotFound)
}

func TestDelete_MissingParameter(t *testing.T) {
	ta := newTestAPI(t, Options{})
	token := ta.login("alice", "Password1")

	rec := ta.do(http.MethodDelete, "/api/message", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "post_id is required", detailOf(t, rec))
}

func TestRateLimit(t *testing.T) {
	ta := newTestAPI(t, Options{RateLimit: 0.001, RateBurst: 2})
	before := testutil.ToFloat64(rateLimitedTotal.WithLabelValues("/api/authenticate"))

	creds := url.Values{"username": {"ghost"}, "password": {"x"}}
	for i := 0; i < 2; i++ {
		rec := ta.do(http.MethodPost, "/api/authenticate", "", creds)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := ta.do(http.MethodPost, "/api/authenticate", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, detailTooManyRequests, detailOf(t, rec))

	after := testutil.ToFloat64(rateLimitedTotal.WithLabelValues("/api/authenticate"))
	assert.Equal(t, before+1, after)

	// reads are never limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, ta.do(http.MethodGet, "/api/topic/0", "", nil).Code)
	}
}

func TestMetrics(t *testing.T) {
	ta := newTestAPI(t, Options{MetricsPath: "/metrics"})
	counter := requestsTotal.WithLabelValues("/health", http.MethodGet, "200")
	before := testutil.ToFloat64(counter)

	ta.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	rec := ta.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "forum_http_requests_total")
}

func TestMetrics_DisabledByDefault(t *testing.T) {
	ta := newTestAPI(t, Options{})
	rec := ta.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	ta := newTestAPI(t, Options{})

	rec := ta.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
