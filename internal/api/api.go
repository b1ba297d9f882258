// ABOUTME: HTTP API for the forum: route table and request handlers
// ABOUTME: Handlers parse explicitly, call the forum service or authority, and build wire views

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/coven-forum/internal/auth"
	"github.com/2389/coven-forum/internal/forum"
)

// Options tunes the optional parts of the HTTP surface
type Options struct {
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// RateLimit is the per-client request rate on authenticate and signup.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// API serves the forum's HTTP endpoints
type API struct {
	forum       *forum.Service
	authority   *auth.Authority
	markdown    *markdownRenderer
	limiter     *rateLimiter
	metricsPath string
	logger      *slog.Logger
}

// New creates an API over the given service and authority
func New(svc *forum.Service, authority *auth.Authority, opts Options) *API {
	a := &API{
		forum:       svc,
		authority:   authority,
		markdown:    newMarkdownRenderer(),
		metricsPath: opts.MetricsPath,
		logger:      slog.Default().With("component", "api"),
	}
	if opts.RateLimit > 0 {
		a.limiter = newRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	return a
}

// Handler returns the complete HTTP handler with all routes registered
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	a.handle(mux, "GET /health", http.HandlerFunc(a.handleHealth))

	a.handle(mux, "GET /api/topic/{id}", http.HandlerFunc(a.handleGetTopic))
	a.handle(mux, "GET /api/thread/{id}", http.HandlerFunc(a.handleGetThread))
	a.handle(mux, "GET /api/user", a.requireUser(a.handleGetUser))

	a.handle(mux, "POST /api/authenticate", a.limit(http.HandlerFunc(a.handleAuthenticate)))
	a.handle(mux, "POST /api/signup", a.limit(http.HandlerFunc(a.handleSignup)))

	a.handle(mux, "POST /api/message", a.requireUser(a.handleCreatePost))
	a.handle(mux, "DELETE /api/message", a.requireUser(a.handleDeletePost))
	a.handle(mux, "POST /api/topic", a.requireUser(a.handleCreateTopic))
	a.handle(mux, "DELETE /api/topic", a.requireUser(a.handleDeleteTopic))
	a.handle(mux, "POST /api/thread", a.requireUser(a.handleCreateThread))
	a.handle(mux, "DELETE /api/thread", a.requireUser(a.handleDeleteThread))

	if a.metricsPath != "" {
		mux.Handle("GET "+a.metricsPath, promhttp.Handler())
	}

	return withRequestID(mux)
}

func (a *API) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, a.instrument(pattern, h))
}

func (a *API) requireUser(h http.HandlerFunc) http.Handler {
	return auth.RequireUser(a.authority)(h)
}

// handleHealth handles GET /health
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} path segment, writing a 400 when it is not an integer
func (a *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

// handleGetTopic handles GET /api/topic/{id}
func (a *API) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	view, err := a.forum.Topic(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}
	writeJSON(w, http.StatusOK, newTopicResponse(view))
}

// handleGetThread handles GET /api/thread/{id}
func (a *API) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	view, err := a.forum.Thread(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}
	writeJSON(w, http.StatusOK, newThreadResponse(view, a.markdown))
}

// handleGetUser handles GET /api/user
func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, newUserResponse(id))
}

// handleAuthenticate handles POST /api/authenticate.
// Takes username and password and returns a fresh bearer token.
func (a *API) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}
	req := parseCredentials(values)
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}

	token, err := a.authority.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(token))
}

// handleSignup handles POST /api/signup
func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}
	req := parseCredentials(values)
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}

	if _, err := a.authority.Signup(r.Context(), req.Username, req.Password); err != nil {
		a.writeError(w, r, err, resourceUser)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreatePost handles POST /api/message
func (a *API) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}
	req, err := parseMessage(values)
	if err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}

	if _, err := a.forum.CreatePost(r.Context(), caller.ID, *req.ThreadID, req.Message); err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeletePost handles DELETE /api/message?post_id=N
func (a *API) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}
	req, err := parsePostRef(values)
	if err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}

	if err := a.forum.DeletePost(r.Context(), caller.ID, *req.PostID); err != nil {
		a.writeError(w, r, err, resourcePost)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateTopic handles POST /api/topic
func (a *API) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}
	req, err := parseTopic(values)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}

	topic, err := a.forum.CreateTopic(r.Context(), caller.ID, *req.ParentID, req.Title)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}
	writeJSON(w, http.StatusCreated, newCreatedResponse(typeTopic, topic.ID, topic.Title))
}

// handleDeleteTopic handles DELETE /api/topic?topic_id=N
func (a *API) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}
	req, err := parseTopicRef(values)
	if err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}

	if err := a.forum.DeleteTopic(r.Context(), caller.ID, *req.TopicID); err != nil {
		a.writeError(w, r, err, resourceTopic)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateThread handles POST /api/thread
func (a *API) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}
	req, err := parseThread(values)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}

	thread, err := a.forum.CreateThread(r.Context(), caller.ID, *req.ParentID, req.Title, req.IsVegan)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}
	writeJSON(w, http.StatusCreated, newCreatedResponse(typeThread, thread.ID, thread.Title))
}

// handleDeleteThread handles DELETE /api/thread?thread_id=N
func (a *API) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	values, err := readValues(w, r)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}
	req, err := parseThreadRef(values)
	if err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}

	if err := a.forum.DeleteThread(r.Context(), caller.ID, *req.ThreadID); err != nil {
		a.writeError(w, r, err, resourceThread)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
