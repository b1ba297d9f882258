// ABOUTME: Maps forum, auth, and store errors to HTTP statuses and detail strings
// ABOUTME: Every handler funnels failures through writeError so the mapping lives in one place

package api

import (
	"errors"
	"net/http"

	"github.com/2389/coven-forum/internal/auth"
	"github.com/2389/coven-forum/internal/forum"
	"github.com/2389/coven-forum/internal/store"
)

// resource names what a handler operates on, for ownership and emptiness details
type resource int

const (
	resourceUser resource = iota
	resourceTopic
	resourceThread
	resourcePost
)

// Detail strings for 400 responses
const (
	detailTopicNotFound   = "Topic does not exist"
	detailThreadNotFound  = "Thread does not exist"
	detailPostNotFound    = "Post does not exist"
	detailUnknownUser     = "User does not exist"
	detailWrongPassword   = "Wrong password"
	detailUserExists      = "User already exists"
	detailBadPassword     = "Password is not good"
	detailTopicNotOwned   = "The topic does not belong to the user"
	detailThreadNotOwned  = "The thread does not belong to the user"
	detailPostNotOwned    = "The post does not belong to the user"
	detailTopicNotEmpty   = "Topic is not empty"
	detailThreadNotEmpty  = "Thread is not empty"
	detailInternal        = "internal error"
	detailTooManyRequests = "Too many requests"
)

// sendJSONError writes a {"detail": ...} error response.
func sendJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// errorDetail returns the status and detail for err. ok is false for unexpected errors.
func errorDetail(err error, res resource) (status int, detail string, ok bool) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg, true

	case errors.Is(err, forum.ErrTopicNotFound):
		return http.StatusBadRequest, detailTopicNotFound, true
	case errors.Is(err, forum.ErrThreadNotFound):
		return http.StatusBadRequest, detailThreadNotFound, true
	case errors.Is(err, forum.ErrPostNotFound):
		return http.StatusBadRequest, detailPostNotFound, true

	case errors.Is(err, auth.ErrUnknownUser):
		return http.StatusBadRequest, detailUnknownUser, true
	case errors.Is(err, auth.ErrWrongPassword):
		return http.StatusBadRequest, detailWrongPassword, true
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest, detailUserExists, true
	case errors.Is(err, auth.ErrBadPassword):
		return http.StatusBadRequest, detailBadPassword, true
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, auth.DetailInvalidToken, true

	case errors.Is(err, store.ErrForbidden):
		switch res {
		case resourceTopic:
			return http.StatusBadRequest, detailTopicNotOwned, true
		case resourceThread:
			return http.StatusBadRequest, detailThreadNotOwned, true
		default:
			return http.StatusBadRequest, detailPostNotOwned, true
		}
	case errors.Is(err, store.ErrNotEmpty):
		if res == resourceTopic {
			return http.StatusBadRequest, detailTopicNotEmpty, true
		}
		return http.StatusBadRequest, detailThreadNotEmpty, true
	}

	return http.StatusInternalServerError, detailInternal, false
}

// writeError sends the mapped response for err, logging anything unexpected.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error, res resource) {
	status, detail, ok := errorDetail(err, res)
	if !ok {
		a.logger.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	sendJSONError(w, status, detail)
}
