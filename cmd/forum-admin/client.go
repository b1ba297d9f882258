// ABOUTME: HTTP client for the forum API used by forum-admin
// ABOUTME: Sends form-encoded writes and decodes the JSON envelopes

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389/coven-forum/internal/api"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Detail, e.Status)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// do sends one request. Form values go in the body for POST and in the
// query for everything else, since servers ignore DELETE bodies.
func (c *client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	target := c.baseURL + path
	var body io.Reader
	if form != nil {
		if method == http.MethodPost {
			body = strings.NewReader(form.Encode())
		} else {
			target += "?" + form.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &e)
		return &apiError{Status: resp.StatusCode, Detail: e.Detail}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// envelope mirrors api.Envelope with a concrete data type.
type envelope[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

func (c *client) signup(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/signup", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
}

func (c *client) authenticate(ctx context.Context, username, password string) (string, error) {
	var resp api.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/authenticate", url.Values{
		"username": {username},
		"password": {password},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("server returned no token")
	}
	return resp.AccessToken, nil
}

func (c *client) whoami(ctx context.Context) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *client) topic(ctx context.Context, id int64) (*api.TopicResponse, error) {
	var resp envelope[api.TopicResponse]
	if err := c.do(ctx, http.MethodGet, "/api/topic/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *client) thread(ctx context.Context, id int64) (*api.ThreadResponse, error) {
	var resp envelope[api.ThreadResponse]
	if err := c.do(ctx, http.MethodGet, "/api/thread/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *client) post(ctx context.Context, threadID int64, message string) error {
	return c.do(ctx, http.MethodPost, "/api/message", url.Values{
		"thread_id": {strconv.FormatInt(threadID, 10)},
		"message":   {message},
	}, nil)
}

func (c *client) createTopic(ctx context.Context, parentID int64, title string) (*api.CreatedResponse, error) {
	var resp envelope[api.CreatedResponse]
	err := c.do(ctx, http.MethodPost, "/api/topic", url.Values{
		"parent_id": {strconv.FormatInt(parentID, 10)},
		"title":     {title},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *client) createThread(ctx context.Context, parentID int64, title string, vegan bool) (*api.CreatedResponse, error) {
	var resp envelope[api.CreatedResponse]
	err := c.do(ctx, http.MethodPost, "/api/thread", url.Values{
		"parent_id": {strconv.FormatInt(parentID, 10)},
		"title":     {title},
		"is_vegan":  {strconv.FormatBool(vegan)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// remove deletes a post, topic or thread by id.
func (c *client) remove(ctx context.Context, kind string, id int64) error {
	var path, key string
	switch kind {
	case "post", "message":
		path, key = "/api/message", "post_id"
	case "topic":
		path, key = "/api/topic", "topic_id"
	case "thread":
		path, key = "/api/thread", "thread_id"
	default:
		return fmt.Errorf("unknown kind %q (use post, topic or thread)", kind)
	}
	return c.do(ctx, http.MethodDelete, path, url.Values{key: {strconv.FormatInt(id, 10)}}, nil)
}
