// ABOUTME: Wire types for API responses and the functions that build them
// ABOUTME: Each view is constructed field by field from forum service results

package api

import (
	"bytes"
	"encoding/json"
	"html"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-forum/internal/auth"
	"github.com/2389/coven-forum/internal/forum"
	"github.com/2389/coven-forum/internal/store"
)

// Envelope type tags
const (
	typeTopic  = "topic"
	typeThread = "thread"
)

// Envelope wraps a topic or thread payload with its type tag
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PathEntry is one breadcrumb element
type PathEntry struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// TopicChild is a sub-topic listed inside a topic view
type TopicChild struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	NumTopics  int    `json:"numTopics"`
	NumThreads int    `json:"numThreads"`
	Link       int64  `json:"link"`
}

// ThreadChild is a thread listed inside a topic view
type ThreadChild struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	NumPosts int    `json:"numPosts"`
	IsVegan  bool   `json:"isVegan"`
	Link     int64  `json:"link"`
}

// TopicResponse is the data of GET /api/topic/{id}
type TopicResponse struct {
	ID      int64         `json:"id"`
	Title   string        `json:"title"`
	Path    []PathEntry   `json:"path"`
	Topics  []TopicChild  `json:"topics"`
	Threads []ThreadChild `json:"threads"`
}

// PostResponse is one post inside a thread view
type PostResponse struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	HTML   string `json:"html"`
	UserID int64  `json:"userId"`
	User   string `json:"user"`
}

// ThreadResponse is the data of GET /api/thread/{id}
type ThreadResponse struct {
	ID      int64          `json:"id"`
	Title   string         `json:"title"`
	IsVegan bool           `json:"isVegan"`
	Path    []PathEntry    `json:"path"`
	Posts   []PostResponse `json:"posts"`
}

// CreatedResponse is the data returned after creating a topic or thread
type CreatedResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// UserResponse is the body of GET /api/user
type UserResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TokenResponse is the body of POST /api/authenticate
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func newPath(entries []forum.PathEntry) []PathEntry {
	path := make([]PathEntry, 0, len(entries))
	for _, e := range entries {
		path = append(path, PathEntry{ID: e.ID, Title: e.Title})
	}
	return path
}

func newTopicChild(t *store.TopicSummary) TopicChild {
	return TopicChild{
		ID:         t.ID,
		Title:      t.Title,
		NumTopics:  t.NumTopics,
		NumThreads: t.NumThreads,
		Link:       t.ID,
	}
}

func newThreadChild(t *store.ThreadSummary) ThreadChild {
	return ThreadChild{
		ID:       t.ID,
		Title:    t.Title,
		NumPosts: t.NumPosts,
		IsVegan:  t.IsVegan,
		Link:     t.ID,
	}
}

func newTopicResponse(v *forum.TopicView) Envelope {
	topics := make([]TopicChild, 0, len(v.Topics))
	for _, t := range v.Topics {
		topics = append(topics, newTopicChild(t))
	}
	threads := make([]ThreadChild, 0, len(v.Threads))
	for _, t := range v.Threads {
		threads = append(threads, newThreadChild(t))
	}

	return Envelope{
		Type: typeTopic,
		Data: TopicResponse{
			ID:      v.Topic.ID,
			Title:   v.Topic.Title,
			Path:    newPath(v.Path),
			Topics:  topics,
			Threads: threads,
		},
	}
}

func newPostResponse(p *store.PostWithAuthor, md *markdownRenderer) PostResponse {
	return PostResponse{
		ID:     p.ID,
		Text:   p.Text,
		HTML:   md.Render(p.Text),
		UserID: p.UserID,
		User:   p.Author,
	}
}

func newThreadResponse(v *forum.ThreadView, md *markdownRenderer) Envelope {
	posts := make([]PostResponse, 0, len(v.Posts))
	for _, p := range v.Posts {
		posts = append(posts, newPostResponse(p, md))
	}

	return Envelope{
		Type: typeThread,
		Data: ThreadResponse{
			ID:      v.Thread.ID,
			Title:   v.Thread.Title,
			IsVegan: v.Thread.IsVegan,
			Path:    newPath(v.Path),
			Posts:   posts,
		},
	}
}

func newCreatedResponse(kind string, id int64, title string) Envelope {
	return Envelope{Type: kind, Data: CreatedResponse{ID: id, Title: title}}
}

func newUserResponse(id *auth.Identity) UserResponse {
	return UserResponse{ID: id.ID, Name: id.Name}
}

func newTokenResponse(token string) TokenResponse {
	return TokenResponse{AccessToken: token, TokenType: "bearer"}
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// markdownRenderer turns post text into HTML. Raw HTML in posts is dropped.
type markdownRenderer struct {
	md goldmark.Markdown
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render converts text, falling back to escaped text if conversion fails
func (m *markdownRenderer) Render(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return buf.String()
}
