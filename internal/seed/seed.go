// ABOUTME: Random forum content generator for development databases
// ABOUTME: Creates numbered users and a random topic tree with threads and posts under the root

package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/2389/coven-forum/internal/credential"
	"github.com/2389/coven-forum/internal/store"
)

// Defaults used when an Options field is zero
const (
	DefaultDepth      = 5
	DefaultUsers      = 10
	DefaultMaxTopics  = 10
	DefaultMaxThreads = 10
	DefaultMaxPosts   = 10
)

// Options shapes the generated tree
type Options struct {
	// Depth is the number of topic levels below the root.
	Depth int
	// Users is how many User{N}/Password{N} accounts to create.
	Users int
	// Each topic gets 1..MaxTopics sub-topics (above the last level),
	// 0..MaxThreads threads, and each thread 0..MaxPosts posts.
	MaxTopics  int
	MaxThreads int
	MaxPosts   int
	// Rand drives every random choice. Nil uses a randomly seeded source.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Users <= 0 {
		o.Users = DefaultUsers
	}
	if o.MaxTopics <= 0 {
		o.MaxTopics = DefaultMaxTopics
	}
	if o.MaxThreads < 0 {
		o.MaxThreads = 0
	} else if o.MaxThreads == 0 {
		o.MaxThreads = DefaultMaxThreads
	}
	if o.MaxPosts < 0 {
		o.MaxPosts = 0
	} else if o.MaxPosts == 0 {
		o.MaxPosts = DefaultMaxPosts
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// Stats counts what a run created
type Stats struct {
	Users   int
	Topics  int
	Threads int
	Posts   int
}

// Generator fills a store with random content
type Generator struct {
	store   store.Store
	opts    Options
	rng     *rand.Rand
	authors []int64
	stats   Stats
	logger  *slog.Logger
}

// New creates a Generator. The store must already hold the root user and topic.
func New(s store.Store, opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{
		store:  s,
		opts:   opts,
		rng:    opts.Rand,
		logger: slog.Default().With("component", "seed"),
	}
}

// Run creates the users and the tree. Existing User{N} accounts are reused.
func (g *Generator) Run(ctx context.Context) (*Stats, error) {
	if ok, err := g.store.TopicExists(ctx, store.RootID); err != nil {
		return nil, fmt.Errorf("checking root topic: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("root topic is missing: %w", store.ErrNotFound)
	}

	g.authors = []int64{store.RootID}
	for n := 1; n <= g.opts.Users; n++ {
		id, err := g.ensureUser(ctx, n)
		if err != nil {
			return nil, err
		}
		g.authors = append(g.authors, id)
	}

	if err := g.fill(ctx, store.RootID, 0); err != nil {
		return nil, err
	}

	g.logger.Info("seed complete",
		"users", g.stats.Users,
		"topics", g.stats.Topics,
		"threads", g.stats.Threads,
		"posts", g.stats.Posts,
	)
	stats := g.stats
	return &stats, nil
}

func (g *Generator) ensureUser(ctx context.Context, n int) (int64, error) {
	name := fmt.Sprintf("User%d", n)

	existing, err := g.store.GetUserByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}

	hash, salt, err := credential.HashPassword(fmt.Sprintf("Password%d", n))
	if err != nil {
		return 0, fmt.Errorf("hashing password for %s: %w", name, err)
	}
	u := &store.User{Name: name, PasswordHash: hash, PasswordSalt: salt}
	if err := g.store.CreateUser(ctx, u); err != nil {
		return 0, fmt.Errorf("creating %s: %w", name, err)
	}
	g.stats.Users++
	return u.ID, nil
}

// fill populates one topic. level counts topics between it and the root.
func (g *Generator) fill(ctx context.Context, parentID int64, level int) error {
	if level >= g.opts.Depth {
		return nil
	}

	numTopics := 1 + g.rng.IntN(g.opts.MaxTopics)
	for range numTopics {
		topic := &store.Topic{Title: g.word(), ParentID: &parentID, UserID: g.author()}
		if err := g.store.CreateTopic(ctx, topic); err != nil {
			return fmt.Errorf("creating topic under %d: %w", parentID, err)
		}
		g.stats.Topics++
		if err := g.fill(ctx, topic.ID, level+1); err != nil {
			return err
		}
	}

	numThreads := g.rng.IntN(g.opts.MaxThreads + 1)
	for range numThreads {
		thread := &store.Thread{
			Title:    g.word(),
			IsVegan:  g.rng.IntN(2) == 1,
			ParentID: parentID,
			UserID:   g.author(),
		}
		if err := g.store.CreateThread(ctx, thread); err != nil {
			return fmt.Errorf("creating thread under %d: %w", parentID, err)
		}
		g.stats.Threads++

		numPosts := g.rng.IntN(g.opts.MaxPosts + 1)
		for range numPosts {
			post := &store.Post{Text: g.sentence(), ParentID: thread.ID, UserID: g.author()}
			if err := g.store.CreatePost(ctx, post); err != nil {
				return fmt.Errorf("creating post in thread %d: %w", thread.ID, err)
			}
			g.stats.Posts++
		}
	}
	return nil
}

func (g *Generator) author() int64 {
	return g.authors[g.rng.IntN(len(g.authors))]
}

var words = strings.Fields(`
	lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod
	tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam
	quis nostrud exercitation ullamco laboris nisi aliquip ex ea commodo
	consequat duis aute irure in reprehenderit voluptate velit esse cillum
	fugiat nulla pariatur excepteur sint occaecat cupidatat non proident
	sunt culpa qui officia deserunt mollit anim id est laborum
`)

func (g *Generator) word() string {
	w := words[g.rng.IntN(len(words))]
	return strings.ToUpper(w[:1]) + w[1:]
}

func (g *Generator) sentence() string {
	n := 4 + g.rng.IntN(9)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[g.rng.IntN(len(words))]
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
