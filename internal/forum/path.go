// ABOUTME: Breadcrumb resolution for topics and threads
// ABOUTME: Walks parent links to the root with a depth bound and cycle detection

package forum

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/2389/coven-forum/internal/store"
)

// DefaultMaxDepth bounds the parent walk when the caller passes a non-positive limit
const DefaultMaxDepth = 64

// ErrCorruptData matches every *CorruptDataError
var ErrCorruptData = errors.New("corrupt data")

// CorruptDataError reports a topic tree that cannot be walked to the root
type CorruptDataError struct {
	TopicID int64
	Reason  string
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt topic tree at topic %d: %s", e.TopicID, e.Reason)
}

// Is lets errors.Is(err, ErrCorruptData) match
func (e *CorruptDataError) Is(target error) bool {
	return target == ErrCorruptData
}

// PathEntry is one breadcrumb element
type PathEntry struct {
	ID    int64
	Title string
}

// TopicLookup is the slice of the store the resolver needs
type TopicLookup interface {
	GetTopic(ctx context.Context, id int64) (*store.Topic, error)
}

// ResolvePath returns the breadcrumb from the root down to and including topic.
// The walk fails with *CorruptDataError on a cycle, a dangling parent, or
// more than maxDepth nodes.
func ResolvePath(ctx context.Context, lookup TopicLookup, topic *store.Topic, maxDepth int) ([]PathEntry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	seen := make(map[int64]struct{})
	var path []PathEntry

	for cur := topic; ; {
		if _, dup := seen[cur.ID]; dup {
			return nil, &CorruptDataError{TopicID: cur.ID, Reason: "cycle in parent chain"}
		}
		if len(path) >= maxDepth {
			return nil, &CorruptDataError{TopicID: topic.ID, Reason: fmt.Sprintf("parent chain exceeds %d levels", maxDepth)}
		}
		seen[cur.ID] = struct{}{}
		path = append(path, PathEntry{ID: cur.ID, Title: cur.Title})

		if cur.ParentID == nil {
			break
		}

		parent, err := lookup.GetTopic(ctx, *cur.ParentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &CorruptDataError{TopicID: cur.ID, Reason: fmt.Sprintf("parent %d does not exist", *cur.ParentID)}
		}
		if err != nil {
			return nil, fmt.Errorf("loading topic %d: %w", *cur.ParentID, err)
		}
		cur = parent
	}

	slices.Reverse(path)
	return path, nil
}

// ThreadPath returns the breadcrumb of the thread's parent topic.
// The thread itself is not part of it. A thread whose parent is gone gets an empty path.
func ThreadPath(ctx context.Context, lookup TopicLookup, thread *store.Thread, maxDepth int) ([]PathEntry, error) {
	parent, err := lookup.GetTopic(ctx, thread.ParentID)
	if errors.Is(err, store.ErrNotFound) {
		return []PathEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading topic %d: %w", thread.ParentID, err)
	}
	return ResolvePath(ctx, lookup, parent, maxDepth)
}
