// Package forum holds the forum's domain logic on top of the store.
//
// ResolvePath turns a topic into its breadcrumb, root first. The walk is
// iterative and bounded: a cycle, a missing ancestor, or a chain longer
// than the configured maximum depth yields a *CorruptDataError instead of
// looping.
//
// Service assembles the topic and thread views the API serves and runs
// the owner-checked create and delete operations. Missing entities are
// reported as ErrTopicNotFound, ErrThreadNotFound or ErrPostNotFound;
// ownership and emptiness failures pass through as store.ErrForbidden
// and store.ErrNotEmpty.
package forum
