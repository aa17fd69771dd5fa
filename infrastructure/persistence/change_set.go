package persistence

import (
	"watchlist-backend/domain/core/aggregates"
)

// ChangeKind says what a staged change does to the store
type ChangeKind int

const (
	ChangePut ChangeKind = iota
	ChangeInsert
	ChangeDelete

	// ChangeStatistics writes only the user's statistics cache. A present
	// cache is stored if the generation is unchanged; an absent one clears
	// the cache and advances the generation.
	ChangeStatistics
)

// Change is one staged write. Exactly one of Item and User is set.
type Change struct {
	Kind ChangeKind
	Item *aggregates.WatchlistItem
	User *aggregates.User
}

// ChangeSet is the bookkeeping shared by store sessions: which aggregates the
// session has seen, and which writes are waiting for PersistPendingChanges.
// Staging the same aggregate twice keeps only the latest change.
type ChangeSet struct {
	tracked []aggregates.EventSource
	seen    map[aggregates.EventSource]struct{}
	changes []Change
	index   map[any]int
}

// NewChangeSet creates an empty change set
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		seen:  make(map[aggregates.EventSource]struct{}),
		index: make(map[any]int),
	}
}

// Track remembers an aggregate in first-seen order
func (c *ChangeSet) Track(source aggregates.EventSource) {
	if _, ok := c.seen[source]; ok {
		return
	}
	c.seen[source] = struct{}{}
	c.tracked = append(c.tracked, source)
}

// StageItem tracks an item and stages a write for it
func (c *ChangeSet) StageItem(kind ChangeKind, item *aggregates.WatchlistItem) {
	c.Track(item)
	c.stage(item, Change{Kind: kind, Item: item})
}

// StageUser tracks a user and stages a write for it
func (c *ChangeSet) StageUser(kind ChangeKind, user *aggregates.User) {
	c.Track(user)
	c.stage(user, Change{Kind: kind, User: user})
}

// StageStatistics tracks a user and stages a write of its statistics cache only
func (c *ChangeSet) StageStatistics(user *aggregates.User) {
	c.Track(user)
	c.stage(statisticsKey{user}, Change{Kind: ChangeStatistics, User: user})
}

type statisticsKey struct {
	user *aggregates.User
}

func (c *ChangeSet) stage(key any, change Change) {
	if i, ok := c.index[key]; ok {
		if c.changes[i].Kind == ChangeInsert && change.Kind == ChangePut {
			change.Kind = ChangeInsert
		}
		c.changes[i] = change
		return
	}
	c.index[key] = len(c.changes)
	c.changes = append(c.changes, change)
}

// Tracked returns the tracked aggregates in first-seen order
func (c *ChangeSet) Tracked() []aggregates.EventSource {
	out := make([]aggregates.EventSource, len(c.tracked))
	copy(out, c.tracked)
	return out
}

// Pending returns the staged writes in staging order
func (c *ChangeSet) Pending() []Change {
	out := make([]Change, len(c.changes))
	copy(out, c.changes)
	return out
}

// Reset forgets the staged writes after a successful persist.
// Tracked aggregates stay tracked so their events can still be cleared.
func (c *ChangeSet) Reset() {
	c.changes = nil
	c.index = make(map[any]int)
}
