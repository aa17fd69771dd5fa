package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/infrastructure/persistence"
	pkgerrors "watchlist-backend/pkg/errors"
)

// Store is an in-process transactional store used for local development and tests.
// Sessions stage changes privately; PersistPendingChanges applies them under one lock.
type Store struct {
	mu         sync.Mutex
	items      map[valueobjects.WatchlistItemKey]aggregates.WatchlistItemState
	users      map[valueobjects.UserID]aggregates.UserState
	usernames  map[string]valueobjects.UserID
	lastUserID int64
	failNext   error
	commits    int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items:     make(map[valueobjects.WatchlistItemKey]aggregates.WatchlistItemState),
		users:     make(map[valueobjects.UserID]aggregates.UserState),
		usernames: make(map[string]valueobjects.UserID),
	}
}

// NewSession opens a session over the store
func (s *Store) NewSession() ports.Session {
	return &Session{
		store:   s,
		changes: persistence.NewChangeSet(),
		items:   make(map[valueobjects.WatchlistItemKey]*aggregates.WatchlistItem),
		users:   make(map[valueobjects.UserID]*aggregates.User),
	}
}

// FailNextPersist makes the next PersistPendingChanges call fail with err
// without writing anything
func (s *Store) FailNextPersist(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Commits returns how many persists have succeeded
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Store) apply(changes []persistence.Change) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNext; err != nil {
		s.failNext = nil
		return 0, err
	}

	// Check every change before writing any so the batch is all-or-nothing
	claimed := make(map[string]valueobjects.UserID)
	for _, c := range changes {
		switch {
		case c.Kind == persistence.ChangeInsert && c.Item != nil:
			if _, exists := s.items[c.Item.Key()]; exists {
				return 0, pkgerrors.NewConflict(fmt.Sprintf("movie %s is already on the watchlist", c.Item.MovieID()))
			}
		case c.Kind == persistence.ChangeInsert && c.User != nil:
			if _, exists := s.users[c.User.ID()]; exists {
				return 0, pkgerrors.NewConflict(fmt.Sprintf("user %s already exists", c.User.ID()))
			}
			name := normalizeUsername(c.User.Username())
			if _, taken := s.usernames[name]; taken {
				return 0, pkgerrors.NewConflict("username is already taken")
			}
			if _, taken := claimed[name]; taken {
				return 0, pkgerrors.NewConflict("username is already taken")
			}
			claimed[name] = c.User.ID()
		case c.Kind == persistence.ChangeStatistics:
			stored, exists := s.users[c.User.ID()]
			if !exists {
				return 0, pkgerrors.NewNotFound(fmt.Sprintf("user %s not found", c.User.ID()))
			}
			if _, present := c.User.CachedStatistics(); present && stored.StatisticsGeneration != c.User.StatisticsGeneration() {
				return 0, pkgerrors.NewConflict("statistics were invalidated while being computed")
			}
		}
	}

	for _, c := range changes {
		switch {
		case c.Item != nil && c.Kind == persistence.ChangeDelete:
			delete(s.items, c.Item.Key())
		case c.Item != nil:
			s.items[c.Item.Key()] = c.Item.State()
		case c.User != nil && c.Kind == persistence.ChangeDelete:
			state := s.users[c.User.ID()]
			delete(s.usernames, normalizeUsername(state.Username))
			delete(s.users, c.User.ID())
		case c.Kind == persistence.ChangeStatistics:
			state := s.users[c.User.ID()]
			if cache, present := c.User.CachedStatistics(); present {
				state.Statistics = &cache
			} else {
				state.Statistics = nil
				state.StatisticsGeneration++
			}
			s.users[c.User.ID()] = copyUserState(state)
		case c.User != nil && c.Kind == persistence.ChangePut:
			state := copyUserState(c.User.State())
			if stored, exists := s.users[c.User.ID()]; exists {
				state.Statistics = stored.Statistics
				state.StatisticsGeneration = stored.StatisticsGeneration
			}
			s.users[c.User.ID()] = state
			s.usernames[normalizeUsername(c.User.Username())] = c.User.ID()
		case c.User != nil:
			s.users[c.User.ID()] = copyUserState(c.User.State())
			s.usernames[normalizeUsername(c.User.Username())] = c.User.ID()
			if id := c.User.ID().Int64(); id > s.lastUserID {
				s.lastUserID = id
			}
		}
	}

	s.commits++
	return len(changes), nil
}

func copyUserState(state aggregates.UserState) aggregates.UserState {
	if state.Statistics != nil {
		payload := make([]byte, len(state.Statistics.Payload))
		copy(payload, state.Statistics.Payload)
		state.Statistics = &aggregates.StatisticsCache{Payload: payload, ComputedAt: state.Statistics.ComputedAt}
	}
	return state
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Session is one unit of persistence over a Store
type Session struct {
	store   *Store
	changes *persistence.ChangeSet
	items   map[valueobjects.WatchlistItemKey]*aggregates.WatchlistItem
	users   map[valueobjects.UserID]*aggregates.User
}

var _ ports.Session = (*Session)(nil)

// Watchlist returns the session's watchlist repository
func (s *Session) Watchlist() ports.WatchlistRepository {
	return watchlistRepository{session: s}
}

// Users returns the session's user repository
func (s *Session) Users() ports.UserRepository {
	return userRepository{session: s}
}

// PersistPendingChanges applies all staged changes atomically
func (s *Session) PersistPendingChanges(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.NewPersistence("persist cancelled", err)
	}

	count, err := s.store.apply(s.changes.Pending())
	if err != nil {
		if pkgerrors.GetAppError(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.NewPersistence("failed to persist changes", err)
	}

	s.changes.Reset()
	return count, nil
}

// Tracked returns the aggregates this session has seen
func (s *Session) Tracked() []aggregates.EventSource {
	return s.changes.Tracked()
}

type watchlistRepository struct {
	session *Session
}

func (r watchlistRepository) Get(ctx context.Context, key valueobjects.WatchlistItemKey) (*aggregates.WatchlistItem, error) {
	if item, ok := r.session.items[key]; ok {
		return item, nil
	}

	r.session.store.mu.Lock()
	state, ok := r.session.store.items[key]
	r.session.store.mu.Unlock()
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("movie %s is not on the watchlist of user %s", key.MovieID, key.UserID))
	}

	return r.load(state)
}

func (r watchlistRepository) ListByUser(ctx context.Context, userID valueobjects.UserID) ([]*aggregates.WatchlistItem, error) {
	r.session.store.mu.Lock()
	var states []aggregates.WatchlistItemState
	for key, state := range r.session.store.items {
		if key.UserID == userID {
			states = append(states, state)
		}
	}
	r.session.store.mu.Unlock()

	items := make([]*aggregates.WatchlistItem, 0, len(states))
	for _, state := range states {
		key := valueobjects.WatchlistItemKey{UserID: state.UserID, MovieID: state.Movie.ID()}
		if item, ok := r.session.items[key]; ok {
			items = append(items, item)
			continue
		}
		item, err := r.load(state)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt().Equal(items[j].AddedAt()) {
			return items[i].AddedAt().Before(items[j].AddedAt())
		}
		return items[i].MovieID() < items[j].MovieID()
	})
	return items, nil
}

func (r watchlistRepository) load(state aggregates.WatchlistItemState) (*aggregates.WatchlistItem, error) {
	item, err := aggregates.ReconstituteWatchlistItem(state)
	if err != nil {
		return nil, pkgerrors.NewInternal("stored watchlist item is corrupt", err)
	}
	r.session.items[item.Key()] = item
	r.session.changes.Track(item)
	return item, nil
}

func (r watchlistRepository) Add(item *aggregates.WatchlistItem) {
	r.session.items[item.Key()] = item
	r.session.changes.StageItem(persistence.ChangeInsert, item)
}

func (r watchlistRepository) Update(item *aggregates.WatchlistItem) {
	r.session.changes.StageItem(persistence.ChangePut, item)
}

func (r watchlistRepository) Remove(item *aggregates.WatchlistItem) {
	delete(r.session.items, item.Key())
	r.session.changes.StageItem(persistence.ChangeDelete, item)
}

type userRepository struct {
	session *Session
}

func (r userRepository) Get(ctx context.Context, id valueobjects.UserID) (*aggregates.User, error) {
	if user, ok := r.session.users[id]; ok {
		return user, nil
	}

	r.session.store.mu.Lock()
	state, ok := r.session.store.users[id]
	if ok {
		state = copyUserState(state)
	}
	r.session.store.mu.Unlock()
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("user %s not found", id))
	}

	return r.load(state)
}

func (r userRepository) GetByUsername(ctx context.Context, username string) (*aggregates.User, error) {
	r.session.store.mu.Lock()
	id, ok := r.session.store.usernames[normalizeUsername(username)]
	r.session.store.mu.Unlock()
	if !ok {
		return nil, pkgerrors.NewNotFound("user not found")
	}
	return r.Get(ctx, id)
}

func (r userRepository) NextID(ctx context.Context) (valueobjects.UserID, error) {
	r.session.store.mu.Lock()
	defer r.session.store.mu.Unlock()
	r.session.store.lastUserID++
	return valueobjects.UserID(r.session.store.lastUserID), nil
}

func (r userRepository) load(state aggregates.UserState) (*aggregates.User, error) {
	user, err := aggregates.ReconstituteUser(state)
	if err != nil {
		return nil, pkgerrors.NewInternal("stored user is corrupt", err)
	}
	r.session.users[user.ID()] = user
	r.session.changes.Track(user)
	return user, nil
}

func (r userRepository) Add(user *aggregates.User) {
	r.session.users[user.ID()] = user
	r.session.changes.StageUser(persistence.ChangeInsert, user)
}

func (r userRepository) Update(user *aggregates.User) {
	r.session.changes.StageUser(persistence.ChangePut, user)
}

func (r userRepository) SaveStatistics(user *aggregates.User) {
	r.session.changes.StageStatistics(user)
}
