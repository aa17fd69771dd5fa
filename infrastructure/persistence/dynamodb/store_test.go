package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"
	"watchlist-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDynamo keeps a table in memory and honours the store's write conditions
type fakeDynamo struct {
	mu           sync.Mutex
	rows         map[string]map[string]types.AttributeValue
	transactions int
	pageSize     int
	failWith     error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{rows: make(map[string]map[string]types.AttributeValue)}
}

func rowKey(av map[string]types.AttributeValue) string {
	pk := av["PK"].(*types.AttributeValueMemberS).Value
	sk := av["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.GetItemOutput{Item: f.rows[rowKey(in.Key)]}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pk, prefix string
	for _, v := range in.ExpressionAttributeValues {
		s := v.(*types.AttributeValueMemberS).Value
		if strings.HasPrefix(s, "USER#") {
			pk = s
		} else {
			prefix = s
		}
	}

	var keys []string
	for key := range f.rows {
		if strings.HasPrefix(key, pk+"|"+prefix) {
			keys = append(keys, key)
		}
	}
	sortStrings(keys)

	if in.ExclusiveStartKey != nil {
		after := rowKey(in.ExclusiveStartKey)
		for i, key := range keys {
			if key == after {
				keys = keys[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	for _, key := range keys {
		if f.pageSize > 0 && len(out.Items) == f.pageSize {
			out.LastEvaluatedKey = out.Items[len(out.Items)-1]
			break
		}
		out.Items = append(out.Items, f.rows[key])
	}
	return out, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := rowKey(in.Key)
	row, ok := f.rows[key]
	if !ok {
		row = map[string]types.AttributeValue{"PK": in.Key["PK"], "SK": in.Key["SK"]}
		f.rows[key] = row
	}
	current := int64(0)
	if n, ok := row["Value"].(*types.AttributeValueMemberN); ok {
		current, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	row["Value"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+1, 10)}
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"Value": row["Value"]}}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, action := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		ok := true
		switch {
		case action.Put != nil && action.Put.ConditionExpression != nil:
			_, exists := f.rows[rowKey(action.Put.Item)]
			ok = !exists
		case action.Update != nil:
			ok = f.conditionHolds(action.Update)
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{Message: aws.String("Transaction cancelled"), CancellationReasons: reasons}
	}

	for _, action := range in.TransactItems {
		switch {
		case action.Put != nil:
			f.rows[rowKey(action.Put.Item)] = action.Put.Item
		case action.Update != nil:
			f.applyUpdate(action.Update)
		case action.Delete != nil:
			delete(f.rows, rowKey(action.Delete.Key))
		}
	}
	f.transactions++
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// conditionHolds evaluates the fixed condition expressions the store issues
func (f *fakeDynamo) conditionHolds(u *types.Update) bool {
	row, exists := f.rows[rowKey(u.Key)]
	generation, hasGeneration := row[u.ExpressionAttributeNames["#generation"]].(*types.AttributeValueMemberN)
	switch aws.ToString(u.ConditionExpression) {
	case conditionUserExists:
		return exists
	case conditionGenerationUnset:
		return exists && !hasGeneration
	case conditionGenerationMatches:
		want := u.ExpressionAttributeValues[":generation"].(*types.AttributeValueMemberN)
		return exists && hasGeneration && generation.Value == want.Value
	default:
		return false
	}
}

// applyUpdate runs SET, REMOVE and numeric ADD clauses
func (f *fakeDynamo) applyUpdate(u *types.Update) {
	row := f.rows[rowKey(u.Key)]
	expr := strings.NewReplacer(",", " , ", "=", " = ").Replace(aws.ToString(u.UpdateExpression))

	var mode string
	var clause []string
	flush := func() {
		if len(clause) == 0 {
			return
		}
		name := u.ExpressionAttributeNames[clause[0]]
		switch mode {
		case "SET":
			row[name] = u.ExpressionAttributeValues[clause[2]]
		case "REMOVE":
			delete(row, name)
		case "ADD":
			current := int64(0)
			if n, ok := row[name].(*types.AttributeValueMemberN); ok {
				current, _ = strconv.ParseInt(n.Value, 10, 64)
			}
			delta, _ := strconv.ParseInt(u.ExpressionAttributeValues[clause[1]].(*types.AttributeValueMemberN).Value, 10, 64)
			row[name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
		}
		clause = nil
	}
	for _, token := range strings.Fields(expr) {
		switch token {
		case "SET", "REMOVE", "ADD":
			flush()
			mode = token
		case ",":
			flush()
		default:
			clause = append(clause, token)
		}
	}
	flush()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func newTestStore(t *testing.T) (*Store, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	return NewStore(fake, "watchlist-test", zap.NewNop(), observability.NewCollector("test")), fake
}

func testMovie(t *testing.T, id int64) *entities.Movie {
	t.Helper()
	release := time.Date(2010, time.July, 16, 0, 0, 0, 0, time.UTC)
	movie, err := entities.NewMovie(valueobjects.MovieID(id), "Inception", []string{"Action", "Sci-Fi"}, &release, 8.4)
	require.NoError(t, err)
	return movie
}

func registerUser(t *testing.T, store *Store, username string) valueobjects.UserID {
	t.Helper()
	ctx := context.Background()
	session := store.NewSession()
	id, err := session.Users().NextID(ctx)
	require.NoError(t, err)
	user, err := aggregates.RegisterUser(id, username, "hash")
	require.NoError(t, err)
	session.Users().Add(user)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)
	return id
}

func TestStore_ItemRoundTrip(t *testing.T) {
	// Arrange
	store, _ := newTestStore(t)
	ctx := context.Background()
	userID := registerUser(t, store, "alice")

	session := store.NewSession()
	item, err := aggregates.NewWatchlistItem(userID, testMovie(t, 27205))
	require.NoError(t, err)
	item.MarkAsWatched()
	rating := valueobjects.MustRating(9)
	require.NoError(t, item.SetRating(&rating))
	item.UpdateNotes("rewatch")
	session.Watchlist().Add(item)

	// Act
	count, err := session.PersistPendingChanges(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := store.NewSession().Watchlist().Get(ctx, item.Key())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusWatched, loaded.Status())
	assert.Equal(t, 9, loaded.Rating().Value())
	assert.Equal(t, "rewatch", *loaded.Notes())
	assert.Equal(t, []string{"Action", "Sci-Fi"}, loaded.Movie().Genres())
	require.NotNil(t, loaded.WatchedAt())
	assert.True(t, loaded.WatchedAt().Equal(*item.WatchedAt()))
	assert.Empty(t, loaded.GetUncommittedEvents())
}

func TestStore_DuplicateItemIsConflict(t *testing.T) {
	// Arrange
	store, fake := newTestStore(t)
	ctx := context.Background()
	userID := registerUser(t, store, "alice")

	first := store.NewSession()
	item, err := aggregates.NewWatchlistItem(userID, testMovie(t, 1))
	require.NoError(t, err)
	first.Watchlist().Add(item)
	_, err = first.PersistPendingChanges(ctx)
	require.NoError(t, err)
	before := fake.transactions

	second := store.NewSession()
	dup, err := aggregates.NewWatchlistItem(userID, testMovie(t, 1))
	require.NoError(t, err)
	second.Watchlist().Add(dup)

	// Act
	_, err = second.PersistPendingChanges(ctx)

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, before, fake.transactions)
}

func TestStore_UsernameClaim(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := registerUser(t, store, "Alice")

	user, err := store.NewSession().Users().GetByUsername(ctx, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID())

	session := store.NewSession()
	nextID, err := session.Users().NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id+1, nextID)
	other, err := aggregates.RegisterUser(nextID, "ALICE", "hash")
	require.NoError(t, err)
	session.Users().Add(other)

	_, err = session.PersistPendingChanges(ctx)
	assert.True(t, pkgerrors.IsConflict(err))

	_, err = store.NewSession().Users().GetByUsername(ctx, "nobody")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_StatisticsCacheSurvivesReload(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := registerUser(t, store, "alice")
	computedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	session := store.NewSession()
	user, err := session.Users().Get(ctx, id)
	require.NoError(t, err)
	user.StoreStatistics([]byte(`{"total_items":3}`), computedAt)
	session.Users().SaveStatistics(user)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)

	reloaded, err := store.NewSession().Users().Get(ctx, id)
	require.NoError(t, err)
	cache, ok := reloaded.CachedStatistics()
	require.True(t, ok)
	assert.JSONEq(t, `{"total_items":3}`, string(cache.Payload))
	assert.True(t, cache.ComputedAt.Equal(computedAt))

	session = store.NewSession()
	user, err = session.Users().Get(ctx, id)
	require.NoError(t, err)
	require.True(t, user.InvalidateStatistics())
	session.Users().SaveStatistics(user)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)

	reloaded, err = store.NewSession().Users().Get(ctx, id)
	require.NoError(t, err)
	_, ok = reloaded.CachedStatistics()
	assert.False(t, ok)
}

func TestStore_StatisticsWriteKeepsProfile(t *testing.T) {
	// Arrange
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := registerUser(t, store, "alice")

	stale := store.NewSession()
	staleUser, err := stale.Users().Get(ctx, id)
	require.NoError(t, err)

	other := store.NewSession()
	user, err := other.Users().Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, user.ChangePassword("new-hash"))
	other.Users().Update(user)
	_, err = other.PersistPendingChanges(ctx)
	require.NoError(t, err)

	// Act
	staleUser.InvalidateStatistics()
	stale.Users().SaveStatistics(staleUser)
	_, err = stale.PersistPendingChanges(ctx)

	// Assert
	require.NoError(t, err)
	loaded, err := store.NewSession().Users().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", loaded.PasswordHash())
	assert.Equal(t, int64(1), loaded.StatisticsGeneration())
}

func TestStore_ProfileUpdateKeepsStatistics(t *testing.T) {
	// Arrange
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := registerUser(t, store, "alice")

	profile := store.NewSession()
	user, err := profile.Users().Get(ctx, id)
	require.NoError(t, err)

	stats := store.NewSession()
	cacheOwner, err := stats.Users().Get(ctx, id)
	require.NoError(t, err)
	cacheOwner.StoreStatistics([]byte(`{"total_items":4}`), cacheOwner.CreatedAt())
	stats.Users().SaveStatistics(cacheOwner)
	_, err = stats.PersistPendingChanges(ctx)
	require.NoError(t, err)

	// Act
	user.RecordLogin()
	profile.Users().Update(user)
	_, err = profile.PersistPendingChanges(ctx)

	// Assert
	require.NoError(t, err)
	loaded, err := store.NewSession().Users().Get(ctx, id)
	require.NoError(t, err)
	cache, ok := loaded.CachedStatistics()
	require.True(t, ok)
	assert.JSONEq(t, `{"total_items":4}`, string(cache.Payload))
	assert.NotNil(t, loaded.LastLoginAt())
}

func TestStore_StaleStatisticsStoreConflicts(t *testing.T) {
	// Arrange
	store, _ := newTestStore(t)
	ctx := context.Background()
	id := registerUser(t, store, "alice")

	computing := store.NewSession()
	user, err := computing.Users().Get(ctx, id)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		invalidating := store.NewSession()
		other, err := invalidating.Users().Get(ctx, id)
		require.NoError(t, err)
		other.InvalidateStatistics()
		invalidating.Users().SaveStatistics(other)
		_, err = invalidating.PersistPendingChanges(ctx)
		require.NoError(t, err)
	}

	// Act
	user.StoreStatistics([]byte(`{"total_items":0}`), user.CreatedAt())
	computing.Users().SaveStatistics(user)
	_, err = computing.PersistPendingChanges(ctx)

	// Assert
	assert.True(t, pkgerrors.IsConflict(err))
	loaded, err := store.NewSession().Users().Get(ctx, id)
	require.NoError(t, err)
	_, cached := loaded.CachedStatistics()
	assert.False(t, cached)
	assert.Equal(t, int64(2), loaded.StatisticsGeneration())

	// A recompute under the current generation lands
	fresh := store.NewSession()
	current, err := fresh.Users().Get(ctx, id)
	require.NoError(t, err)
	current.StoreStatistics([]byte(`{"total_items":0}`), current.CreatedAt())
	fresh.Users().SaveStatistics(current)
	_, err = fresh.PersistPendingChanges(ctx)
	assert.NoError(t, err)
}

func TestStore_ListByUserFollowsPages(t *testing.T) {
	store, fake := newTestStore(t)
	fake.pageSize = 2
	ctx := context.Background()
	userID := registerUser(t, store, "alice")
	otherID := registerUser(t, store, "bob")

	session := store.NewSession()
	for _, id := range []int64{5, 3, 9, 1, 7} {
		item, err := aggregates.NewWatchlistItem(userID, testMovie(t, id))
		require.NoError(t, err)
		session.Watchlist().Add(item)
	}
	item, err := aggregates.NewWatchlistItem(otherID, testMovie(t, 42))
	require.NoError(t, err)
	session.Watchlist().Add(item)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)

	items, err := store.NewSession().Watchlist().ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for _, it := range items {
		assert.Equal(t, userID, it.UserID())
	}
}

func TestStore_RemoveDeletesItem(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	userID := registerUser(t, store, "alice")

	session := store.NewSession()
	item, err := aggregates.NewWatchlistItem(userID, testMovie(t, 8))
	require.NoError(t, err)
	session.Watchlist().Add(item)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)

	session = store.NewSession()
	loaded, err := session.Watchlist().Get(ctx, item.Key())
	require.NoError(t, err)
	loaded.MarkForRemoval()
	session.Watchlist().Remove(loaded)
	_, err = session.PersistPendingChanges(ctx)
	require.NoError(t, err)

	_, err = store.NewSession().Watchlist().Get(ctx, item.Key())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_EmptyPersistSkipsTransaction(t *testing.T) {
	store, fake := newTestStore(t)

	count, err := store.NewSession().PersistPendingChanges(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, fake.transactions)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"conditional check", &types.ConditionalCheckFailedException{Message: aws.String("exists")}, true},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, false},
		{"plain", errors.New("connection reset"), false},
		{"cancelled without condition", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("TransactionConflict")}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			assert.Equal(t, tt.conflict, pkgerrors.IsConflict(err))
			assert.Equal(t, !tt.conflict, pkgerrors.IsPersistence(err))
		})
	}
}

func TestStore_BackendFailureIsPersistenceError(t *testing.T) {
	store, fake := newTestStore(t)
	fake.failWith = &smithy.GenericAPIError{Code: "InternalServerError", Message: "boom"}

	_, err := store.NewSession().Users().Get(context.Background(), valueobjects.UserID(1))

	assert.True(t, pkgerrors.IsPersistence(err))
}
