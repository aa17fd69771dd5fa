package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/infrastructure/persistence"
	pkgerrors "watchlist-backend/pkg/errors"
	"watchlist-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// MaxTransactItems is the DynamoDB limit on actions in one TransactWriteItems call
const MaxTransactItems = 100

// Conditions on user record updates. Profile and statistics writes touch
// disjoint attributes so neither can undo the other.
const (
	conditionUserExists        = "attribute_exists(PK)"
	conditionGenerationUnset   = "attribute_exists(PK) AND attribute_not_exists(#generation)"
	conditionGenerationMatches = "attribute_exists(PK) AND #generation = :generation"

	storeStatisticsUpdate = "SET #statsPayload = :statsPayload, #statsComputedAt = :statsComputedAt"
	clearStatisticsUpdate = "REMOVE #statsPayload, #statsComputedAt ADD #generation :one"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store persists watchlists and users in a single DynamoDB table
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
	metrics   *observability.Collector
}

// NewStore creates a DynamoDB-backed store
func NewStore(client API, tableName string, logger *zap.Logger, metrics *observability.Collector) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger.Named("dynamodb"),
		metrics:   metrics,
	}
}

// NewSession opens a session over the table
func (s *Store) NewSession() ports.Session {
	return &Session{
		store:   s,
		changes: persistence.NewChangeSet(),
		items:   make(map[valueobjects.WatchlistItemKey]*aggregates.WatchlistItem),
		users:   make(map[valueobjects.UserID]*aggregates.User),
	}
}

func (s *Store) observe(operation string, start time.Time, err error) {
	s.metrics.RecordDBOperation(operation, s.tableName, err, time.Since(start))
}

func (s *Store) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	start := time.Now()
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyOf(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	s.observe("GetItem", start, err)
	if err != nil {
		return false, classify("failed to read item", err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, pkgerrors.NewInternal("failed to decode item", err)
	}
	return true, nil
}

func (s *Store) queryItems(ctx context.Context, userID valueobjects.UserID) ([]itemRecord, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(itemSKPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to build query", err)
	}

	var records []itemRecord
	var startKey map[string]types.AttributeValue
	for {
		start := time.Now()
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			ConsistentRead:            aws.Bool(true),
		})
		s.observe("Query", start, err)
		if err != nil {
			return nil, classify("failed to query watchlist", err)
		}

		var page []itemRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, pkgerrors.NewInternal("failed to decode watchlist", err)
		}
		records = append(records, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return records, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func (s *Store) nextUserID(ctx context.Context) (valueobjects.UserID, error) {
	update := expression.Add(expression.Name("Value"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, pkgerrors.NewInternal("failed to build counter update", err)
	}

	start := time.Now()
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       keyOf(counterPK, userIDCounter),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	s.observe("UpdateItem", start, err)
	if err != nil {
		return 0, classify("failed to reserve user id", err)
	}

	id, err := parseCounter(result.Attributes["Value"])
	if err != nil {
		return 0, pkgerrors.NewInternal("user id counter is corrupt", err)
	}
	return valueobjects.UserID(id), nil
}

func (s *Store) transactWrite(ctx context.Context, actions []types.TransactWriteItem) error {
	start := time.Now()
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: actions,
	})
	s.observe("TransactWriteItems", start, err)
	if err != nil {
		return classify("failed to persist changes", err)
	}
	return nil
}

func (s *Store) buildActions(changes []persistence.Change) ([]types.TransactWriteItem, error) {
	notExists := expression.Name("PK").AttributeNotExists()
	insertExpr, err := expression.NewBuilder().WithCondition(notExists).Build()
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to build condition", err)
	}

	actions := make([]types.TransactWriteItem, 0, len(changes))
	put := func(record interface{}, conditional bool) error {
		av, err := attributevalue.MarshalMap(record)
		if err != nil {
			return pkgerrors.NewInternal("failed to encode item", err)
		}
		p := &types.Put{TableName: aws.String(s.tableName), Item: av}
		if conditional {
			p.ConditionExpression = insertExpr.Condition()
			p.ExpressionAttributeNames = insertExpr.Names()
		}
		actions = append(actions, types.TransactWriteItem{Put: p})
		return nil
	}
	update := func(pk, sk string, uu userUpdate) error {
		u := &types.Update{
			TableName:                aws.String(s.tableName),
			Key:                      keyOf(pk, sk),
			UpdateExpression:         aws.String(uu.expression),
			ConditionExpression:      aws.String(uu.condition),
			ExpressionAttributeNames: uu.names,
		}
		if len(uu.values) > 0 {
			u.ExpressionAttributeValues = make(map[string]types.AttributeValue, len(uu.values))
			for placeholder, v := range uu.values {
				av, err := attributevalue.Marshal(v)
				if err != nil {
					return pkgerrors.NewInternal("failed to encode update value", err)
				}
				u.ExpressionAttributeValues[placeholder] = av
			}
		}
		actions = append(actions, types.TransactWriteItem{Update: u})
		return nil
	}
	remove := func(pk, sk string) {
		actions = append(actions, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.tableName),
			Key:       keyOf(pk, sk),
		}})
	}

	for _, c := range changes {
		var err error
		switch {
		case c.Item != nil && c.Kind == persistence.ChangeDelete:
			remove(userPK(c.Item.UserID()), itemSK(c.Item.MovieID()))
		case c.Item != nil:
			err = put(newItemRecord(c.Item), c.Kind == persistence.ChangeInsert)
		case c.User != nil && c.Kind == persistence.ChangeDelete:
			remove(userPK(c.User.ID()), profileSK)
			remove(claimPK(c.User.Username()), claimSK)
		case c.User != nil && c.Kind == persistence.ChangeInsert:
			if err = put(newUserRecord(c.User), true); err == nil {
				err = put(claimRecord{
					PK:         claimPK(c.User.Username()),
					SK:         claimSK,
					EntityType: entityClaim,
					UserID:     c.User.ID().Int64(),
				}, true)
			}
		case c.Kind == persistence.ChangeStatistics:
			err = update(userPK(c.User.ID()), profileSK, statisticsUpdate(c.User))
		case c.User != nil:
			err = update(userPK(c.User.ID()), profileSK, profileUpdate(c.User))
		}
		if err != nil {
			return nil, err
		}
	}

	if len(actions) > MaxTransactItems {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("transaction has %d writes, limit is %d", len(actions), MaxTransactItems))
	}
	return actions, nil
}

// userUpdate is one UpdateItem action on a user record
type userUpdate struct {
	expression string
	condition  string
	names      map[string]string
	values     map[string]interface{}
}

// profileUpdate rewrites the profile attributes of a stored user
func profileUpdate(user *aggregates.User) userUpdate {
	state := user.State()
	names := map[string]string{
		"#username":     "Username",
		"#passwordHash": "PasswordHash",
		"#createdAt":    "CreatedAt",
		"#lastLoginAt":  "LastLoginAt",
	}
	values := map[string]interface{}{
		":username":     state.Username,
		":passwordHash": state.PasswordHash,
		":createdAt":    state.CreatedAt,
	}
	expr := "SET #username = :username, #passwordHash = :passwordHash, #createdAt = :createdAt"
	if state.LastLoginAt != nil {
		expr += ", #lastLoginAt = :lastLoginAt"
		values[":lastLoginAt"] = *state.LastLoginAt
	} else {
		expr += " REMOVE #lastLoginAt"
	}
	return userUpdate{expression: expr, condition: conditionUserExists, names: names, values: values}
}

// statisticsUpdate stores or clears the statistics attributes of a stored user.
// Storing is conditional on the generation the user was loaded with.
func statisticsUpdate(user *aggregates.User) userUpdate {
	names := map[string]string{
		"#statsPayload":    "StatsPayload",
		"#statsComputedAt": "StatsComputedAt",
		"#generation":      "StatsGeneration",
	}

	cache, present := user.CachedStatistics()
	if !present {
		return userUpdate{
			expression: clearStatisticsUpdate,
			condition:  conditionUserExists,
			names:      names,
			values:     map[string]interface{}{":one": 1},
		}
	}

	values := map[string]interface{}{
		":statsPayload":    cache.Payload,
		":statsComputedAt": cache.ComputedAt,
	}
	condition := conditionGenerationUnset
	if generation := user.StatisticsGeneration(); generation > 0 {
		condition = conditionGenerationMatches
		values[":generation"] = generation
	}
	return userUpdate{expression: storeStatisticsUpdate, condition: condition, names: names, values: values}
}

// classify maps DynamoDB failures onto application errors.
// Failed conditions mean the record already exists or changed underneath us.
func classify(message string, err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return pkgerrors.NewConflict("record already exists or was changed concurrently")
			}
		}
		return pkgerrors.NewPersistence(message, err)
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return pkgerrors.NewConflict("record already exists or was changed concurrently")
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ResourceNotFoundException":
			return pkgerrors.NewPersistence(message+": table not found", err)
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return pkgerrors.NewPersistence(message+": throttled", err)
		}
	}
	return pkgerrors.NewPersistence(message, err)
}

// Session is one unit of persistence over the table
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

// PersistPendingChanges writes every staged change in one TransactWriteItems call
func (s *Session) PersistPendingChanges(ctx context.Context) (int, error) {
	pending := s.changes.Pending()
	if len(pending) == 0 {
		return 0, nil
	}

	actions, err := s.store.buildActions(pending)
	if err != nil {
		return 0, err
	}
	if err := s.store.transactWrite(ctx, actions); err != nil {
		s.store.logger.Warn("Transaction failed",
			zap.Int("changes", len(pending)),
			zap.Error(err))
		return 0, err
	}

	s.changes.Reset()
	return len(pending), nil
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

	var record itemRecord
	found, err := r.session.store.getItem(ctx, userPK(key.UserID), itemSK(key.MovieID), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("movie %s is not on the watchlist of user %s", key.MovieID, key.UserID))
	}
	return r.load(record)
}

func (r watchlistRepository) ListByUser(ctx context.Context, userID valueobjects.UserID) ([]*aggregates.WatchlistItem, error) {
	records, err := r.session.store.queryItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*aggregates.WatchlistItem, 0, len(records))
	for _, record := range records {
		key := valueobjects.WatchlistItemKey{UserID: userID, MovieID: valueobjects.MovieID(record.MovieID)}
		if item, ok := r.session.items[key]; ok {
			items = append(items, item)
			continue
		}
		item, err := r.load(record)
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

func (r watchlistRepository) load(record itemRecord) (*aggregates.WatchlistItem, error) {
	item, err := record.toItem()
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

	var record userRecord
	found, err := r.session.store.getItem(ctx, userPK(id), profileSK, &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("user %s not found", id))
	}

	user, err := record.toUser()
	if err != nil {
		return nil, pkgerrors.NewInternal("stored user is corrupt", err)
	}
	r.session.users[user.ID()] = user
	r.session.changes.Track(user)
	return user, nil
}

func (r userRepository) GetByUsername(ctx context.Context, username string) (*aggregates.User, error) {
	var claim claimRecord
	found, err := r.session.store.getItem(ctx, claimPK(username), claimSK, &claim)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.NewNotFound("user not found")
	}
	return r.Get(ctx, valueobjects.UserID(claim.UserID))
}

func (r userRepository) NextID(ctx context.Context) (valueobjects.UserID, error) {
	return r.session.store.nextUserID(ctx)
}

func (r userRepository) SaveStatistics(user *aggregates.User) {
	r.session.changes.StageStatistics(user)
}

func (r userRepository) Add(user *aggregates.User) {
	r.session.users[user.ID()] = user
	r.session.changes.StageUser(persistence.ChangeInsert, user)
}

func (r userRepository) Update(user *aggregates.User) {
	r.session.changes.StageUser(persistence.ChangePut, user)
}
