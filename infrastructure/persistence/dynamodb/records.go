package dynamodb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Single-table layout:
//
//	USER#<id>         PROFILE        user record
//	USER#<id>         ITEM#<movie>   watchlist item record
//	USERNAME#<name>   CLAIM          username uniqueness claim
//	COUNTER           USER_ID        user id sequence
const (
	entityUser    = "USER"
	entityItem    = "WATCHLIST_ITEM"
	entityClaim   = "USERNAME_CLAIM"
	profileSK     = "PROFILE"
	claimSK       = "CLAIM"
	itemSKPrefix  = "ITEM#"
	counterPK     = "COUNTER"
	userIDCounter = "USER_ID"
)

func userPK(id valueobjects.UserID) string {
	return "USER#" + id.String()
}

func itemSK(id valueobjects.MovieID) string {
	return fmt.Sprintf("%s%012d", itemSKPrefix, id.Int64())
}

func claimPK(username string) string {
	return "USERNAME#" + strings.ToLower(strings.TrimSpace(username))
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// userRecord is the stored form of a user
type userRecord struct {
	PK              string     `dynamodbav:"PK"`
	SK              string     `dynamodbav:"SK"`
	EntityType      string     `dynamodbav:"EntityType"`
	UserID          int64      `dynamodbav:"UserID"`
	Username        string     `dynamodbav:"Username"`
	PasswordHash    string     `dynamodbav:"PasswordHash"`
	CreatedAt       time.Time  `dynamodbav:"CreatedAt"`
	LastLoginAt     *time.Time `dynamodbav:"LastLoginAt,omitempty"`
	StatsPayload    []byte     `dynamodbav:"StatsPayload,omitempty"`
	StatsComputedAt *time.Time `dynamodbav:"StatsComputedAt,omitempty"`
	StatsGeneration int64      `dynamodbav:"StatsGeneration,omitempty"`
}

func newUserRecord(user *aggregates.User) userRecord {
	state := user.State()
	rec := userRecord{
		PK:           userPK(state.ID),
		SK:           profileSK,
		EntityType:   entityUser,
		UserID:       state.ID.Int64(),
		Username:     state.Username,
		PasswordHash: state.PasswordHash,
		CreatedAt:    state.CreatedAt,
		LastLoginAt:  state.LastLoginAt,

		StatsGeneration: state.StatisticsGeneration,
	}
	if state.Statistics != nil {
		computedAt := state.Statistics.ComputedAt
		rec.StatsPayload = state.Statistics.Payload
		rec.StatsComputedAt = &computedAt
	}
	return rec
}

func (r userRecord) toUser() (*aggregates.User, error) {
	state := aggregates.UserState{
		ID:           valueobjects.UserID(r.UserID),
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		LastLoginAt:  r.LastLoginAt,

		StatisticsGeneration: r.StatsGeneration,
	}
	if r.StatsComputedAt != nil {
		state.Statistics = &aggregates.StatisticsCache{Payload: r.StatsPayload, ComputedAt: *r.StatsComputedAt}
	}
	return aggregates.ReconstituteUser(state)
}

// itemRecord is the stored form of a watchlist item with its movie snapshot
type itemRecord struct {
	PK          string     `dynamodbav:"PK"`
	SK          string     `dynamodbav:"SK"`
	EntityType  string     `dynamodbav:"EntityType"`
	UserID      int64      `dynamodbav:"UserID"`
	MovieID     int64      `dynamodbav:"MovieID"`
	Title       string     `dynamodbav:"Title"`
	Genres      []string   `dynamodbav:"Genres"`
	ReleaseDate *time.Time `dynamodbav:"ReleaseDate,omitempty"`
	VoteAverage float64    `dynamodbav:"VoteAverage"`
	Status      string     `dynamodbav:"Status"`
	IsFavorite  bool       `dynamodbav:"IsFavorite"`
	Rating      *int       `dynamodbav:"Rating,omitempty"`
	Notes       *string    `dynamodbav:"Notes,omitempty"`
	AddedAt     time.Time  `dynamodbav:"AddedAt"`
	WatchedAt   *time.Time `dynamodbav:"WatchedAt,omitempty"`
}

func newItemRecord(item *aggregates.WatchlistItem) itemRecord {
	state := item.State()
	rec := itemRecord{
		PK:          userPK(state.UserID),
		SK:          itemSK(state.Movie.ID()),
		EntityType:  entityItem,
		UserID:      state.UserID.Int64(),
		MovieID:     state.Movie.ID().Int64(),
		Title:       state.Movie.Title(),
		Genres:      state.Movie.Genres(),
		ReleaseDate: state.Movie.ReleaseDate(),
		VoteAverage: state.Movie.VoteAverage(),
		Status:      state.Status.String(),
		IsFavorite:  state.IsFavorite,
		Notes:       state.Notes,
		AddedAt:     state.AddedAt,
		WatchedAt:   state.WatchedAt,
	}
	if state.Rating != nil {
		v := state.Rating.Value()
		rec.Rating = &v
	}
	return rec
}

func (r itemRecord) toItem() (*aggregates.WatchlistItem, error) {
	movie, err := entities.NewMovie(valueobjects.MovieID(r.MovieID), r.Title, r.Genres, r.ReleaseDate, r.VoteAverage)
	if err != nil {
		return nil, err
	}
	status, err := valueobjects.ParseWatchStatus(r.Status)
	if err != nil {
		return nil, err
	}

	state := aggregates.WatchlistItemState{
		UserID:     valueobjects.UserID(r.UserID),
		Movie:      movie,
		Status:     status,
		IsFavorite: r.IsFavorite,
		Notes:      r.Notes,
		AddedAt:    r.AddedAt,
		WatchedAt:  r.WatchedAt,
	}
	if r.Rating != nil {
		rating, err := valueobjects.NewRating(*r.Rating)
		if err != nil {
			return nil, err
		}
		state.Rating = &rating
	}
	return aggregates.ReconstituteWatchlistItem(state)
}

// claimRecord reserves a username for one user id
type claimRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     int64  `dynamodbav:"UserID"`
}

func parseCounter(v types.AttributeValue) (int64, error) {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter value is not a number")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}
