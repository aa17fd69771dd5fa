package aggregates

import (
	"sort"
	"time"

	"watchlist-backend/domain/core/valueobjects"
)

// GenreCount is the number of watched items tagged with a genre
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// YearCount is the number of watched items released in a year
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// StatisticsSnapshot is the derived view of a user's whole watchlist
type StatisticsSnapshot struct {
	UserID            valueobjects.UserID `json:"user_id"`
	TotalItems        int                 `json:"total_items"`
	PlannedCount      int                 `json:"planned_count"`
	WatchingCount     int                 `json:"watching_count"`
	WatchedCount      int                 `json:"watched_count"`
	DroppedCount      int                 `json:"dropped_count"`
	FavoriteCount     int                 `json:"favorite_count"`
	AddedThisYear     int                 `json:"added_this_year"`
	AverageUserRating *float64            `json:"average_user_rating"`
	AverageBaseRating *float64            `json:"average_base_rating"`
	GenreCounts       []GenreCount        `json:"genre_counts"`
	MostWatchedGenre  string              `json:"most_watched_genre,omitempty"`
	WatchedByYear     []YearCount         `json:"watched_by_year"`
	ComputedAt        time.Time           `json:"computed_at"`
}

// ComputeStatistics folds a user's watchlist into a snapshot.
//
// Items are folded in AddedAt order, then MovieID. Genre counts keep the order
// in which genres were first met, and the most watched genre on a tie is the
// one met first. Watched-by-year is sorted newest first.
func ComputeStatistics(userID valueobjects.UserID, items []*WatchlistItem, now time.Time) StatisticsSnapshot {
	ordered := make([]*WatchlistItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].AddedAt().Equal(ordered[j].AddedAt()) {
			return ordered[i].AddedAt().Before(ordered[j].AddedAt())
		}
		return ordered[i].MovieID() < ordered[j].MovieID()
	})

	snap := StatisticsSnapshot{
		UserID:        userID,
		TotalItems:    len(ordered),
		GenreCounts:   []GenreCount{},
		WatchedByYear: []YearCount{},
		ComputedAt:    now,
	}

	var (
		ratingSum   int
		ratingCount int
		baseSum     float64
		genreIndex  = map[string]int{}
		yearCounts  = map[int]int{}
	)

	for _, item := range ordered {
		switch item.Status() {
		case valueobjects.StatusPlanned:
			snap.PlannedCount++
		case valueobjects.StatusWatching:
			snap.WatchingCount++
		case valueobjects.StatusWatched:
			snap.WatchedCount++
		case valueobjects.StatusDropped:
			snap.DroppedCount++
		}

		if item.IsFavorite() {
			snap.FavoriteCount++
		}
		if item.AddedAt().Year() == now.Year() {
			snap.AddedThisYear++
		}
		if r := item.Rating(); r != nil {
			ratingSum += r.Value()
			ratingCount++
		}
		baseSum += item.Movie().VoteAverage()

		if item.Status() != valueobjects.StatusWatched {
			continue
		}
		for _, genre := range item.Movie().Genres() {
			idx, ok := genreIndex[genre]
			if !ok {
				idx = len(snap.GenreCounts)
				genreIndex[genre] = idx
				snap.GenreCounts = append(snap.GenreCounts, GenreCount{Genre: genre})
			}
			snap.GenreCounts[idx].Count++
		}
		if year, ok := item.Movie().ReleaseYear(); ok {
			yearCounts[year]++
		}
	}

	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		snap.AverageUserRating = &avg
	}
	if len(ordered) > 0 {
		avg := baseSum / float64(len(ordered))
		snap.AverageBaseRating = &avg
	}

	best := 0
	for _, gc := range snap.GenreCounts {
		if gc.Count > best {
			best = gc.Count
			snap.MostWatchedGenre = gc.Genre
		}
	}

	for year, count := range yearCounts {
		snap.WatchedByYear = append(snap.WatchedByYear, YearCount{Year: year, Count: count})
	}
	sort.Slice(snap.WatchedByYear, func(i, j int) bool {
		return snap.WatchedByYear[i].Year > snap.WatchedByYear[j].Year
	})

	return snap
}
