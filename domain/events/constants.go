package events

// Event sources - These define where events originate from
const (
	// SourceBackend is the primary backend service source
	SourceBackend = "watchlist.backend"
)

// Event types - These define the types of events in the system
const (
	// Watchlist events
	TypeItemAdded             = "watchlist.item_added"
	TypeItemWatched           = "watchlist.item_watched"
	TypeItemRated             = "watchlist.item_rated"
	TypeItemFavorited         = "watchlist.item_favorited"
	TypeItemRemoved           = "watchlist.item_removed"
	TypeStatisticsInvalidated = "watchlist.statistics_invalidated"

	// Account events
	TypeUserRegistered     = "account.user_registered"
	TypeUserLoggedIn       = "account.user_logged_in"
	TypePasswordChanged    = "account.password_changed"
	TypeRefreshTokenIssued = "account.refresh_token_issued"
)
