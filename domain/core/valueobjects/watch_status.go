package valueobjects

import (
	"fmt"
	"strings"

	pkgerrors "watchlist-backend/pkg/errors"
)

// WatchStatus is where a user is with a movie on their watchlist
type WatchStatus string

const (
	StatusPlanned  WatchStatus = "planned"
	StatusWatching WatchStatus = "watching"
	StatusWatched  WatchStatus = "watched"
	StatusDropped  WatchStatus = "dropped"
)

// AllStatuses lists every status in display order
var AllStatuses = []WatchStatus{StatusPlanned, StatusWatching, StatusWatched, StatusDropped}

// ParseWatchStatus accepts any casing of a known status
func ParseWatchStatus(raw string) (WatchStatus, error) {
	s := WatchStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", pkgerrors.NewValidation(fmt.Sprintf("unknown watch status %q", raw))
	}
	return s, nil
}

// IsValid reports whether s is one of the known statuses
func (s WatchStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusWatching, StatusWatched, StatusDropped:
		return true
	}
	return false
}

func (s WatchStatus) String() string {
	return string(s)
}
