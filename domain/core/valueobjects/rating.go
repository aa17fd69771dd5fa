package valueobjects

import (
	"fmt"
	"strconv"

	pkgerrors "watchlist-backend/pkg/errors"
)

const (
	MinRating = 1
	MaxRating = 10
)

// Rating is a user score in [1, 10]
type Rating struct {
	value int
}

// NewRating validates the score range
func NewRating(value int) (Rating, error) {
	if value < MinRating || value > MaxRating {
		return Rating{}, pkgerrors.NewValidation(
			fmt.Sprintf("rating must be between %d and %d, got %d", MinRating, MaxRating, value))
	}
	return Rating{value: value}, nil
}

// MustRating panics on an out-of-range value. Intended for literals in tests and fixtures.
func MustRating(value int) Rating {
	r, err := NewRating(value)
	if err != nil {
		panic(err)
	}
	return r
}

// Value returns the numeric score
func (r Rating) Value() int {
	return r.value
}

// Equals compares two ratings
func (r Rating) Equals(other Rating) bool {
	return r.value == other.value
}

func (r Rating) String() string {
	return fmt.Sprintf("%d/%d", r.value, MaxRating)
}

// MarshalJSON encodes the rating as a bare number
func (r Rating) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(r.value)), nil
}

// UnmarshalJSON decodes a bare number and validates its range
func (r *Rating) UnmarshalJSON(data []byte) error {
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return pkgerrors.NewValidation("rating must be an integer")
	}
	parsed, err := NewRating(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
