// Package ledger holds the arithmetic applied when a session is rated.
package ledger

import (
	"math"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/model"
)

const (
	MinRating = 1
	MaxRating = 5

	// CreditsPerRating is granted to the rated user for every completed session.
	CreditsPerRating = 1
)

// ValidateRating rejects anything outside 1..5, including the zero value.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.ValidationError("rating must be between 1 and 5")
	}
	return nil
}

// Outcome is the new aggregate of a rated profile.
type Outcome struct {
	Rate        float64
	RatingCount int
	Credits     int
}

// Apply folds one rating into profile's running average.
func Apply(profile model.UserProfile, rating int) Outcome {
	return Outcome{
		Rate:        NextRate(profile.Rate, profile.RatingCount, rating),
		RatingCount: profile.RatingCount + 1,
		Credits:     profile.Credits + CreditsPerRating,
	}
}

// NextRate returns round1((rate*count + rating) / (count+1)). A non-positive rate
// falls back to the default and a negative count to zero.
func NextRate(rate float64, count, rating int) float64 {
	if rate <= 0 {
		rate = model.DefaultRate
	}
	if count < 0 {
		count = 0
	}
	return round1((rate*float64(count) + float64(rating)) / float64(count+1))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
