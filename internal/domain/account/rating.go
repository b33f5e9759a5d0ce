package account

import (
	"github.com/shopspring/decimal"

	"viberate/internal/domain"
)

const (
	MinQualityScore = 0
	MaxQualityScore = 10

	// ratingPlaces is the stored precision; displays round further.
	ratingPlaces int32 = 6
)

// ValidateQualityScore accepts nil (no score) or a value in [0, 10].
func ValidateQualityScore(score *decimal.Decimal) error {
	if score == nil {
		return nil
	}
	if score.LessThan(decimal.NewFromInt(MinQualityScore)) || score.GreaterThan(decimal.NewFromInt(MaxQualityScore)) {
		return domain.Invalid("quality score %s outside [%d, %d]", score.String(), MinQualityScore, MaxQualityScore)
	}
	return nil
}

// Completion is the annotator state after one more approved task.
type Completion struct {
	TasksCompleted int
	Rating         decimal.Decimal
}

// NextCompletion increments the completed count and, when a score is given,
// folds it into the running mean: (old*(n-1)+score)/n with n the new count.
func NextCompletion(rating decimal.Decimal, tasksCompleted int, score *decimal.Decimal) Completion {
	n := tasksCompleted + 1
	if score == nil {
		return Completion{TasksCompleted: n, Rating: rating}
	}

	count := decimal.NewFromInt(int64(n))
	total := rating.Mul(count.Sub(decimal.NewFromInt(1))).Add(*score)
	return Completion{
		TasksCompleted: n,
		Rating:         total.Div(count).Round(ratingPlaces),
	}
}
