package ledger

import "time"

// Rate is an accrual rate in thousandths of a token per hour.
// Integer thousandths keep floor(elapsed × rate) exact at minute boundaries.
type Rate int64

const (
	RateNormal      Rate = 1000 // 1 token per hour
	RateDocumentary Rate = 3000 // 3 tokens per hour
)

const (
	AdCost                = int64(50)
	QuizRewardNormal      = int64(5)
	QuizRewardDocumentary = int64(10)
)

// Reasons recorded on transactions
const (
	ReasonWatchTime      = "Watch time"
	ReasonWatchTimeParty = "Watch time (Party Bonus +50%)"
	ReasonQuizPassed     = "Quiz passed"
)

// BaseRate returns the accrual rate for a title
func BaseRate(isDocumentary bool) Rate {
	if isDocumentary {
		return RateDocumentary
	}
	return RateNormal
}

// WithPartyBonus applies the 1.5x multiplier for viewers in an active party
func (r Rate) WithPartyBonus() Rate {
	return r * 3 / 2
}

// PerHour returns the rate as tokens per hour
func (r Rate) PerHour() float64 {
	return float64(r) / 1000
}

// TokensFor returns floor(elapsed hours × rate). Non-positive input yields 0.
func (r Rate) TokensFor(elapsed time.Duration) int64 {
	if r <= 0 || elapsed <= 0 {
		return 0
	}
	ms := elapsed.Milliseconds()
	return ms * int64(r) / (time.Hour.Milliseconds() * 1000)
}

// QuizReward returns the bonus for passing a quiz
func QuizReward(isDocumentary bool) int64 {
	if isDocumentary {
		return QuizRewardDocumentary
	}
	return QuizRewardNormal
}
