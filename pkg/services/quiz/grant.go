package quiz

import (
	"fmt"

	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// GrantIfEligible awards reward for a correct answer on title, once.
// A wrong answer returns the inputs unchanged and no error, so the
// viewer may try again. A title already in completed is rejected with
// DUPLICATE_REWARD. Neither input is modified.
func GrantIfEligible(l *ledger.Ledger, w *entities.Wallet, completed []string, title string, isCorrect bool, reward int64) (*entities.Wallet, []string, error) {
	if w == nil {
		return nil, completed, types.NewTheaterError(types.ErrNotAuthenticated, "Please sign in to take the quiz")
	}
	key := storage.QuizKey(title)
	if contains(completed, key) {
		return w, completed, types.NewTheaterError(types.ErrDuplicateReward, "You already completed this quiz!")
	}
	if !isCorrect {
		return w, completed, nil
	}

	next, err := l.Credit(w, reward, ledger.ReasonQuizPassed, entities.TransactionTypeBonus, title)
	if err != nil {
		return w, completed, err
	}

	out := make([]string, len(completed), len(completed)+1)
	copy(out, completed)
	return next, append(out, key), nil
}

func contains(set []string, key string) bool {
	for _, k := range set {
		if k == key {
			return true
		}
	}
	return false
}

func without(set []string, key string) []string {
	out := make([]string, 0, len(set))
	for _, k := range set {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// RetryPolicy limits how often a viewer may attempt one title's quiz
type RetryPolicy struct {
	AllowRetryAfterWrong bool
	MaxAttempts          int // 0 means unlimited
}

// DefaultRetryPolicy lets a viewer retry a title's quiz as often as they like
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{AllowRetryAfterWrong: true}
}

// Permits reports whether another attempt is allowed after attempts so far
func (p RetryPolicy) Permits(attempts int) error {
	if attempts == 0 {
		return nil
	}
	if !p.AllowRetryAfterWrong {
		return types.NewTheaterError(types.ErrRetryNotAllowed, "Incorrect answers cannot be retried for this video")
	}
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return types.NewTheaterError(types.ErrRetryNotAllowed,
			fmt.Sprintf("No attempts left for this video (limit %d)", p.MaxAttempts))
	}
	return nil
}
