package accrual

import (
	"time"

	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
)

// DefaultTickInterval is how often an active session is checked for newly earned tokens
const DefaultTickInterval = 10 * time.Second

// Accrue computes how many whole tokens session has earned by now at rate
// beyond what it already recorded. It returns the delta and the session
// with TokensEarned raised to the new target. Clock skew that puts now
// before the start, or a zero rate, yields no delta.
func Accrue(session entities.WatchSession, now time.Time, rate ledger.Rate) (int64, entities.WatchSession) {
	target := rate.TokensFor(now.Sub(session.StartTime))
	if target <= session.TokensEarned {
		return 0, session
	}
	delta := target - session.TokensEarned
	session.TokensEarned = target
	return delta, session
}

// Rate picks the accrual rate for a session
func Rate(session entities.WatchSession, inParty bool) ledger.Rate {
	rate := ledger.BaseRate(session.IsDocumentary)
	if inParty {
		rate = rate.WithPartyBonus()
	}
	return rate
}

// Reason is the transaction reason for watch-time credits
func Reason(inParty bool) string {
	if inParty {
		return ledger.ReasonWatchTimeParty
	}
	return ledger.ReasonWatchTime
}
