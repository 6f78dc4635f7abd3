package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// Ledger applies credits and debits to wallets as pure transforms.
// The input wallet is never modified; each call returns a new wallet.
type Ledger struct {
	clock clockwork.Clock
	newID func() string
}

// Option configures a Ledger
type Option func(*Ledger)

// WithIDGenerator overrides transaction ID generation
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		l.newID = fn
	}
}

// New creates a Ledger stamping transactions with clock's time
func New(clock clockwork.Clock, opts ...Option) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Ledger{
		clock: clock,
		newID: NewID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewID returns a time-ordered unique identifier
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Clock returns the clock used for timestamps
func (l *Ledger) Clock() clockwork.Clock {
	return l.clock
}

// NewWallet returns an empty wallet for a viewer who just signed in
func (l *Ledger) NewWallet(userID string) *entities.Wallet {
	return &entities.Wallet{
		UserID:       userID,
		Transactions: []entities.TokenTransaction{},
		LastActivity: l.clock.Now(),
	}
}

// Credit adds amount to the wallet as an earned or bonus transaction.
// Bonus credits also count a passed quiz.
func (l *Ledger) Credit(w *entities.Wallet, amount int64, reason string, kind entities.TransactionType, videoTitle string) (*entities.Wallet, error) {
	if w == nil {
		return nil, walletNotFound()
	}
	if amount <= 0 {
		return nil, types.NewTheaterError(types.ErrInvalidAmount, fmt.Sprintf("credit amount must be positive, got %d", amount))
	}

	switch kind {
	case entities.TransactionTypeEarned, entities.TransactionTypeBonus:
	case entities.TransactionTypeSpent:
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "a credit cannot be of type spent")
	default:
		return nil, types.NewTheaterError(types.ErrInvalidArgument, fmt.Sprintf("unknown transaction type %q", kind))
	}

	next := l.apply(w, entities.TokenTransaction{
		Type:       kind,
		Amount:     amount,
		Reason:     reason,
		VideoTitle: videoTitle,
	})
	if kind == entities.TransactionTypeBonus {
		next.QuizzesPassed++
	}
	return next, nil
}

// Debit subtracts amount as a spent transaction. When the balance is too
// low it fails with INSUFFICIENT_BALANCE and nothing changes.
func (l *Ledger) Debit(w *entities.Wallet, amount int64, reason string) (*entities.Wallet, error) {
	if w == nil {
		return nil, walletNotFound()
	}
	if amount <= 0 {
		return nil, types.NewTheaterError(types.ErrInvalidAmount, fmt.Sprintf("debit amount must be positive, got %d", amount))
	}
	if !BalanceSufficient(w, amount) {
		return nil, InsufficientBalance(w, amount)
	}

	return l.apply(w, entities.TokenTransaction{
		Type:   entities.TransactionTypeSpent,
		Amount: amount,
		Reason: reason,
	}), nil
}

func (l *Ledger) apply(w *entities.Wallet, tx entities.TokenTransaction) *entities.Wallet {
	now := l.clock.Now()
	tx.ID = l.newID()
	tx.Timestamp = now

	next := w.Clone()
	next.Transactions = append(next.Transactions, tx)
	next.TotalTokens += tx.Signed()
	next.LastActivity = now
	return next
}

// BalanceSufficient reports whether w exists and holds at least amount
func BalanceSufficient(w *entities.Wallet, amount int64) bool {
	return w != nil && w.TotalTokens >= amount
}

// InsufficientBalance builds the error shown when w cannot cover amount
func InsufficientBalance(w *entities.Wallet, amount int64) *types.TheaterError {
	var have int64
	if w != nil {
		have = w.TotalTokens
	}
	return types.NewTheaterError(types.ErrInsufficientBalance,
		fmt.Sprintf("Insufficient tokens! You need %d more tokens.", amount-have))
}

// Verify checks that the balance equals the sum of the transaction log
// and that the wallet is well formed.
func Verify(w *entities.Wallet) error {
	if w == nil {
		return walletNotFound()
	}
	var sum int64
	for i, tx := range w.Transactions {
		if !tx.Type.Valid() {
			return fmt.Errorf("transaction %d (%s) has unknown type %q", i, tx.ID, tx.Type)
		}
		if tx.Amount <= 0 {
			return fmt.Errorf("transaction %d (%s) has non-positive amount %d", i, tx.ID, tx.Amount)
		}
		if i > 0 && tx.Timestamp.Before(w.Transactions[i-1].Timestamp) {
			return fmt.Errorf("transaction %d (%s) is out of order", i, tx.ID)
		}
		sum += tx.Signed()
	}
	if sum != w.TotalTokens {
		return fmt.Errorf("balance %d does not match transaction total %d", w.TotalTokens, sum)
	}
	if w.TotalTokens < 0 {
		return fmt.Errorf("balance is negative: %d", w.TotalTokens)
	}
	return nil
}

func walletNotFound() *types.TheaterError {
	return types.NewTheaterError(types.ErrWalletNotFound, "Please sign in to use tokens")
}
