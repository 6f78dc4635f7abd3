package entities

import (
	"fmt"
	"time"
)

// Wallet is a viewer's token balance together with its full transaction history
type Wallet struct {
	UserID        string             `json:"userId"`
	TotalTokens   int64              `json:"totalTokens"`
	Transactions  []TokenTransaction `json:"transactions"`
	QuizzesPassed int                `json:"quizzesPassed"`
	AdsCreated    int                `json:"adsCreated"`
	LastActivity  time.Time          `json:"lastActivity"`
}

// Clone returns a copy that shares nothing mutable with w
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	cp := *w
	cp.Transactions = make([]TokenTransaction, len(w.Transactions))
	copy(cp.Transactions, w.Transactions)
	return &cp
}

// Recent returns up to limit transactions, newest first
func (w *Wallet) Recent(limit int) []TokenTransaction {
	if w == nil {
		return nil
	}
	n := len(w.Transactions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]TokenTransaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, w.Transactions[i])
	}
	return out
}

// TransactionType represents the type of wallet transaction
type TransactionType string

const (
	TransactionTypeEarned TransactionType = "earned"
	TransactionTypeSpent  TransactionType = "spent"
	TransactionTypeBonus  TransactionType = "bonus"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeEarned, TransactionTypeSpent, TransactionTypeBonus:
		return true
	default:
		return false
	}
}

// Sign is +1 for types that add to the balance and -1 for types that subtract
func (t TransactionType) Sign() int64 {
	switch t {
	case TransactionTypeEarned, TransactionTypeBonus:
		return 1
	case TransactionTypeSpent:
		return -1
	default:
		panic(fmt.Sprintf("unknown transaction type %q", string(t)))
	}
}

// TokenTransaction is an immutable entry in a wallet's history
type TokenTransaction struct {
	ID         string          `json:"id"`
	Type       TransactionType `json:"type"`
	Amount     int64           `json:"amount"` // Always positive, sign comes from Type
	Reason     string          `json:"reason"`
	Timestamp  time.Time       `json:"timestamp"`
	VideoTitle string          `json:"videoTitle,omitempty"`
}

// Signed returns the amount with the sign implied by its type
func (t TokenTransaction) Signed() int64 {
	return t.Type.Sign() * t.Amount
}
