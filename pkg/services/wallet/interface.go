package wallet

import (
	"context"

	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// TransformFunc turns the current wallet into the next one. It must be
// pure; the store may call it again after a concurrent write.
type TransformFunc func(*entities.Wallet) (*entities.Wallet, error)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wallet_service
type WalletService interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*entities.Wallet, bool, error)
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)
	Apply(ctx context.Context, userID string, fn TransformFunc) (*entities.Wallet, error)
	Credit(ctx context.Context, userID string, amount int64, reason string, kind entities.TransactionType, videoTitle string) (*entities.Wallet, error)
	Debit(ctx context.Context, userID string, amount int64, reason string) (*entities.Wallet, error)
}

// Auditor receives every transaction after it has been committed
type Auditor interface {
	RecordTransactions(ctx context.Context, userID string, txs []entities.TokenTransaction) error
}
