package wallet

import (
	"context"
	"fmt"
	"sort"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// Service handles wallet business logic on top of the key-value store
type Service struct {
	store   storage.Store
	ledger  *ledger.Ledger
	auditor Auditor
	logger  *logging.Logger
}

// Option configures the service
type Option func(*Service)

// WithAuditor mirrors committed transactions to an audit index
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// NewService creates a new wallet service
func NewService(store storage.Store, l *ledger.Ledger, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default
	}
	s := &Service{
		store:  store,
		ledger: l,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger exposes the transforms used by this service
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// GetOrCreateWallet retrieves a wallet or creates an empty one on first sign-in
func (s *Service) GetOrCreateWallet(ctx context.Context, userID string) (*entities.Wallet, bool, error) {
	if err := RequireUser(userID); err != nil {
		return nil, false, err
	}

	created := false
	w, err := storage.Mutate(ctx, s.store, walletKey(userID), (*entities.Wallet)(nil),
		func(cur *entities.Wallet) (*entities.Wallet, error) {
			if cur != nil {
				created = false
				return cur, storage.ErrUnchanged
			}
			created = true
			return s.ledger.NewWallet(userID), nil
		})
	if err != nil {
		return nil, false, types.WrapError(types.ErrStorageError, "could not load wallet", err)
	}

	if created {
		s.logger.Info("[WALLET] Created wallet for user %s", userID)
		if err := s.index(ctx, userID); err != nil {
			s.logger.Warn("[WALLET] Could not index wallet for user %s: %v", userID, err)
		}
	}
	return w, created, nil
}

// GetWallet returns the wallet or WALLET_NOT_FOUND
func (s *Service) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	if err := RequireUser(userID); err != nil {
		return nil, err
	}

	w, err := storage.Load(ctx, s.store, walletKey(userID), (*entities.Wallet)(nil))
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load wallet", err)
	}
	if w == nil {
		return nil, types.NewTheaterError(types.ErrWalletNotFound, "Please sign in to use tokens")
	}
	return w, nil
}

// Apply submits fn as a single compare-and-set update of the user's
// wallet. A missing wallet fails with WALLET_NOT_FOUND before fn runs.
// Any error from fn leaves the stored wallet untouched.
func (s *Service) Apply(ctx context.Context, userID string, fn TransformFunc) (*entities.Wallet, error) {
	if err := RequireUser(userID); err != nil {
		return nil, err
	}

	var before int
	next, err := storage.Mutate(ctx, s.store, walletKey(userID), (*entities.Wallet)(nil),
		func(cur *entities.Wallet) (*entities.Wallet, error) {
			if cur == nil {
				return nil, types.NewTheaterError(types.ErrWalletNotFound, "Please sign in to use tokens")
			}
			before = len(cur.Transactions)
			out, err := fn(cur)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return nil, fmt.Errorf("wallet transform for %s returned nil", userID)
			}
			return out, nil
		})
	if err != nil {
		var theaterErr *types.TheaterError
		if types.As(err, &theaterErr) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrStorageError, "could not update wallet", err)
	}

	if len(next.Transactions) > before {
		s.audit(ctx, userID, next.Transactions[before:])
	}
	return next, nil
}

// Credit adds earned or bonus tokens
func (s *Service) Credit(ctx context.Context, userID string, amount int64, reason string, kind entities.TransactionType, videoTitle string) (*entities.Wallet, error) {
	w, err := s.Apply(ctx, userID, func(cur *entities.Wallet) (*entities.Wallet, error) {
		return s.ledger.Credit(cur, amount, reason, kind, videoTitle)
	})
	if err != nil {
		s.logger.Debug("[WALLET] Credit of %d for user %s rejected: %v", amount, userID, err)
		return nil, err
	}
	s.logger.Info("[WALLET] Credited %d (%s) to user %s, balance %d", amount, reason, userID, w.TotalTokens)
	return w, nil
}

// Debit spends tokens, failing with INSUFFICIENT_BALANCE when short
func (s *Service) Debit(ctx context.Context, userID string, amount int64, reason string) (*entities.Wallet, error) {
	w, err := s.Apply(ctx, userID, func(cur *entities.Wallet) (*entities.Wallet, error) {
		return s.ledger.Debit(cur, amount, reason)
	})
	if err != nil {
		s.logger.Debug("[WALLET] Debit of %d for user %s rejected: %v", amount, userID, err)
		return nil, err
	}
	s.logger.Info("[WALLET] Debited %d (%s) from user %s, balance %d", amount, reason, userID, w.TotalTokens)
	return w, nil
}

// GetBalance returns the current balance for a user
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.TotalTokens, nil
}

// GetRecentTransactions returns up to limit transactions, newest first
func (s *Service) GetRecentTransactions(ctx context.Context, userID string, limit int) ([]entities.TokenTransaction, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return w.Recent(limit), nil
}

// UserIDs lists every user who has a wallet
func (s *Service) UserIDs(ctx context.Context) ([]string, error) {
	idx, err := storage.Load(ctx, s.store, storage.KeyWalletIndex, map[string]bool{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) index(ctx context.Context, userID string) error {
	_, err := storage.Mutate(ctx, s.store, storage.KeyWalletIndex, map[string]bool{},
		func(idx map[string]bool) (map[string]bool, error) {
			if idx[userID] {
				return idx, storage.ErrUnchanged
			}
			idx[userID] = true
			return idx, nil
		})
	return err
}

func (s *Service) audit(ctx context.Context, userID string, txs []entities.TokenTransaction) {
	if s.auditor == nil {
		return
	}
	// The wallet is already committed; a failed audit is only logged
	if err := s.auditor.RecordTransactions(ctx, userID, txs); err != nil {
		s.logger.Warn("[WALLET] Audit of %d transaction(s) for user %s failed: %v", len(txs), userID, err)
	}
}

// RequireUser rejects anonymous callers before any storage access
func RequireUser(userID string) error {
	if userID == "" {
		return types.NewTheaterError(types.ErrNotAuthenticated, "Please sign in to earn and spend tokens")
	}
	return nil
}

func walletKey(userID string) string {
	return storage.UserKey(userID, storage.KeyWallet)
}
