package redemption

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// ReasonPrefix starts the reason of every store debit
const ReasonPrefix = "Store: "

// Service redeems tokens for catalog items
type Service struct {
	store   storage.Store
	wallets wallet.WalletService
	catalog *Catalog
	clock   clockwork.Clock
	logger  *logging.Logger
}

// NewService creates a redemption service
func NewService(store storage.Store, wallets wallet.WalletService, catalog *Catalog, clock clockwork.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:   store,
		wallets: wallets,
		catalog: catalog,
		clock:   clock,
		logger:  logger,
	}
}

// Catalog returns the items on sale
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Purchase buys itemID for the viewer. The purchase is recorded first and
// removed again if the debit fails, so an item is never paid for twice.
func (s *Service) Purchase(ctx context.Context, userID, itemID string) (*entities.Purchase, *entities.Wallet, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, nil, err
	}
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return nil, nil, types.NewTheaterError(types.ErrItemNotFound, fmt.Sprintf("No store item %q", itemID))
	}

	current, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ledger.BalanceSufficient(current, item.Cost) {
		return nil, nil, ledger.InsufficientBalance(current, item.Cost)
	}

	purchase := entities.Purchase{
		ItemID:      item.ID,
		Title:       item.Title,
		Type:        item.Type,
		Cost:        item.Cost,
		PurchasedAt: s.clock.Now(),
	}
	key := purchasesKey(userID)
	_, err = storage.Mutate(ctx, s.store, key, []entities.Purchase{},
		func(owned []entities.Purchase) ([]entities.Purchase, error) {
			if owns(owned, item.ID) {
				return nil, types.NewTheaterError(types.ErrAlreadyPurchased, fmt.Sprintf("You already own %s", item.Title))
			}
			return append(owned, purchase), nil
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrAlreadyPurchased) {
			return nil, nil, err
		}
		return nil, nil, types.WrapError(types.ErrStorageError, "could not record purchase", err)
	}

	w, err := s.wallets.Debit(ctx, userID, item.Cost, ReasonPrefix+item.Title)
	if err != nil {
		s.release(ctx, key, item.ID)
		return nil, nil, err
	}

	s.logger.Info("[STORE] User %s redeemed %s for %d tokens", userID, item.ID, item.Cost)
	return &purchase, w, nil
}

func (s *Service) release(ctx context.Context, key, itemID string) {
	_, err := storage.Mutate(ctx, s.store, key, []entities.Purchase{},
		func(owned []entities.Purchase) ([]entities.Purchase, error) {
			out := make([]entities.Purchase, 0, len(owned))
			for _, p := range owned {
				if p.ItemID != itemID {
					out = append(out, p)
				}
			}
			if len(out) == len(owned) {
				return owned, storage.ErrUnchanged
			}
			return out, nil
		})
	if err != nil {
		s.logger.Error("[STORE] Could not release purchase of %s after a failed debit: %v", itemID, err)
	}
}

// Library lists what the viewer owns, oldest first
func (s *Service) Library(ctx context.Context, userID string) ([]entities.Purchase, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	owned, err := storage.Load(ctx, s.store, purchasesKey(userID), []entities.Purchase{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load purchases", err)
	}
	return owned, nil
}

// Owns reports whether the viewer has bought itemID
func (s *Service) Owns(ctx context.Context, userID, itemID string) (bool, error) {
	owned, err := s.Library(ctx, userID)
	if err != nil {
		return false, err
	}
	return owns(owned, itemID), nil
}

func owns(owned []entities.Purchase, itemID string) bool {
	for _, p := range owned {
		if p.ItemID == itemID {
			return true
		}
	}
	return false
}

func purchasesKey(userID string) string {
	return storage.UserKey(userID, storage.KeyStorePurchases)
}
