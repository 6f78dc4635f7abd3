package advertising

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/oracle"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const (
	maxTitleLength       = 80
	maxDescriptionLength = 500
)

// PendingTimeout is how long an unpaid ad may wait before it is reconciled
const PendingTimeout = time.Minute

const copyPrompt = `Generate a compelling advertisement description for: %q. Make it engaging, professional, and concise (2-3 sentences). Focus on benefits and call-to-action. Return only the description text, no JSON.`

// Service sells advertisement slots for tokens
type Service struct {
	store   storage.Store
	wallets wallet.WalletService
	ledger  *ledger.Ledger
	oracle  oracle.Oracle
	cost    int64
	clock   clockwork.Clock
	logger  *logging.Logger
}

// NewService creates an advertising service charging ledger.AdCost per ad
func NewService(store storage.Store, wallets wallet.WalletService, l *ledger.Ledger, o oracle.Oracle, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:   store,
		wallets: wallets,
		ledger:  l,
		oracle:  o,
		cost:    ledger.AdCost,
		clock:   l.Clock(),
		logger:  logger,
	}
}

// Cost is the price of one advertisement
func (s *Service) Cost() int64 {
	return s.cost
}

// Create charges the viewer and publishes the ad. The ad is stored as
// pending, then charged, then marked paid with the debit's ID. Pending ads
// are never listed; a failed charge withdraws the ad again.
func (s *Service) Create(ctx context.Context, userID string, draft entities.AdDraft) (*entities.Advertisement, *entities.Wallet, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, nil, err
	}
	draft, err := normalize(draft)
	if err != nil {
		return nil, nil, err
	}

	ad := &entities.Advertisement{
		ID:          ledger.NewID(),
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		TargetURL:   draft.TargetURL,
		CreatedAt:   s.clock.Now(),
		TokensSpent: s.cost,
	}

	// Cheap early rejection; the transform below re-checks against the stored wallet
	current, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ledger.BalanceSufficient(current, s.cost) {
		return nil, nil, ledger.InsufficientBalance(current, s.cost)
	}

	if _, err := storage.Mutate(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{},
		func(ads []entities.Advertisement) ([]entities.Advertisement, error) {
			return append(ads, *ad), nil
		}); err != nil {
		return nil, nil, types.WrapError(types.ErrStorageError, "could not save advertisement", err)
	}

	w, err := s.wallets.Apply(ctx, userID, func(cur *entities.Wallet) (*entities.Wallet, error) {
		return PurchaseAd(s.ledger, cur, s.cost, ad.Title)
	})
	if err != nil {
		s.withdraw(ctx, ad.ID)
		return nil, nil, err
	}

	ad.PaymentID = w.Transactions[len(w.Transactions)-1].ID
	if err := s.markPaid(ctx, map[string]string{ad.ID: ad.PaymentID}); err != nil {
		// The charge stands; ReconcilePending publishes the ad later
		s.logger.Error("[ADS] Ad %s was paid but could not be published: %v", ad.ID, err)
	}

	s.logger.Info("[ADS] User %s bought ad %q for %d tokens", userID, ad.Title, s.cost)
	return ad, w, nil
}

// ReconcilePending settles ads left pending for longer than PendingTimeout,
// which only happens when a purchase was interrupted. An ad whose owner was
// charged for it is published; any other is withdrawn.
func (s *Service) ReconcilePending(ctx context.Context, now time.Time) (published, withdrawn int, err error) {
	ads, err := storage.Load(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{})
	if err != nil {
		return 0, 0, types.WrapError(types.ErrStorageError, "could not load advertisements", err)
	}

	claimed := make(map[string]bool)
	for _, a := range ads {
		if a.Paid() {
			claimed[a.PaymentID] = true
		}
	}

	payments := make(map[string]string)
	var unpaid []string
	for _, a := range ads {
		if a.Paid() || now.Sub(a.CreatedAt) < PendingTimeout {
			continue
		}
		w, err := s.wallets.GetWallet(ctx, a.UserID)
		if err != nil && !types.IsTheaterError(err, types.ErrWalletNotFound) {
			return 0, 0, err
		}
		if id := findPayment(w, a, claimed); id != "" {
			claimed[id] = true
			payments[a.ID] = id
		} else {
			unpaid = append(unpaid, a.ID)
		}
	}

	if len(payments) > 0 {
		if err := s.markPaid(ctx, payments); err != nil {
			return 0, 0, err
		}
	}
	for _, id := range unpaid {
		s.withdraw(ctx, id)
	}
	if len(payments)+len(unpaid) > 0 {
		s.logger.Info("[ADS] Reconciled pending ads: %d published, %d withdrawn", len(payments), len(unpaid))
	}
	return len(payments), len(unpaid), nil
}

// findPayment returns the ID of an unclaimed debit in w that paid for ad
func findPayment(w *entities.Wallet, ad entities.Advertisement, claimed map[string]bool) string {
	if w == nil {
		return ""
	}
	for _, tx := range w.Transactions {
		if tx.Type == entities.TransactionTypeSpent &&
			tx.Reason == ReasonPrefix+ad.Title &&
			tx.Amount == ad.TokensSpent &&
			!tx.Timestamp.Before(ad.CreatedAt) &&
			!claimed[tx.ID] {
			return tx.ID
		}
	}
	return ""
}

func (s *Service) markPaid(ctx context.Context, payments map[string]string) error {
	_, err := storage.Mutate(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{},
		func(ads []entities.Advertisement) ([]entities.Advertisement, error) {
			changed := false
			for i := range ads {
				if id, ok := payments[ads[i].ID]; ok && !ads[i].Paid() {
					ads[i].PaymentID = id
					changed = true
				}
			}
			if !changed {
				return ads, storage.ErrUnchanged
			}
			return ads, nil
		})
	if err != nil {
		return types.WrapError(types.ErrStorageError, "could not publish advertisement", err)
	}
	return nil
}

func (s *Service) withdraw(ctx context.Context, adID string) {
	_, err := storage.Mutate(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{},
		func(ads []entities.Advertisement) ([]entities.Advertisement, error) {
			out := make([]entities.Advertisement, 0, len(ads))
			for _, a := range ads {
				if a.ID != adID || a.Paid() {
					out = append(out, a)
				}
			}
			if len(out) == len(ads) {
				return ads, storage.ErrUnchanged
			}
			return out, nil
		})
	if err != nil {
		s.logger.Error("[ADS] Could not withdraw unpaid ad %s: %v", adID, err)
	}
}

// List returns up to limit paid ads, newest first. A limit of 0 returns all.
func (s *Service) List(ctx context.Context, limit int) ([]entities.Advertisement, error) {
	ads, err := storage.Load(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load advertisements", err)
	}
	out := make([]entities.Advertisement, 0, len(ads))
	for i := len(ads) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if ads[i].Paid() {
			out = append(out, ads[i])
		}
	}
	return out, nil
}

// RecordImpression counts one display of an ad
func (s *Service) RecordImpression(ctx context.Context, adID string) error {
	_, err := storage.Mutate(ctx, s.store, storage.KeyAdvertisements, []entities.Advertisement{},
		func(ads []entities.Advertisement) ([]entities.Advertisement, error) {
			for i := range ads {
				if ads[i].ID == adID && ads[i].Paid() {
					ads[i].Impressions++
					return ads, nil
				}
			}
			return nil, types.NewTheaterError(types.ErrNotFound, fmt.Sprintf("advertisement %s not found", adID))
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrNotFound) {
			return err
		}
		return types.WrapError(types.ErrStorageError, "could not record impression", err)
	}
	return nil
}

// GenerateCopy asks the oracle for ad copy. When the oracle is unavailable
// or returns nothing a stock description is used instead.
func (s *Service) GenerateCopy(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", types.NewTheaterError(types.ErrInvalidArgument, "Please enter a title first")
	}

	if s.oracle != nil {
		reply, err := s.oracle.Complete(ctx, fmt.Sprintf(copyPrompt, title))
		reply = strings.Trim(strings.TrimSpace(reply), `"`)
		if err == nil && reply != "" {
			return truncate(reply, maxDescriptionLength), nil
		}
		s.logger.Warn("[ADS] Oracle copy for %q unusable, using fallback: %v", title, err)
	}
	return fmt.Sprintf("Discover %s. Built for the Quantum Theater audience and ready when you are. Check it out today!", title), nil
}

func normalize(d entities.AdDraft) (entities.AdDraft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.TargetURL = strings.TrimSpace(d.TargetURL)

	if d.Title == "" || d.Description == "" {
		return d, types.NewTheaterError(types.ErrInvalidArgument, "Please fill in title and description")
	}
	if len(d.Title) > maxTitleLength {
		return d, types.NewTheaterError(types.ErrInvalidArgument, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if len(d.Description) > maxDescriptionLength {
		return d, types.NewTheaterError(types.ErrInvalidArgument, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if d.TargetURL != "" {
		u, err := url.Parse(d.TargetURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return d, types.NewTheaterError(types.ErrInvalidArgument, "target URL must be an http(s) link")
		}
	}
	return d, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
