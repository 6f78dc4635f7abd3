package accrual

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// PartyChecker reports whether a viewer is in an active viewing party
type PartyChecker interface {
	IsMember(ctx context.Context, userID string) (bool, error)
}

// Service tracks watch sessions and turns watch time into tokens
type Service struct {
	store   storage.Store
	wallets wallet.WalletService
	parties PartyChecker
	clock   clockwork.Clock
	logger  *logging.Logger
}

// NewService creates an accrual service. parties may be nil.
func NewService(store storage.Store, wallets wallet.WalletService, parties PartyChecker, clock clockwork.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:   store,
		wallets: wallets,
		parties: parties,
		clock:   clock,
		logger:  logger,
	}
}

// Session returns the viewer's current session, or nil
func (s *Service) Session(ctx context.Context, userID string) (*entities.WatchSession, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	session, err := storage.Load(ctx, s.store, sessionKey(userID), (*entities.WatchSession)(nil))
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load watch session", err)
	}
	return session, nil
}

// StartOrSwitch begins a session for title. A session for the same title
// is kept; a session for another title is settled and replaced.
func (s *Service) StartOrSwitch(ctx context.Context, userID, title string, isDocumentary bool) (*entities.WatchSession, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "video title is required")
	}

	current, err := s.Session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.VideoTitle != title {
		// Whole tokens earned on the old title are paid before it is replaced
		if _, err := s.Tick(ctx, userID); err != nil && !types.IsTheaterError(err, types.ErrWalletNotFound) {
			s.logger.Warn("[ACCRUAL] Settling session %s for user %s failed: %v", current.ID, userID, err)
		}
	}

	session, err := storage.Mutate(ctx, s.store, sessionKey(userID), (*entities.WatchSession)(nil),
		func(cur *entities.WatchSession) (*entities.WatchSession, error) {
			if cur != nil && cur.VideoTitle == title {
				return cur, storage.ErrUnchanged
			}
			return &entities.WatchSession{
				ID:            ledger.NewID(),
				VideoTitle:    title,
				StartTime:     s.clock.Now(),
				IsDocumentary: isDocumentary,
			}, nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not start watch session", err)
	}

	s.logger.Debug("[ACCRUAL] User %s watching %q (session %s)", userID, title, session.ID)
	return session, nil
}

// Tick credits any whole tokens earned since the last tick and returns
// how many were credited. The session's new total is claimed before the
// wallet is credited, so overlapping ticks cannot pay the same delta twice.
func (s *Service) Tick(ctx context.Context, userID string) (int64, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return 0, err
	}
	if _, err := s.wallets.GetWallet(ctx, userID); err != nil {
		return 0, err
	}

	inParty := false
	if s.parties != nil {
		member, err := s.parties.IsMember(ctx, userID)
		if err != nil {
			s.logger.Warn("[ACCRUAL] Party lookup for user %s failed, using base rate: %v", userID, err)
		}
		inParty = member
	}

	now := s.clock.Now()
	var delta int64
	var claimed entities.WatchSession
	_, err := storage.Mutate(ctx, s.store, sessionKey(userID), (*entities.WatchSession)(nil),
		func(cur *entities.WatchSession) (*entities.WatchSession, error) {
			delta = 0
			if cur == nil {
				return cur, storage.ErrUnchanged
			}
			d, next := Accrue(*cur, now, Rate(*cur, inParty))
			if d == 0 {
				return cur, storage.ErrUnchanged
			}
			delta, claimed = d, next
			return &next, nil
		})
	if err != nil {
		return 0, types.WrapError(types.ErrStorageError, "could not update watch session", err)
	}
	if delta == 0 {
		return 0, nil
	}

	if _, err := s.wallets.Credit(ctx, userID, delta, Reason(inParty), entities.TransactionTypeEarned, claimed.VideoTitle); err != nil {
		s.release(ctx, userID, claimed, delta)
		return 0, err
	}

	s.logger.Debug("[ACCRUAL] User %s earned %d for %q (session total %d)", userID, delta, claimed.VideoTitle, claimed.TokensEarned)
	return delta, nil
}

// release undoes a claim whose credit failed, if the session has not moved on
func (s *Service) release(ctx context.Context, userID string, claimed entities.WatchSession, delta int64) {
	_, err := storage.Mutate(ctx, s.store, sessionKey(userID), (*entities.WatchSession)(nil),
		func(cur *entities.WatchSession) (*entities.WatchSession, error) {
			if cur == nil || cur.ID != claimed.ID || cur.TokensEarned != claimed.TokensEarned {
				return cur, storage.ErrUnchanged
			}
			cur.TokensEarned -= delta
			return cur, nil
		})
	if err != nil {
		s.logger.Error("[ACCRUAL] Could not release %d unpaid tokens on session %s: %v", delta, claimed.ID, err)
	}
}

// EndSession settles and clears the viewer's session
func (s *Service) EndSession(ctx context.Context, userID string) (int64, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return 0, err
	}

	credited, err := s.Tick(ctx, userID)
	if err != nil && !types.IsTheaterError(err, types.ErrWalletNotFound) {
		return 0, err
	}

	if err := s.store.Delete(ctx, sessionKey(userID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return credited, types.WrapError(types.ErrStorageError, "could not end watch session", err)
	}
	return credited, nil
}

func sessionKey(userID string) string {
	return storage.UserKey(userID, storage.KeyWatchSession)
}
