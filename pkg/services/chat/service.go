package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/party"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const (
	// MaxMessageLength is the longest message accepted, in characters
	MaxMessageLength = 500
	// MaxHistory is how many messages a room keeps; older ones fall off
	MaxHistory = 200
	// DefaultLimit is how many messages History returns when asked for 0
	DefaultLimit = 50
)

// Parties is the part of the party service chat rooms are gated on
type Parties interface {
	Get(ctx context.Context, partyID string) (*entities.ViewingParty, error)
	Members(ctx context.Context, partyID string) ([]entities.PartyMember, error)
}

// Service keeps the community chat and one chat room per viewing party.
// Anyone may read the community room; party rooms are for members only.
type Service struct {
	store   storage.Store
	parties Parties
	clock   clockwork.Clock
	logger  *logging.Logger
}

// NewService creates a chat service
func NewService(store storage.Store, parties Parties, clock clockwork.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:   store,
		parties: parties,
		clock:   clock,
		logger:  logger,
	}
}

// Post appends text to the community room, or to partyID's room when
// partyID is set. Party rooms take messages only from members while the
// party is running.
func (s *Service) Post(ctx context.Context, author party.Viewer, partyID, text string) (*entities.ChatMessage, error) {
	if err := wallet.RequireUser(author.UserID); err != nil {
		return nil, types.NewTheaterError(types.ErrNotAuthenticated, "Please sign in to chat")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "Message cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, types.NewTheaterError(types.ErrInvalidArgument,
			fmt.Sprintf("Messages are limited to %d characters", MaxMessageLength))
	}

	if partyID != "" {
		p, err := s.requireMember(ctx, author.UserID, partyID)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, types.NewTheaterError(types.ErrPartyInactive, "This viewing party has ended")
		}
	}

	username := strings.TrimSpace(author.Username)
	if username == "" {
		username = author.UserID
	}
	msg := entities.ChatMessage{
		ID:        ledger.NewID(),
		UserID:    author.UserID,
		Username:  username,
		AvatarURL: author.AvatarURL,
		Message:   text,
		Timestamp: s.clock.Now(),
		PartyID:   partyID,
	}

	_, err := storage.Mutate(ctx, s.store, roomKey(partyID), []entities.ChatMessage{},
		func(log []entities.ChatMessage) ([]entities.ChatMessage, error) {
			log = append(log, msg)
			if len(log) > MaxHistory {
				log = log[len(log)-MaxHistory:]
			}
			return log, nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not send message", err)
	}

	s.logger.Debug("[CHAT] %s posted in %s", author.UserID, roomKey(partyID))
	return &msg, nil
}

// History returns up to limit of a room's most recent messages, oldest
// first. Reading a party room requires membership.
func (s *Service) History(ctx context.Context, userID, partyID string, limit int) (*entities.ChatRoom, error) {
	if partyID != "" {
		if err := wallet.RequireUser(userID); err != nil {
			return nil, err
		}
		if _, err := s.requireMember(ctx, userID, partyID); err != nil {
			return nil, err
		}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	log, err := storage.Load(ctx, s.store, roomKey(partyID), []entities.ChatMessage{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load messages", err)
	}
	if len(log) > limit {
		log = log[len(log)-limit:]
	}

	authors := make(map[string]bool, len(log))
	for _, m := range log {
		authors[m.UserID] = true
	}
	return &entities.ChatRoom{
		PartyID:      partyID,
		Messages:     log,
		Participants: len(authors),
	}, nil
}

func (s *Service) requireMember(ctx context.Context, userID, partyID string) (*entities.ViewingParty, error) {
	p, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	members, err := s.parties.Members(ctx, partyID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return p, nil
		}
	}
	return nil, types.NewTheaterError(types.ErrNotInParty, "Join the party to use its chat")
}

func roomKey(partyID string) string {
	if partyID == "" {
		return storage.KeyCommunityChat
	}
	return storage.PartyChatKey(partyID)
}
