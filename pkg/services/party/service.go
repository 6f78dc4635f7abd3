package party

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const (
	// StaleAfter is how long a party survives without a sync
	StaleAfter = 5 * time.Minute
	// SweepInterval is how often stale parties are expired
	SweepInterval = time.Minute

	inviteSuffixLength = 6
	maxNameLength      = 60
)

// Viewer identifies someone joining or hosting a party
type Viewer struct {
	UserID    string
	Username  string
	AvatarURL string
}

type membership map[string][]entities.PartyMember

// Service runs viewing parties and their shared playback state
type Service struct {
	store  storage.Store
	clock  clockwork.Clock
	logger *logging.Logger
}

// NewService creates a party service
func NewService(store storage.Store, clock clockwork.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Create opens a party hosted by host, who becomes its first member.
// A host already in another party leaves it first.
func (s *Service) Create(ctx context.Context, host Viewer, name, videoURL, videoTitle string) (*entities.ViewingParty, error) {
	if err := wallet.RequireUser(host.UserID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "Please enter a party name")
	}
	if len(name) > maxNameLength {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, fmt.Sprintf("party name must be at most %d characters", maxNameLength))
	}
	if err := s.leaveAny(ctx, host.UserID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	party := entities.ViewingParty{
		ID:          ledger.NewID(),
		Name:        name,
		InviteCode:  InviteCode(name),
		HostID:      host.UserID,
		HostName:    displayName(host),
		VideoURL:    videoURL,
		VideoTitle:  videoTitle,
		CreatedAt:   now,
		IsActive:    true,
		MemberCount: 1,
		LastSync:    now,
	}

	_, err := storage.Mutate(ctx, s.store, storage.KeyPartyMembers, membership{},
		func(m membership) (membership, error) {
			m[party.ID] = []entities.PartyMember{s.member(party.ID, host, now)}
			return m, nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not save party members", err)
	}
	_, err = storage.Mutate(ctx, s.store, storage.KeyParties, []entities.ViewingParty{},
		func(parties []entities.ViewingParty) ([]entities.ViewingParty, error) {
			return append(parties, party), nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not save party", err)
	}

	s.logger.Info("[PARTY] %s created party %q (%s)", host.UserID, party.Name, party.InviteCode)
	return &party, nil
}

// Join adds viewer to an active party, leaving any other party first
func (s *Service) Join(ctx context.Context, viewer Viewer, partyID string) (*entities.ViewingParty, error) {
	if err := wallet.RequireUser(viewer.UserID); err != nil {
		return nil, err
	}
	party, err := s.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsActive {
		return nil, types.NewTheaterError(types.ErrPartyInactive, fmt.Sprintf("%s has ended", party.Name))
	}

	current, err := s.CurrentParty(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if current.ID == partyID {
			return nil, types.NewTheaterError(types.ErrAlreadyJoined, "You are already in this party")
		}
		if err := s.leave(ctx, current.ID, viewer.UserID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	var count int
	_, err = storage.Mutate(ctx, s.store, storage.KeyPartyMembers, membership{},
		func(m membership) (membership, error) {
			for _, member := range m[partyID] {
				if member.UserID == viewer.UserID {
					return nil, types.NewTheaterError(types.ErrAlreadyJoined, "You are already in this party")
				}
			}
			m[partyID] = append(m[partyID], s.member(partyID, viewer, now))
			count = len(m[partyID])
			return m, nil
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrAlreadyJoined) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrStorageError, "could not join party", err)
	}

	joined, err := s.updateParty(ctx, partyID, func(p *entities.ViewingParty) {
		p.MemberCount = count
		p.LastSync = now
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("[PARTY] %s joined %q", viewer.UserID, joined.Name)
	return joined, nil
}

// Leave removes the viewer from their current party
func (s *Service) Leave(ctx context.Context, userID string) error {
	if err := wallet.RequireUser(userID); err != nil {
		return err
	}
	current, err := s.CurrentParty(ctx, userID)
	if err != nil {
		return err
	}
	if current == nil {
		return types.NewTheaterError(types.ErrNotInParty, "You are not in a viewing party")
	}
	return s.leave(ctx, current.ID, userID)
}

func (s *Service) leaveAny(ctx context.Context, userID string) error {
	current, err := s.CurrentParty(ctx, userID)
	if err != nil || current == nil {
		return err
	}
	return s.leave(ctx, current.ID, userID)
}

func (s *Service) leave(ctx context.Context, partyID, userID string) error {
	var count int
	_, err := storage.Mutate(ctx, s.store, storage.KeyPartyMembers, membership{},
		func(m membership) (membership, error) {
			members := m[partyID]
			kept := make([]entities.PartyMember, 0, len(members))
			for _, member := range members {
				if member.UserID != userID {
					kept = append(kept, member)
				}
			}
			count = len(kept)
			if len(kept) == len(members) {
				return m, storage.ErrUnchanged
			}
			m[partyID] = kept
			return m, nil
		})
	if err != nil {
		return types.WrapError(types.ErrStorageError, "could not leave party", err)
	}

	_, err = s.updateParty(ctx, partyID, func(p *entities.ViewingParty) {
		p.MemberCount = max(0, count)
		p.LastSync = s.clock.Now()
	})
	if err != nil && !types.IsTheaterError(err, types.ErrPartyNotFound) {
		return err
	}
	s.logger.Info("[PARTY] %s left party %s", userID, partyID)
	return nil
}

// Get returns a party by id
func (s *Service) Get(ctx context.Context, partyID string) (*entities.ViewingParty, error) {
	parties, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range parties {
		if parties[i].ID == partyID {
			return &parties[i], nil
		}
	}
	return nil, types.NewTheaterError(types.ErrPartyNotFound, "Viewing party not found")
}

// FindByInvite returns the party with the given invite code
func (s *Service) FindByInvite(ctx context.Context, code string) (*entities.ViewingParty, error) {
	parties, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.ToLower(strings.TrimSpace(code))
	for i := range parties {
		if parties[i].InviteCode == code {
			return &parties[i], nil
		}
	}
	return nil, types.NewTheaterError(types.ErrPartyNotFound, "No party uses that invite code")
}

// Active lists parties still running
func (s *Service) Active(ctx context.Context) ([]entities.ViewingParty, error) {
	parties, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ViewingParty, 0, len(parties))
	for _, p := range parties {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// Members lists who is in a party, in join order
func (s *Service) Members(ctx context.Context, partyID string) ([]entities.PartyMember, error) {
	m, err := storage.Load(ctx, s.store, storage.KeyPartyMembers, membership{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load party members", err)
	}
	return m[partyID], nil
}

// CurrentParty returns the active party the viewer belongs to, or nil
func (s *Service) CurrentParty(ctx context.Context, userID string) (*entities.ViewingParty, error) {
	m, err := storage.Load(ctx, s.store, storage.KeyPartyMembers, membership{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load party members", err)
	}
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	for i := range active {
		for _, member := range m[active[i].ID] {
			if member.UserID == userID {
				return &active[i], nil
			}
		}
	}
	return nil, nil
}

// IsMember reports whether the viewer is in an active party
func (s *Service) IsMember(ctx context.Context, userID string) (bool, error) {
	p, err := s.CurrentParty(ctx, userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// PublishPlayback records the host's player position for members to follow
func (s *Service) PublishPlayback(ctx context.Context, partyID, hostID string, state entities.PlaybackState) (*entities.PlaybackState, error) {
	if err := wallet.RequireUser(hostID); err != nil {
		return nil, err
	}
	party, err := s.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.HostID != hostID {
		return nil, types.NewTheaterError(types.ErrNotPartyHost, "Only the host controls playback")
	}
	if !party.IsActive {
		return nil, types.NewTheaterError(types.ErrPartyInactive, fmt.Sprintf("%s has ended", party.Name))
	}
	if state.CurrentTime < 0 {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "currentTime cannot be negative")
	}

	now := s.clock.Now()
	state.PartyID = partyID
	state.Timestamp = now
	if state.VideoURL == "" {
		state.VideoURL = party.VideoURL
	}
	if state.VideoTitle == "" {
		state.VideoTitle = party.VideoTitle
	}

	if err := storage.Save(ctx, s.store, storage.PlaybackKey(partyID), state); err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not save playback", err)
	}
	_, err = s.updateParty(ctx, partyID, func(p *entities.ViewingParty) {
		p.CurrentTime = state.CurrentTime
		p.IsPlaying = state.IsPlaying
		p.VideoURL = state.VideoURL
		p.VideoTitle = state.VideoTitle
		p.LastSync = now
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Playback returns the last published playback state, or nil
func (s *Service) Playback(ctx context.Context, partyID string) (*entities.PlaybackState, error) {
	state, err := storage.Load(ctx, s.store, storage.PlaybackKey(partyID), (*entities.PlaybackState)(nil))
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load playback", err)
	}
	return state, nil
}

// ExpireStale ends parties that have not synced within StaleAfter of now
// and returns how many were ended.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	_, err := storage.Mutate(ctx, s.store, storage.KeyParties, []entities.ViewingParty{},
		func(parties []entities.ViewingParty) ([]entities.ViewingParty, error) {
			expired = 0
			for i := range parties {
				if parties[i].IsActive && now.Sub(parties[i].LastSync) > StaleAfter {
					parties[i].IsActive = false
					parties[i].IsPlaying = false
					expired++
				}
			}
			if expired == 0 {
				return parties, storage.ErrUnchanged
			}
			return parties, nil
		})
	if err != nil {
		return 0, types.WrapError(types.ErrStorageError, "could not expire parties", err)
	}
	if expired > 0 {
		s.logger.Info("[PARTY] Expired %d stale part(ies)", expired)
	}
	return expired, nil
}

func (s *Service) updateParty(ctx context.Context, partyID string, fn func(*entities.ViewingParty)) (*entities.ViewingParty, error) {
	var updated *entities.ViewingParty
	_, err := storage.Mutate(ctx, s.store, storage.KeyParties, []entities.ViewingParty{},
		func(parties []entities.ViewingParty) ([]entities.ViewingParty, error) {
			for i := range parties {
				if parties[i].ID == partyID {
					fn(&parties[i])
					p := parties[i]
					updated = &p
					return parties, nil
				}
			}
			return nil, types.NewTheaterError(types.ErrPartyNotFound, "Viewing party not found")
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrPartyNotFound) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrStorageError, "could not update party", err)
	}
	return updated, nil
}

func (s *Service) all(ctx context.Context) ([]entities.ViewingParty, error) {
	parties, err := storage.Load(ctx, s.store, storage.KeyParties, []entities.ViewingParty{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load parties", err)
	}
	return parties, nil
}

func (s *Service) member(partyID string, v Viewer, now time.Time) entities.PartyMember {
	return entities.PartyMember{
		PartyID:   partyID,
		UserID:    v.UserID,
		Username:  displayName(v),
		AvatarURL: v.AvatarURL,
		JoinedAt:  now,
	}
}

func displayName(v Viewer) string {
	if v.Username != "" {
		return v.Username
	}
	return v.UserID
}

// InviteCode derives a shareable code from the party name
func InviteCode(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "party"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteSuffixLength]
	return base + "-" + suffix
}
