package party

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

var (
	host  = Viewer{UserID: "host", Username: "Host", AvatarURL: "https://example.com/h.png"}
	guest = Viewer{UserID: "guest"}
)

type PartyTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clockwork.FakeClock
	service *Service
}

func TestPartySuite(t *testing.T) {
	suite.Run(t, new(PartyTestSuite))
}

func (s *PartyTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC))
	s.service = NewService(memory.New(), s.clock, logging.Discard())
}

func (s *PartyTestSuite) create() *entities.ViewingParty {
	party, err := s.service.Create(s.ctx, host, "Friday Night Hackers", "https://v.example.com/hackers", "Hackers")
	s.Require().NoError(err)
	return party
}

func (s *PartyTestSuite) TestInviteCode() {
	s.Regexp(regexp.MustCompile(`^friday-night-hackers-[0-9a-f]{6}$`), InviteCode("Friday Night Hackers!"))
	s.Regexp(regexp.MustCompile(`^party-[0-9a-f]{6}$`), InviteCode("!!!"))
}

func (s *PartyTestSuite) TestCreate() {
	party := s.create()
	s.True(party.IsActive)
	s.Equal(1, party.MemberCount)
	s.Equal("Host", party.HostName)

	members, err := s.service.Members(s.ctx, party.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal("host", members[0].UserID)

	found, err := s.service.FindByInvite(s.ctx, party.InviteCode)
	s.Require().NoError(err)
	s.Equal(party.ID, found.ID)

	_, err = s.service.Create(s.ctx, host, "  ", "", "")
	s.True(types.IsTheaterError(err, types.ErrInvalidArgument))
	_, err = s.service.Create(s.ctx, Viewer{}, "Party", "", "")
	s.True(types.IsTheaterError(err, types.ErrNotAuthenticated))
}

func (s *PartyTestSuite) TestJoinAndLeave() {
	party := s.create()

	joined, err := s.service.Join(s.ctx, guest, party.ID)
	s.Require().NoError(err)
	s.Equal(2, joined.MemberCount)

	isMember, err := s.service.IsMember(s.ctx, "guest")
	s.Require().NoError(err)
	s.True(isMember)

	_, err = s.service.Join(s.ctx, guest, party.ID)
	s.True(types.IsTheaterError(err, types.ErrAlreadyJoined))

	s.Require().NoError(s.service.Leave(s.ctx, "guest"))
	isMember, err = s.service.IsMember(s.ctx, "guest")
	s.Require().NoError(err)
	s.False(isMember)

	got, err := s.service.Get(s.ctx, party.ID)
	s.Require().NoError(err)
	s.Equal(1, got.MemberCount)

	err = s.service.Leave(s.ctx, "guest")
	s.True(types.IsTheaterError(err, types.ErrNotInParty))

	s.Require().NoError(s.service.Leave(s.ctx, "host"))
	got, err = s.service.Get(s.ctx, party.ID)
	s.Require().NoError(err)
	s.Equal(0, got.MemberCount)
}

func (s *PartyTestSuite) TestJoinSwitchesParty() {
	first := s.create()
	second, err := s.service.Create(s.ctx, Viewer{UserID: "other"}, "Docs Club", "", "Pirates of Silicon Valley")
	s.Require().NoError(err)

	_, err = s.service.Join(s.ctx, guest, first.ID)
	s.Require().NoError(err)
	_, err = s.service.Join(s.ctx, guest, second.ID)
	s.Require().NoError(err)

	current, err := s.service.CurrentParty(s.ctx, "guest")
	s.Require().NoError(err)
	s.Equal(second.ID, current.ID)

	got, err := s.service.Get(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(1, got.MemberCount)
}

func (s *PartyTestSuite) TestJoinErrors() {
	_, err := s.service.Join(s.ctx, guest, "missing")
	s.True(types.IsTheaterError(err, types.ErrPartyNotFound))

	party := s.create()
	s.clock.Advance(StaleAfter + time.Second)
	_, err = s.service.ExpireStale(s.ctx, s.clock.Now())
	s.Require().NoError(err)

	_, err = s.service.Join(s.ctx, guest, party.ID)
	s.True(types.IsTheaterError(err, types.ErrPartyInactive))
}

func (s *PartyTestSuite) TestPlayback() {
	party := s.create()
	_, err := s.service.Join(s.ctx, guest, party.ID)
	s.Require().NoError(err)

	state, err := s.service.Playback(s.ctx, party.ID)
	s.Require().NoError(err)
	s.Nil(state)

	_, err = s.service.PublishPlayback(s.ctx, party.ID, "guest", entities.PlaybackState{CurrentTime: 5})
	s.True(types.IsTheaterError(err, types.ErrNotPartyHost))

	s.clock.Advance(30 * time.Second)
	published, err := s.service.PublishPlayback(s.ctx, party.ID, "host", entities.PlaybackState{CurrentTime: 42.5, IsPlaying: true})
	s.Require().NoError(err)
	s.Equal("Hackers", published.VideoTitle)

	state, err = s.service.Playback(s.ctx, party.ID)
	s.Require().NoError(err)
	s.Equal(42.5, state.CurrentTime)
	s.True(state.IsPlaying)
	s.True(state.Timestamp.Equal(s.clock.Now()))

	got, err := s.service.Get(s.ctx, party.ID)
	s.Require().NoError(err)
	s.True(got.LastSync.Equal(s.clock.Now()))
	s.True(got.IsPlaying)
}

func (s *PartyTestSuite) TestExpireStale() {
	party := s.create()

	s.clock.Advance(StaleAfter)
	expired, err := s.service.ExpireStale(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Zero(expired, "Exactly five minutes is not stale yet")

	// A sync keeps the party alive
	_, err = s.service.PublishPlayback(s.ctx, party.ID, "host", entities.PlaybackState{CurrentTime: 1})
	s.Require().NoError(err)
	s.clock.Advance(StaleAfter)
	expired, err = s.service.ExpireStale(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Zero(expired)

	s.clock.Advance(time.Second)
	expired, err = s.service.ExpireStale(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Equal(1, expired)

	active, err := s.service.Active(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)

	isMember, err := s.service.IsMember(s.ctx, "host")
	s.Require().NoError(err)
	s.False(isMember, "Members of an ended party earn no party bonus")
}
