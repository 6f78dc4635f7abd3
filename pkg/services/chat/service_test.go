package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/services/party"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

var (
	host  = party.Viewer{UserID: "host", Username: "Host", AvatarURL: "https://example.com/h.png"}
	guest = party.Viewer{UserID: "guest"}
)

type ChatTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clockwork.FakeClock
	parties *party.Service
	service *Service
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, new(ChatTestSuite))
}

func (s *ChatTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 5, 2, 21, 0, 0, 0, time.UTC))
	store := memory.New()
	s.parties = party.NewService(store, s.clock, logging.Discard())
	s.service = NewService(store, s.parties, s.clock, logging.Discard())
}

func (s *ChatTestSuite) party() *entities.ViewingParty {
	p, err := s.parties.Create(s.ctx, host, "Movie Night", "https://v.example.com/wargames", "WarGames")
	s.Require().NoError(err)
	return p
}

func (s *ChatTestSuite) TestCommunityRoom() {
	msg, err := s.service.Post(s.ctx, host, "", "  Anyone watching Hackers tonight?  ")
	s.Require().NoError(err)
	s.Equal("Anyone watching Hackers tonight?", msg.Message)
	s.Equal("Host", msg.Username)
	s.Equal(s.clock.Now(), msg.Timestamp)
	s.Empty(msg.PartyID)

	s.clock.Advance(time.Second)
	reply, err := s.service.Post(s.ctx, guest, "", "me")
	s.Require().NoError(err)
	s.Equal("guest", reply.Username, "Falls back to the login")

	room, err := s.service.History(s.ctx, "", "", 0)
	s.Require().NoError(err)
	s.Require().Len(room.Messages, 2)
	s.Equal(msg.ID, room.Messages[0].ID)
	s.Equal(reply.ID, room.Messages[1].ID)
	s.Equal(2, room.Participants)
}

func (s *ChatTestSuite) TestPostValidation() {
	testCases := []struct {
		name   string
		author party.Viewer
		text   string
		code   types.ErrorCode
	}{
		{"Anonymous", party.Viewer{}, "hi", types.ErrNotAuthenticated},
		{"Blank", host, "   ", types.ErrInvalidArgument},
		{"Too long", host, strings.Repeat("é", MaxMessageLength+1), types.ErrInvalidArgument},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.Post(s.ctx, tc.author, "", tc.text)
			s.True(types.IsTheaterError(err, tc.code), "got %v", err)
		})
	}

	_, err := s.service.Post(s.ctx, host, "", strings.Repeat("é", MaxMessageLength))
	s.NoError(err)
}

func (s *ChatTestSuite) TestPartyRoomIsMembersOnly() {
	p := s.party()

	_, err := s.service.Post(s.ctx, guest, p.ID, "let me in")
	s.True(types.IsTheaterError(err, types.ErrNotInParty))
	_, err = s.service.History(s.ctx, "guest", p.ID, 0)
	s.True(types.IsTheaterError(err, types.ErrNotInParty))
	_, err = s.service.History(s.ctx, "", p.ID, 0)
	s.True(types.IsTheaterError(err, types.ErrNotAuthenticated))

	_, err = s.parties.Join(s.ctx, guest, p.ID)
	s.Require().NoError(err)
	msg, err := s.service.Post(s.ctx, guest, p.ID, "popcorn ready")
	s.Require().NoError(err)
	s.Equal(p.ID, msg.PartyID)

	room, err := s.service.History(s.ctx, "host", p.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(room.Messages, 1)
	s.Equal(p.ID, room.PartyID)

	community, err := s.service.History(s.ctx, "", "", 0)
	s.Require().NoError(err)
	s.Empty(community.Messages, "Party messages stay in the party room")

	_, err = s.service.Post(s.ctx, host, "missing", "hello?")
	s.True(types.IsTheaterError(err, types.ErrPartyNotFound))
}

func (s *ChatTestSuite) TestEndedPartyIsReadOnly() {
	p := s.party()
	_, err := s.service.Post(s.ctx, host, p.ID, "starting now")
	s.Require().NoError(err)

	s.clock.Advance(party.StaleAfter + time.Second)
	_, err = s.parties.ExpireStale(s.ctx, s.clock.Now())
	s.Require().NoError(err)

	_, err = s.service.Post(s.ctx, host, p.ID, "still here?")
	s.True(types.IsTheaterError(err, types.ErrPartyInactive))

	room, err := s.service.History(s.ctx, "host", p.ID, 0)
	s.Require().NoError(err)
	s.Len(room.Messages, 1)
}

func (s *ChatTestSuite) TestHistoryIsBounded() {
	for i := 0; i < MaxHistory+5; i++ {
		_, err := s.service.Post(s.ctx, host, "", fmt.Sprintf("message %d", i))
		s.Require().NoError(err)
	}

	room, err := s.service.History(s.ctx, "", "", MaxHistory+10)
	s.Require().NoError(err)
	s.Require().Len(room.Messages, MaxHistory)
	s.Equal("message 5", room.Messages[0].Message)

	recent, err := s.service.History(s.ctx, "", "", 3)
	s.Require().NoError(err)
	s.Require().Len(recent.Messages, 3)
	s.Equal(fmt.Sprintf("message %d", MaxHistory+4), recent.Messages[2].Message)
	s.Equal(1, recent.Participants)
}
