package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	discordmock "github.com/fadedpez/quantumtheater/internal/discord/mock"
	"github.com/fadedpez/quantumtheater/internal/types"
)

type ResponseTestSuite struct {
	suite.Suite
	session *discordmock.SessionHandler
}

func TestResponseSuite(t *testing.T) {
	suite.Run(t, new(ResponseTestSuite))
}

func (s *ResponseTestSuite) SetupTest() {
	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
}

func (s *ResponseTestSuite) TestNewResponse() {
	embed := &discordgo.MessageEmbed{Title: "Catalog"}

	resp := NewResponse("test content", embed)

	s.Equal("test content", resp.Content)
	s.Equal([]*discordgo.MessageEmbed{embed}, resp.Embeds)
	s.False(resp.Ephemeral)
}

func (s *ResponseTestSuite) TestNewEphemeralResponse() {
	resp := NewEphemeralResponse("just for you")

	s.Equal("just for you", resp.Content)
	s.Empty(resp.Embeds)
	s.True(resp.Ephemeral)
}

func (s *ResponseTestSuite) TestNewErrorResponse() {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "plain error",
			err:      errors.New("test error"),
			expected: "❌ An error occurred: test error",
		},
		{
			name:     "theater error",
			err:      types.NewTheaterError(types.ErrInsufficientBalance, "Insufficient tokens! You need 5 more tokens."),
			expected: "🪙 Insufficient tokens! You need 5 more tokens.",
		},
		{
			name:     "wrapped theater error",
			err:      types.WrapError(types.ErrStorageError, "could not load wallet", errors.New("disk full")),
			expected: "💾 could not load wallet",
		},
		{
			name:     "code without emoji",
			err:      types.NewTheaterError(types.ErrPartyNotFound, "gone"),
			expected: "❌ gone",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp := NewErrorResponse(tc.err)

			s.Equal(tc.expected, resp.Content)
			s.True(resp.Ephemeral)
		})
	}
}

func (s *ResponseTestSuite) TestSendResponse() {
	interaction := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:   "test_interaction",
			Type: discordgo.InteractionApplicationCommand,
		},
	}

	var sent *discordgo.InteractionResponse
	s.session.On("InteractionRespond", interaction.Interaction, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*discordgo.InteractionResponse) }).
		Return(nil)

	s.Require().NoError(SendResponse(s.session, interaction, NewEphemeralResponse("hello")))

	s.session.AssertExpectations(s.T())
	s.Equal(discordgo.InteractionResponseChannelMessageWithSource, sent.Type)
	s.Equal("hello", sent.Data.Content)
	s.Equal(discordgo.MessageFlagsEphemeral, sent.Data.Flags)
}

func (s *ResponseTestSuite) TestSendErrorResponse() {
	interaction := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:   "test_interaction",
			Type: discordgo.InteractionApplicationCommand,
		},
	}

	s.session.On("InteractionRespond", interaction.Interaction, mock.Anything).Return(errors.New("unknown interaction"))

	err := SendErrorResponse(s.session, interaction, errors.New("test error"))

	s.Error(err)
	s.session.AssertExpectations(s.T())
}
