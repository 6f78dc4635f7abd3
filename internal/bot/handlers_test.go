package bot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/config"
	discordmock "github.com/fadedpez/quantumtheater/internal/discord/mock"
	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/redemption"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

type HandlersTestSuite struct {
	suite.Suite
	ctx     context.Context
	session *discordmock.SessionHandler
	wallets *wallet.Service
	bot     *Bot
	sent    *discordgo.InteractionResponse
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	s.ctx = context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	store := memory.New()
	s.wallets = wallet.NewService(store, ledger.New(clock), logging.Discard())
	catalog, err := redemption.DefaultCatalog()
	s.Require().NoError(err)

	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
	s.session.On("AddHandler", mock.Anything).Return(func() {})
	s.session.On("InteractionRespond", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { s.sent = args.Get(1).(*discordgo.InteractionResponse) }).
		Return(nil).Maybe()

	s.bot = New(&config.Config{Environment: "production"}, s.session,
		s.wallets, redemption.NewService(store, s.wallets, catalog, clock, logging.Discard()), logging.Discard())
	s.sent = nil
}

func command(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:   discordgo.InteractionApplicationCommand,
			Member: &discordgo.Member{User: &discordgo.User{ID: "42"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func (s *HandlersTestSuite) fund(amount int64) {
	_, _, err := s.wallets.GetOrCreateWallet(s.ctx, "discord-42")
	s.Require().NoError(err)
	_, err = s.wallets.Credit(s.ctx, "discord-42", amount, ledger.ReasonQuizPassed, entities.TransactionTypeBonus, "Hackers")
	s.Require().NoError(err)
}

func (s *HandlersTestSuite) TestUserID() {
	s.Equal("discord-42", UserID(command("tokens")))

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "7"}}}
	s.Equal("discord-7", UserID(dm))

	s.Empty(UserID(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}))
}

func (s *HandlersTestSuite) TestTokensCreatesWallet() {
	s.bot.handleInteraction(s.ctx, s.session, command("tokens"))

	s.Require().NotNil(s.sent)
	s.Equal("🪙 You have **0** tokens.", s.sent.Data.Content)
	s.Equal(discordgo.MessageFlagsEphemeral, s.sent.Data.Flags)

	_, err := s.wallets.GetWallet(s.ctx, "discord-42")
	s.NoError(err)
}

func (s *HandlersTestSuite) TestTokensShowsRecentActivity() {
	s.fund(10)

	s.bot.handleInteraction(s.ctx, s.session, command("tokens"))

	s.Require().NotNil(s.sent)
	s.Contains(s.sent.Data.Content, "**10** tokens")
	s.Contains(s.sent.Data.Content, "`+10` Quiz passed")
}

func (s *HandlersTestSuite) TestCatalog() {
	s.bot.handleInteraction(s.ctx, s.session, command("catalog", stringOption("type", "badge")))

	s.Require().NotNil(s.sent)
	s.Require().Len(s.sent.Data.Embeds, 1)
	s.Len(s.sent.Data.Embeds[0].Fields, 3)
}

func (s *HandlersTestSuite) TestRedeem() {
	s.fund(120)

	s.bot.handleInteraction(s.ctx, s.session, command("redeem", stringOption("item", "retro-computing-pack")))

	s.Require().NotNil(s.sent)
	s.Equal("✅ Redeemed **Retro Computing Collection** for 100 tokens. You have 20 left.", s.sent.Data.Content)
}

func (s *HandlersTestSuite) TestRedeemInsufficient() {
	s.fund(40)

	s.bot.handleInteraction(s.ctx, s.session, command("redeem", stringOption("item", "retro-computing-pack")))

	s.Require().NotNil(s.sent)
	s.Equal("🪙 Insufficient tokens! You need 60 more tokens.", s.sent.Data.Content)
}

func (s *HandlersTestSuite) TestUnknownCommandIsIgnored() {
	s.bot.handleInteraction(s.ctx, s.session, command("rewind"))
	s.Nil(s.sent)
}
