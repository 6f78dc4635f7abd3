package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/fadedpez/quantumtheater/internal/config"
	"github.com/fadedpez/quantumtheater/internal/discord"
	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/services/redemption"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
)

// Bot exposes the token economy as Discord slash commands
type Bot struct {
	config     *config.Config
	session    discord.SessionHandler
	wallets    *wallet.Service
	store      *redemption.Service
	logger     *logging.Logger
	commands   []*discordgo.ApplicationCommand
	shutdownWg sync.WaitGroup
}

// New creates a new instance of Bot
func New(cfg *config.Config, session discord.SessionHandler, wallets *wallet.Service, store *redemption.Service, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.Default
	}
	b := &Bot{
		config:   cfg,
		session:  session,
		wallets:  wallets,
		store:    store,
		logger:   logger,
		commands: make([]*discordgo.ApplicationCommand, 0),
	}
	session.AddHandler(b.handleInteractionCreate)
	return b
}

// Start connects to Discord and registers the slash commands
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.logger.Info("[DISCORD] Bot started with %d commands", len(b.commands))
	return nil
}

// Shutdown gracefully shuts down the bot
func (b *Bot) Shutdown() {
	// Guild commands are recreated on every start in development
	if b.config.IsDevelopment() {
		b.cleanupCommands()
	}

	if err := b.session.Close(); err != nil {
		b.logger.Error("[DISCORD] Error closing session: %v", err)
	}

	b.shutdownWg.Wait()
}

func (b *Bot) registerCommands() error {
	for _, cmd := range Commands(b.store.Catalog()) {
		created, err := b.session.ApplicationCommandCreate(b.config.DiscordAppID, b.config.DiscordGuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create %s command: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
	}
	return nil
}

func (b *Bot) cleanupCommands() {
	for _, cmd := range b.commands {
		if err := b.session.ApplicationCommandDelete(b.config.DiscordAppID, b.config.DiscordGuildID, cmd.ID); err != nil {
			b.logger.Warn("[DISCORD] Cannot delete %s command: %v", cmd.Name, err)
		}
	}
	b.commands = b.commands[:0]
}

// handleInteractionCreate is registered with discordgo
func (b *Bot) handleInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.shutdownWg.Add(1)
	defer b.shutdownWg.Done()
	b.handleInteraction(context.Background(), b.session, i)
}
