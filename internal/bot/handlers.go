package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/fadedpez/quantumtheater/internal/discord"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

const recentLimit = 5

// UserID maps a Discord account to its theater wallet owner
func UserID(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return "discord-" + i.Member.User.ID
	case i.User != nil:
		return "discord-" + i.User.ID
	default:
		return ""
	}
}

func (b *Bot) handleInteraction(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	var resp *discord.Response
	var err error
	switch name := i.ApplicationCommandData().Name; name {
	case "tokens":
		resp, err = b.handleTokens(ctx, i)
	case "catalog":
		resp, err = b.handleCatalog(ctx, i)
	case "redeem":
		resp, err = b.handleRedeem(ctx, i)
	default:
		b.logger.Warn("[DISCORD] Unknown command: %s", name)
		return
	}
	if err != nil {
		resp = discord.NewErrorResponse(err)
	}
	if err := discord.SendResponse(s, i, resp); err != nil {
		b.logger.Error("[DISCORD] Failed to respond to %s: %v", i.ApplicationCommandData().Name, err)
	}
}

func (b *Bot) handleTokens(ctx context.Context, i *discordgo.InteractionCreate) (*discord.Response, error) {
	w, _, err := b.wallets.GetOrCreateWallet(ctx, UserID(i))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🪙 You have **%d** tokens.", w.TotalTokens)
	recent := w.Recent(recentLimit)
	if len(recent) > 0 {
		sb.WriteString("\n\nRecent activity:")
		for _, tx := range recent {
			fmt.Fprintf(&sb, "\n`%+d` %s", tx.Signed(), tx.Reason)
		}
	}
	return discord.NewEphemeralResponse(sb.String()), nil
}

func (b *Bot) handleCatalog(ctx context.Context, i *discordgo.InteractionCreate) (*discord.Response, error) {
	var t entities.ItemType
	if opt := option(i, "type"); opt != nil {
		t = entities.ItemType(opt.StringValue())
	}
	items := b.store.Catalog().Items(t)
	if len(items) == 0 {
		return discord.NewEphemeralResponse("The store has nothing of that kind right now."), nil
	}

	embed := &discordgo.MessageEmbed{
		Title: "Quantum Theater Store",
		Color: 0x7b2ff7,
	}
	for _, item := range items {
		name := fmt.Sprintf("%s (%d tokens)", item.Title, item.Cost)
		if item.Featured {
			name = "⭐ " + name
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  name,
			Value: fmt.Sprintf("%s\n`/redeem item:%s`", item.Description, item.ID),
		})
	}
	return discord.NewEphemeralResponse("", embed), nil
}

func (b *Bot) handleRedeem(ctx context.Context, i *discordgo.InteractionCreate) (*discord.Response, error) {
	opt := option(i, "item")
	if opt == nil {
		return discord.NewEphemeralResponse("❗ Pick an item to redeem."), nil
	}
	purchase, w, err := b.store.Purchase(ctx, UserID(i), opt.StringValue())
	if err != nil {
		return nil, err
	}
	return discord.NewEphemeralResponse(fmt.Sprintf("✅ Redeemed **%s** for %d tokens. You have %d left.",
		purchase.Title, purchase.Cost, w.TotalTokens)), nil
}

func option(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}
