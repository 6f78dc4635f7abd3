package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/services/redemption"
)

// Discord allows at most 25 choices per option
const maxChoices = 25

// Commands defines all slash commands for the bot. The redeem command
// offers the catalog's items as choices.
func Commands(catalog *redemption.Catalog) []*discordgo.ApplicationCommand {
	itemOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "item",
		Description: "Item to redeem",
		Required:    true,
	}
	for _, item := range catalog.Items("") {
		if len(itemOption.Choices) == maxChoices {
			break
		}
		itemOption.Choices = append(itemOption.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  item.Title,
			Value: item.ID,
		})
	}

	typeOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "type",
		Description: "Only show one kind of item",
	}
	for _, t := range []entities.ItemType{entities.ItemTypeVideo, entities.ItemTypeFeature, entities.ItemTypeBadge, entities.ItemTypeBoost} {
		typeOption.Choices = append(typeOption.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(t),
			Value: string(t),
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "tokens",
			Description: "Show your token balance and recent activity",
		},
		{
			Name:        "catalog",
			Description: "Browse the redemption store",
			Options:     []*discordgo.ApplicationCommandOption{typeOption},
		},
		{
			Name:        "redeem",
			Description: "Spend tokens on a store item",
			Options:     []*discordgo.ApplicationCommandOption{itemOption},
		},
	}
}
