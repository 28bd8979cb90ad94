package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var errNoInteractionUser = errors.New("could not determine user from interaction")

// getUserFromInteraction returns the invoking user's ID and display name for
// both guild (Member) and DM (User) interactions.
func getUserFromInteraction(i *discordgo.InteractionCreate) (string, string, error) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, displayName(i.Member.User), nil
	}
	if i.User != nil {
		return i.User.ID, displayName(i.User), nil
	}
	return "", "", errNoInteractionUser
}
