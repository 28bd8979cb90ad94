package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// reply answers m, falling back to a plain channel message when the reply
// cannot be sent. Failures of both are logged and dropped.
func (h *Handler) reply(s Session, m *discordgo.MessageCreate, content string) *discordgo.Message {
	msg, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
	if err == nil {
		return msg
	}
	log.Printf("Error replying to message %s: %v", m.ID, err)

	msg, err = s.ChannelMessageSend(m.ChannelID, content)
	if err != nil {
		log.Printf("Error sending message to channel %s: %v", m.ChannelID, err)
		return nil
	}
	return msg
}

// edit rewrites a message in place, ignoring failures.
func (h *Handler) edit(s Session, msg *discordgo.Message, content string) {
	if _, err := s.ChannelMessageEdit(msg.ChannelID, msg.ID, content); err != nil {
		log.Printf("Error editing message %s: %v", msg.ID, err)
	}
}

func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
