package bot

import (
	"log"

	"sudobot/pkg/commands"
	"sudobot/pkg/escalation"
	"sudobot/pkg/picker"
	"sudobot/pkg/responses"

	"github.com/bwmarrin/discordgo"
)

type TextCommandHandler func(h *Handler, s Session, m *discordgo.MessageCreate, cmd *commands.Command, args []string)

// TextCommandHandlers maps builtin executor names to their handler functions
var TextCommandHandlers = map[string]TextCommandHandler{
	commands.HackHandler: handleHackCommand,
}

func (h *Handler) dispatchTextCommand(s Session, m *discordgo.MessageCreate, cmd *commands.Command, args []string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[commands] Error executing %s: %v", cmd.Key(), rec)
			h.reply(s, m, "There was an error executing that command.")
		}
	}()

	if cmd.Handler != "" {
		if handler, ok := TextCommandHandlers[cmd.Handler]; ok {
			handler(h, s, m, cmd, args)
			return
		}
		log.Printf("[commands] Unknown handler %q for %s", cmd.Handler, cmd.Key())
	}

	text, ok := h.pickCommandResponse(cmd, m.Author.ID, m.GuildID, responses.Vars{
		User:    displayName(m.Author),
		Command: cmd.Key(),
	})
	if !ok {
		return
	}
	h.reply(s, m, text)
}

// pickCommandResponse serves a line from the command's pool without repeating
// the one this user got last time, and remembers the choice.
func (h *Handler) pickCommandResponse(cmd *commands.Command, actorID, contextID string, v responses.Vars) (string, bool) {
	pool := cmd.Responses
	if len(pool) == 0 {
		return "", false
	}

	key := escalation.NewKey(actorID, contextID, cmd.Key())
	mem := h.cfg.CommandMemory

	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	now := mem.Clock().Now()
	res := mem.Resolve(key, now, h.cfg.CommandWindow)
	idx := h.cfg.Picker.Pick(len(pool), res.PreviousIndex)
	if idx == picker.NoIndex {
		return "", false
	}
	if key.Valid() {
		mem.Record(key, now, res.Tier, idx, h.cfg.CommandWindow)
	}
	return responses.Render(pool[idx], v), true
}
