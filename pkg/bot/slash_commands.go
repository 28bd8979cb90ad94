package bot

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"sudobot/pkg/sudo"

	"github.com/bwmarrin/discordgo"
)

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "help",
		Description: "Show help and usage for Sudo bot",
	},
	{
		Name:        "status",
		Description: "Show live status information about the bot",
	},
	{
		Name:        "sudo",
		Description: "Ask Sudo to (playfully) execute something",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "What should Sudo run?",
				Required:    true,
			},
		},
	},
}

type SlashCommandHandler func(h *Handler, s Session, i *discordgo.InteractionCreate)

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]SlashCommandHandler{
	"help":   handleHelpCommand,
	"status": handleStatusCommand,
	"sudo":   handleSudoCommand,
}

func handleHelpCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	prefix := h.cfg.Prefix
	embed := &discordgo.MessageEmbed{
		Title:       "Sudo — Help",
		Description: "Short guide to using **Sudo**. Use `/help` anytime for this message — visible only to you.",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Prefix command",
				Value: fmt.Sprintf("`%s <anything>` — Ask Sudo to (playfully) execute something.\nExample: `%s make coffee`", prefix, prefix),
			},
			{
				Name:  "Slash commands",
				Value: "`/help` — This help message.\n`/status` — Uptime, memory and usage.\n`/sudo text:<anything>` — Same as the prefix command.",
			},
			{
				Name:  "Repeats behaviour",
				Value: fmt.Sprintf("If you send the **same** `%s <command>` multiple times quickly:\n• 1st = a random playful reply\n• 2nd = a short `\"what?\"` style reply\n• 3rd+ = escalation like `\"tell me what you want?\"`", prefix),
			},
			{
				Name:  "Tips",
				Value: h.commandTips(),
			},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Sudo • playful system emulator"},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	appID := i.AppID
	if appID == "" {
		appID = h.botID
	}
	inviteURL := fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot%%20applications.commands&permissions=%d", appID, h.cfg.InvitePermissions)

	buttons := []discordgo.MessageComponent{
		discordgo.Button{Label: "Invite Sudo", Style: discordgo.LinkButton, URL: inviteURL},
	}
	if h.cfg.SupportURL != "" {
		buttons = append(buttons, discordgo.Button{Label: "Support / Server", Style: discordgo.LinkButton, URL: h.cfg.SupportURL})
	}

	respond(s, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

func (h *Handler) commandTips() string {
	var names []string
	for _, cmd := range h.cfg.Commands.List() {
		names = append(names, "`"+h.cfg.Prefix+" "+cmd.Key()+"`")
	}
	tips := "Be specific for best results."
	if len(names) > 0 {
		tips += " Text commands: " + strings.Join(names, ", ") + "."
	}
	return tips
}

func handleStatusCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	activity := h.CurrentActivity()
	if activity == "" {
		activity = "—"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Sudo — Status",
		Description: "Live status information about the Sudo bot",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: prettyUptime(time.Since(h.startedAt)), Inline: true},
			{Name: "Guilds", Value: fmt.Sprint(s.GuildCount()), Inline: true},
			{Name: "Tracked Commands", Value: fmt.Sprint(h.cfg.Responder.Memory().Len()), Inline: true},
			{Name: "Activity", Value: activity},
			{Name: "Memory (Alloc / Sys)", Value: fmt.Sprintf("%.1f MB / %.1f MB", toMB(mem.Alloc), toMB(mem.Sys)), Inline: true},
			{Name: "Go", Value: runtime.Version(), Inline: true},
			{Name: "Host", Value: runtime.GOOS + " • " + runtime.GOARCH, Inline: true},
			{Name: "Top Commands", Value: h.usageSummary()},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Sudo • status"},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}

func (h *Handler) usageSummary() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	top, err := h.cfg.Usage.Top(ctx, 5)
	if err != nil {
		log.Printf("Error reading usage counters: %v", err)
		return "unavailable"
	}
	if len(top) == 0 {
		return "none yet"
	}

	lines := make([]string, 0, len(top))
	for _, u := range top {
		lines = append(lines, fmt.Sprintf("`%s` × %d", u.Command, u.Count))
	}
	return strings.Join(lines, "\n")
}

func toMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

func handleSudoCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	// Without a user the key is invalid and the responder serves a generic reply.
	userID, userName, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error handling /sudo: %v", err)
	}

	text := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "text" {
			text = opt.StringValue()
		}
	}

	if strings.TrimSpace(text) == "" {
		respond(s, i, &discordgo.InteractionResponseData{
			Content: "Be specific. `/sudo text:<something>` — tell me what to sudo.",
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		return
	}

	h.recordUsage("sudo")
	reply := h.cfg.Responder.Respond(sudo.Request{
		ActorID:   userID,
		ContextID: i.GuildID,
		Command:   text,
		Username:  userName,
	})
	log.Printf("[slash] %s tier=%d index=%d", reply.Key, reply.Tier, reply.Index)

	respond(s, i, &discordgo.InteractionResponseData{Content: reply.Text})
}

func respond(s Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

// InteractionCreate handles all slash command interactions
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{s}, i)
}

func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	// Only handle application commands (slash commands)
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[slash] Error executing /%s: %v", commandName, rec)
			respond(s, i, &discordgo.InteractionResponseData{
				Content: "There was an error while executing this command.",
				Flags:   discordgo.MessageFlagsEphemeral,
			})
		}
	}()

	if handler, ok := SlashCommandHandlers[commandName]; ok {
		handler(h, s, i)
		return
	}

	log.Printf("Unknown slash command: %s", commandName)
	respond(s, i, &discordgo.InteractionResponseData{
		Content: "Command not found (maybe not loaded).",
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// RegisterSlashCommands registers all slash commands with Discord
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	log.Println("Registering slash commands...")

	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))

	for i, cmd := range SlashCommands {
		// Register globally (guildID = "") or for a specific guild
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create '%s' command: %v", cmd.Name, err)
			return nil, err
		}
		registeredCommands[i] = registeredCmd
		log.Printf("Registered command: %s", cmd.Name)
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	log.Println("Unregistering slash commands...")

	for _, cmd := range commands {
		err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID)
		if err != nil {
			log.Printf("Cannot delete '%s' command: %v", cmd.Name, err)
			return err
		}
		log.Printf("Unregistered command: %s", cmd.Name)
	}

	return nil
}
