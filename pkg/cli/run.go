package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sudobot/pkg/bot"
	"sudobot/pkg/cache"
	"sudobot/pkg/commands"
	"sudobot/pkg/config"
	"sudobot/pkg/escalation"
	"sudobot/pkg/picker"
	"sudobot/pkg/responses"
	"sudobot/pkg/sudo"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

const botIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// RunCmd returns the command that connects the bot to Discord.
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start answering $sudo commands",
		Long: `Connect to Discord and start answering $sudo commands.

Secrets come from the environment (or .env):
  DISCORD_TOKEN      bot token (required)
  DISCORD_GUILD_ID   register slash commands in one guild instead of globally
  REDIS_URL          keep command usage counters in Redis`,
		RunE: runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loadEnv()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return fmt.Errorf("missing required environment variable: DISCORD_TOKEN")
	}

	handler, err := buildHandler(cfg)
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = botIntents

	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer dg.Close()

	handler.SetBotID(dg.State.User.ID)
	handler.SetSession(&bot.DiscordSession{Session: dg})

	// Empty guild ID registers globally; a guild ID gives instant updates while developing.
	guildID := os.Getenv("DISCORD_GUILD_ID")
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}
	defer func() {
		if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands); err != nil {
			log.Printf("Error unregistering slash commands: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	handler.StartStatusRotation(ctx)

	log.Printf("Sudo is now running as %s. Press CTRL-C to exit.", dg.State.User.Username)
	<-ctx.Done()

	handler.Close()
	return nil
}

// buildHandler wires config, catalog, text commands and counters into a bot
// handler.
func buildHandler(cfg *config.Config) (*bot.Handler, error) {
	catalog, err := responses.Load(cfg.Responses.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	registry := commands.NewDefaultRegistry()
	added, err := commands.Load(cfg.Commands.Dir, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to load text commands: %w", err)
	}
	log.Printf("[commands] Ready: prefix=%q, loaded %d commands (%d from %s)", cfg.Prefix, registry.Len(), added, cfg.Commands.Dir)

	clock := clockwork.NewRealClock()
	p := picker.NewDefault(cfg.Picker.RetryAttempts)

	responder := sudo.NewResponder(
		escalation.NewMemory(clock, cfg.Grace()),
		p,
		catalog,
		sudo.Config{
			Window:         cfg.Window(),
			Ceiling:        cfg.Escalation.Ceiling,
			ResetAtCeiling: cfg.Escalation.ResetAtCeiling,
		},
	)

	return bot.NewHandler(bot.HandlerConfig{
		Prefix:            cfg.Prefix,
		Responder:         responder,
		Commands:          registry,
		CommandMemory:     escalation.NewMemory(clock, cfg.Grace()),
		CommandWindow:     cfg.CommandWindow(),
		Picker:            p,
		Usage:             openUsageCounter(os.Getenv("REDIS_URL")),
		HackPace:          cfg.Hack.Pace,
		TypingEnabled:     cfg.Typing.Enabled,
		Activities:        cfg.Status.Activities,
		StatusState:       cfg.Status.State,
		StatusInterval:    cfg.StatusInterval(),
		InvitePermissions: cfg.Help.InvitePermissions,
		SupportURL:        cfg.Help.SupportURL,
	}), nil
}

// openUsageCounter prefers Redis and falls back to in-process counters.
func openUsageCounter(redisURL string) cache.Counter {
	if redisURL == "" {
		return cache.NewMemoryCounter()
	}

	c, err := cache.NewRedisCache(redisURL, "sudobot")
	if err != nil {
		log.Printf("Redis unavailable, keeping usage counters in memory: %v", err)
		return cache.NewMemoryCounter()
	}

	log.Println("Usage counters stored in Redis")
	return c
}
