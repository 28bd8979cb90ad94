package bot

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"sudobot/pkg/cache"
	"sudobot/pkg/commands"
	"sudobot/pkg/escalation"
	"sudobot/pkg/picker"
	"sudobot/pkg/responses"
	"sudobot/pkg/sudo"

	"github.com/bwmarrin/discordgo"
)

// DefaultPrefix is used when the config leaves prefix empty.
const DefaultPrefix = "$sudo"

// HandlerConfig carries the dependencies and settings of a Handler.
type HandlerConfig struct {
	Prefix    string
	Responder *sudo.Responder
	Commands  *commands.Registry
	// CommandMemory remembers the last response served per user and text
	// command so it is not repeated immediately.
	CommandMemory *escalation.Memory
	CommandWindow time.Duration
	Picker        *picker.Picker
	Usage         cache.Counter

	HackPace      float64
	TypingEnabled bool

	Activities     []string
	StatusState    string
	StatusInterval time.Duration

	InvitePermissions int
	SupportURL        string
}

type Handler struct {
	cfg       HandlerConfig
	botID     string
	session   Session
	startedAt time.Time
	wg        sync.WaitGroup

	// serializes resolve/record on CommandMemory
	cmdMu sync.Mutex

	statusMu        sync.RWMutex
	currentActivity string
	lastActivity    int
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Commands == nil {
		cfg.Commands = commands.NewDefaultRegistry()
	}
	if cfg.Picker == nil {
		cfg.Picker = picker.NewDefault(picker.DefaultAttempts)
	}
	if cfg.CommandMemory == nil {
		cfg.CommandMemory = escalation.NewMemory(nil, escalation.DefaultGrace)
	}
	if cfg.CommandWindow <= 0 {
		cfg.CommandWindow = escalation.DefaultWindow
	}
	if cfg.Responder == nil {
		catalog, err := responses.Default()
		if err != nil {
			log.Printf("Error loading default responses: %v", err)
			catalog = &responses.Catalog{}
		}
		cfg.Responder = sudo.NewResponder(escalation.NewMemory(nil, escalation.DefaultGrace), cfg.Picker, catalog, sudo.Config{ResetAtCeiling: true})
	}
	if cfg.Usage == nil {
		cfg.Usage = cache.NewMemoryCounter()
	}
	if cfg.StatusState == "" {
		cfg.StatusState = "online"
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 20 * time.Second
	}

	return &Handler{
		cfg:          cfg,
		startedAt:    time.Now(),
		lastActivity: picker.NoIndex,
	}
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

func (h *Handler) SetSession(s Session) {
	h.session = s
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.botID {
		return
	}

	rest, ok := cutPrefix(m.Content, h.cfg.Prefix)
	if !ok {
		return
	}

	if rest == "" {
		h.reply(s, m, "Be specific. `"+h.cfg.Prefix+" <something>` — tell me what to sudo.")
		return
	}

	tokens := strings.Fields(rest)
	if cmd, ok := h.cfg.Commands.Lookup(tokens[0]); ok {
		h.recordUsage(cmd.Key())
		h.dispatchTextCommand(s, m, cmd, tokens[1:])
		return
	}

	h.recordUsage("sudo")
	reply := h.cfg.Responder.Respond(sudo.Request{
		ActorID:   m.Author.ID,
		ContextID: m.GuildID,
		Command:   rest,
		Username:  displayName(m.Author),
	})
	log.Printf("[sudo] %s tier=%d index=%d", reply.Key, reply.Tier, reply.Index)

	if h.cfg.TypingEnabled {
		h.SimulateTyping(s, m.ChannelID, len(reply.Text), reply.Tier)
	}
	h.reply(s, m, reply.Text)
}

// cutPrefix matches prefix case-insensitively at the start of content and
// returns the trimmed remainder.
func cutPrefix(content, prefix string) (string, bool) {
	if len(content) < len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return "", false
	}
	rest := content[len(prefix):]
	// "$sudoku" is not an invocation of "$sudo", but "!ping" is one of "!".
	if rest != "" && endsInWord(prefix) {
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
			return "", false
		}
	}
	return strings.TrimSpace(rest), true
}

func endsInWord(prefix string) bool {
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (h *Handler) recordUsage(command string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.cfg.Usage.Incr(ctx, command); err != nil {
		log.Printf("Error recording usage for %s: %v", command, err)
	}
}

func (h *Handler) Close() {
	h.wg.Wait()
	h.cfg.CommandMemory.Close()
	h.cfg.Responder.Memory().Close()
}
