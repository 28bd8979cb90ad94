package bot

import (
	"encoding/base64"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"sudobot/pkg/commands"
	"sudobot/pkg/responses"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

var (
	mentionPattern   = regexp.MustCompile(`^<@!?(\d+)>$`)
	snowflakePattern = regexp.MustCompile(`^\d{17,20}$`)
)

// HackPercentSteps are the progress values shown while the stages run. The
// last three double as the final ramp.
var HackPercentSteps = []int{2, 10, 23, 37, 54, 72, 88, 96, 100}

type hackStage struct {
	label string
	extra string
	delay time.Duration
}

func hackStages(target string) []hackStage {
	return []hackStage{
		{label: "Initializing hack engine for " + target, delay: 700 * time.Millisecond},
		{label: "Resolving host", extra: "IP: " + randIP(), delay: 700 * time.Millisecond},
		{label: "Enumerating services", extra: fmt.Sprintf("ports: %d, %d, %d", randPort(), randPort(), randPort()), delay: 800 * time.Millisecond},
		{label: "Bypassing perimeter controls", delay: 900 * time.Millisecond},
		{label: "Exfiltrating credentials (simulated)", extra: "token: " + randHex(24), delay: 900 * time.Millisecond},
		{label: "Cracking caches", delay: 850 * time.Millisecond},
		{label: "Deploying stealth payload", extra: "sha256: " + randHex(32), delay: 800 * time.Millisecond},
		{label: "Erasing footprints", delay: 700 * time.Millisecond},
	}
}

// handleHackCommand runs a purely cosmetic "hack" by editing a single
// message through a series of stages.
func handleHackCommand(h *Handler, s Session, m *discordgo.MessageCreate, cmd *commands.Command, args []string) {
	if len(args) == 0 {
		usage := cmd.Usage
		if usage == "" {
			usage = "<user>"
		}
		h.reply(s, m, fmt.Sprintf("Usage: `%s %s %s` — tell me who to \"hack\".", h.cfg.Prefix, cmd.Key(), usage))
		return
	}

	target := h.resolveTarget(s, m.GuildID, strings.TrimSpace(strings.Join(args, " ")))

	progress := h.reply(s, m, fmt.Sprintf("🔍 Initiating simulation on %s...", target))
	if progress == nil {
		log.Printf("[hack] Cannot create message to edit for %s", target)
		return
	}

	for i, stage := range hackStages(target) {
		pct := HackPercentSteps[min(i, len(HackPercentSteps)-1)]
		text := fmt.Sprintf("```txt\n[%3d%%] %s\n```", pct, stage.label)
		if stage.extra != "" {
			text += "\n" + stage.extra
		}
		text += fmt.Sprintf("\n• %s · %s", randBase64(10), randHex(8))

		h.pause(stage.delay)
		h.edit(s, progress, text)
	}

	for _, pct := range HackPercentSteps[len(HackPercentSteps)-3:] {
		h.pause(220 * time.Millisecond)
		h.edit(s, progress, fmt.Sprintf("```txt\n[ %3d%% ] Finalizing...\n```", pct))
	}

	h.pause(600 * time.Millisecond)

	result, ok := h.pickCommandResponse(cmd, m.Author.ID, m.GuildID, responses.Vars{
		User:    target,
		Command: cmd.Key(),
	})
	if !ok {
		result = fmt.Sprintf("Hack complete — %s compromised. (simulation)", target)
	}

	sessionID := uuid.NewString()
	h.edit(s, progress, strings.Join([]string{
		"✅ **COMPLETED**",
		"**Target:** " + target,
		"**Session ID:** " + sessionID,
		"**Artifact:** " + randHex(12) + ".bin",
		"**Result:** " + result,
	}, "\n"))

	h.pause(200 * time.Millisecond)
	summary := fmt.Sprintf("`[SUMMARY]` %s — session %s — status: COMPLETE", target, sessionID[:8])
	if _, err := s.ChannelMessageSend(m.ChannelID, summary); err != nil {
		log.Printf("[hack] Error sending summary: %v", err)
	}
}

// resolveTarget turns the raw argument into a mention when it names a known
// user: mention, then snowflake id, then guild member search. Anything else is
// shown as typed.
func (h *Handler) resolveTarget(s Session, guildID, raw string) string {
	id := ""
	if match := mentionPattern.FindStringSubmatch(raw); match != nil {
		id = match[1]
	} else if snowflakePattern.MatchString(raw) {
		id = raw
	}

	if id != "" {
		if guildID != "" {
			if member, err := s.GuildMember(guildID, id); err == nil && member.User != nil {
				return "<@" + member.User.ID + ">"
			}
		}
		if user, err := s.User(id); err == nil && user != nil {
			return "<@" + user.ID + ">"
		}
		return raw
	}

	if guildID == "" {
		return raw
	}

	members, err := s.GuildMembersSearch(guildID, raw, 10)
	if err != nil {
		log.Printf("[hack] Member search for %q failed: %v", raw, err)
		return raw
	}
	if member := bestMember(members, raw); member != nil {
		return "<@" + member.User.ID + ">"
	}
	return raw
}

// bestMember prefers an exact nickname or username match over the first hit.
func bestMember(members []*discordgo.Member, query string) *discordgo.Member {
	var first *discordgo.Member
	for _, member := range members {
		if member == nil || member.User == nil {
			continue
		}
		if first == nil {
			first = member
		}
		if strings.EqualFold(member.Nick, query) ||
			strings.EqualFold(member.User.Username, query) ||
			strings.EqualFold(member.User.GlobalName, query) {
			return member
		}
	}
	return first
}

func (h *Handler) pause(d time.Duration) {
	if h.cfg.HackPace <= 0 {
		return
	}
	time.Sleep(time.Duration(float64(d) * h.cfg.HackPace))
}

func randHex(n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}

func randBase64(n int) string {
	s := base64.StdEncoding.EncodeToString([]byte(randHex(n)))
	return s[:max(8, n)]
}

func randIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", 11+rand.Intn(213), rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}

func randPort() int {
	return 1024 + rand.Intn(65535-1024+1)
}
