package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"sudobot/pkg/picker"

	"github.com/bwmarrin/discordgo"
)

// StartStatusRotation updates the presence right away and then every
// StatusInterval until ctx is done.
func (h *Handler) StartStatusRotation(ctx context.Context) {
	if len(h.cfg.Activities) == 0 {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runStatusRotation(ctx)
	}()
}

func (h *Handler) runStatusRotation(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.StatusInterval)
	defer ticker.Stop()

	h.rotateStatus()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.rotateStatus()
		}
	}
}

func (h *Handler) rotateStatus() {
	if h.session == nil {
		return
	}

	h.statusMu.Lock()
	idx := h.cfg.Picker.Pick(len(h.cfg.Activities), h.lastActivity)
	if idx == picker.NoIndex {
		h.statusMu.Unlock()
		return
	}
	h.lastActivity = idx
	text := formatActivity(h.cfg.Activities[idx], h.session.GuildCount(), time.Since(h.startedAt))
	h.currentActivity = text
	h.statusMu.Unlock()

	err := h.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: text,
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: h.cfg.StatusState,
	})
	if err != nil {
		log.Printf("[status] Error updating status: %v", err)
	}
}

func (h *Handler) CurrentActivity() string {
	h.statusMu.RLock()
	defer h.statusMu.RUnlock()
	return h.currentActivity
}

func formatActivity(tmpl string, guilds int, uptime time.Duration) string {
	return strings.NewReplacer(
		"%guilds%", fmt.Sprint(guilds),
		"%uptime%", prettyUptime(uptime),
	).Replace(tmpl)
}

// prettyUptime renders d as "1d 2h 3m 4s", dropping zero parts.
func prettyUptime(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec <= 0 {
		return "0s"
	}

	var parts []string
	for _, unit := range []struct {
		size   int64
		suffix string
	}{
		{86400, "d"},
		{3600, "h"},
		{60, "m"},
		{1, "s"},
	} {
		if n := sec / unit.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit.suffix))
			sec %= unit.size
		}
	}
	return strings.Join(parts, " ")
}
