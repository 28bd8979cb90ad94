package bot

import (
	"math/rand"
	"time"
)

// TypingConfig controls typing simulation behavior
type TypingConfig struct {
	// Base characters per second for "typing"
	BaseCharsPerSecond float64
	MinDuration        time.Duration
	MaxDuration        time.Duration
	// Random variation factor (0.0 - 1.0)
	Variation float64
}

var DefaultTypingConfig = TypingConfig{
	BaseCharsPerSecond: 25.0,
	MinDuration:        800 * time.Millisecond,
	MaxDuration:        4 * time.Second,
	Variation:          0.3,
}

// tierSpeed shortens the pause as the user keeps repeating themselves.
func tierSpeed(tier int) float64 {
	switch {
	case tier <= 1:
		return 1.0
	case tier == 2:
		return 0.8
	case tier == 3:
		return 0.6
	default:
		return 0.4
	}
}

// CalculateTypingDuration determines how long to "type" based on reply length and escalation tier
func CalculateTypingDuration(messageLength, tier int, config TypingConfig) time.Duration {
	baseDuration := time.Duration(float64(messageLength) / config.BaseCharsPerSecond * float64(time.Second))
	adjusted := time.Duration(float64(baseDuration) * tierSpeed(tier))

	if config.Variation > 0 {
		variation := 1.0 + (rand.Float64()*2-1)*config.Variation
		adjusted = time.Duration(float64(adjusted) * variation)
	}

	if adjusted < config.MinDuration {
		adjusted = config.MinDuration
	}
	if adjusted > config.MaxDuration {
		adjusted = config.MaxDuration
	}
	return adjusted
}

// SimulateTyping shows typing indicator for a calculated duration
func (h *Handler) SimulateTyping(s Session, channelID string, messageLength, tier int) {
	duration := CalculateTypingDuration(messageLength, tier, DefaultTypingConfig)
	if duration <= 0 {
		return
	}

	s.ChannelTyping(channelID)

	// Discord clears the indicator after ~10 seconds
	refreshInterval := 8 * time.Second
	for elapsed := time.Duration(0); elapsed < duration; {
		sleepTime := min(duration-elapsed, refreshInterval)
		time.Sleep(sleepTime)
		elapsed += sleepTime
		if elapsed < duration {
			s.ChannelTyping(channelID)
		}
	}
}
