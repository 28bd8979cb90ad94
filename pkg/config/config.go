package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Prefix     string `yaml:"prefix"`
	Escalation struct {
		WindowMs       int  `yaml:"window_ms"`
		GraceMs        int  `yaml:"grace_ms"`
		Ceiling        int  `yaml:"ceiling"`
		ResetAtCeiling bool `yaml:"reset_at_ceiling"`
	} `yaml:"escalation"`
	Picker struct {
		RetryAttempts int `yaml:"retry_attempts"`
	} `yaml:"picker"`
	Commands struct {
		Dir            string `yaml:"dir"`
		RepeatWindowMs int    `yaml:"repeat_window_ms"`
	} `yaml:"commands"`
	Responses struct {
		File string `yaml:"file"`
	} `yaml:"responses"`
	Status struct {
		IntervalSeconds int      `yaml:"interval_seconds"`
		State           string   `yaml:"state"`
		Activities      []string `yaml:"activities"`
	} `yaml:"status"`
	Hack struct {
		Pace float64 `yaml:"pace"`
	} `yaml:"hack"`
	Typing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"typing"`
	Help struct {
		InvitePermissions int    `yaml:"invite_permissions"`
		SupportURL        string `yaml:"support_url"`
	} `yaml:"help"`
}

// Default returns the configuration used when no config file exists. Fields
// left unset by a config file fall back to these values as well.
func Default() *Config {
	config := &Config{}
	config.Prefix = "$sudo"
	config.Escalation.WindowMs = 30000
	config.Escalation.GraceMs = 1000
	config.Escalation.Ceiling = 4
	config.Escalation.ResetAtCeiling = true
	config.Picker.RetryAttempts = 6
	config.Commands.Dir = "commands"
	config.Commands.RepeatWindowMs = 30000
	config.Status.IntervalSeconds = 20
	config.Status.State = "online"
	config.Status.Activities = []string{
		"Type $sudo for chaos",
		"Watching your commands...",
		"Simulating root access — jokingly",
		"Use /help for slash commands",
	}
	config.Hack.Pace = 1
	config.Help.InvitePermissions = 3072
	config.Help.SupportURL = "https://discord.gg/"
	return config
}

func LoadConfig(path string) (*Config, error) {
	config := Default()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	if c.Escalation.WindowMs < 0 || c.Escalation.GraceMs < 0 || c.Commands.RepeatWindowMs < 0 {
		return fmt.Errorf("escalation windows must not be negative")
	}
	if c.Escalation.Ceiling < 2 {
		return fmt.Errorf("escalation ceiling must be at least 2, got %d", c.Escalation.Ceiling)
	}
	if c.Picker.RetryAttempts < 1 {
		return fmt.Errorf("picker retry_attempts must be at least 1, got %d", c.Picker.RetryAttempts)
	}
	if c.Status.IntervalSeconds < 1 {
		return fmt.Errorf("status interval_seconds must be at least 1, got %d", c.Status.IntervalSeconds)
	}
	if c.Hack.Pace < 0 {
		return fmt.Errorf("hack pace must not be negative")
	}
	return nil
}

func (c *Config) Window() time.Duration {
	return time.Duration(c.Escalation.WindowMs) * time.Millisecond
}

func (c *Config) Grace() time.Duration {
	return time.Duration(c.Escalation.GraceMs) * time.Millisecond
}

func (c *Config) CommandWindow() time.Duration {
	return time.Duration(c.Commands.RepeatWindowMs) * time.Millisecond
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Status.IntervalSeconds) * time.Second
}
