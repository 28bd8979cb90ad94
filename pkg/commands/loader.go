package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir walks dir recursively and parses every *.yml / *.yaml command file.
// A sibling .txt file with the same base name replaces the command's
// responses with its non-empty lines. Invalid files are skipped. A missing dir
// is not an error.
func LoadDir(dir string) ([]*Command, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("[commands] Commands dir not found: %s", dir)
		return nil, nil
	}

	var loaded []*Command
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}

		cmd, err := loadFile(path)
		if err != nil {
			log.Printf("[commands] Skipping %s: %v", path, err)
			return nil
		}

		txtPath := strings.TrimSuffix(path, ext) + ".txt"
		lines, err := readLines(txtPath)
		if err != nil && !os.IsNotExist(err) {
			log.Printf("[commands] Could not read %s: %v", txtPath, err)
		}
		if len(lines) > 0 {
			cmd.Responses = lines
		}
		if cmd.Handler == "" && len(cmd.Responses) == 0 {
			log.Printf("[commands] Skipping %s: no handler and no responses", path)
			return nil
		}

		log.Printf("[commands] Loaded command %q from %s", cmd.Key(), path)
		loaded = append(loaded, cmd)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commands dir %s: %w", dir, err)
	}
	return loaded, nil
}

// Load registers the commands found in dir. A file naming an already
// registered command overrides its description, usage and responses instead of
// registering a second one. It returns the number of new commands.
// Load is meant to run before the registry is shared.
func Load(dir string, reg *Registry) (int, error) {
	cmds, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, c := range cmds {
		if existing, ok := reg.Lookup(c.Key()); ok && existing.Key() == c.Key() {
			existing.overrideWith(c)
			continue
		}
		if err := reg.Register(c); err != nil {
			log.Printf("[commands] Cannot register %q: %v", c.Key(), err)
			continue
		}
		added++
	}
	return added, nil
}

func (c *Command) overrideWith(o *Command) {
	if o.Description != "" {
		c.Description = o.Description
	}
	if o.Usage != "" {
		c.Usage = o.Usage
	}
	if len(o.Responses) > 0 {
		c.Responses = o.Responses
	}
}

func loadFile(path string) (*Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cmd Command
	if err := yaml.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if cmd.Key() == "" {
		return nil, fmt.Errorf("missing name")
	}
	return &cmd, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
