// Package responses holds the canned reply pools served at each escalation tier.
package responses

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultCatalog []byte

// TierPools groups the pools used for each escalation tier.
type TierPools struct {
	First  []string `yaml:"first"`
	Second []string `yaml:"second"`
	Third  []string `yaml:"third"`
	More   []string `yaml:"more"`
}

// ForTier returns the pool for tier. Tiers of 4 and above share the More pool.
func (p TierPools) ForTier(tier int) []string {
	switch {
	case tier <= 1:
		return p.First
	case tier == 2:
		return p.Second
	case tier == 3:
		return p.Third
	default:
		return p.More
	}
}

// Catalog maps commands to their tier pools, with a generic default.
type Catalog struct {
	Default  TierPools            `yaml:"default"`
	Commands map[string]TierPools `yaml:"commands"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog. Command names are normalized to lowercase.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse response catalog: %w", err)
	}

	normalized := make(map[string]TierPools, len(c.Commands))
	for name, pools := range c.Commands {
		normalized[normalizeName(name)] = pools
	}
	c.Commands = normalized

	return &c, nil
}

// Load returns the built-in catalog with the file at path merged over it.
// An empty path or a missing file yields the built-in catalog unchanged.
func Load(path string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response catalog %s: %w", path, err)
	}

	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Merge(override)
	return c, nil
}

// Merge overlays non-empty pools from other onto c.
func (c *Catalog) Merge(other *Catalog) {
	c.Default = mergePools(c.Default, other.Default)

	if c.Commands == nil {
		c.Commands = make(map[string]TierPools)
	}
	for name, pools := range other.Commands {
		c.Commands[name] = mergePools(c.Commands[name], pools)
	}
}

// Pool returns the pool for command at tier. A command without its own pool
// for that tier uses the default one.
func (c *Catalog) Pool(command string, tier int) []string {
	if pools, ok := c.Commands[normalizeName(command)]; ok {
		if pool := pools.ForTier(tier); len(pool) > 0 {
			return pool
		}
	}
	return c.Default.ForTier(tier)
}

// HasCommand reports whether command has a custom pool set.
func (c *Catalog) HasCommand(command string) bool {
	_, ok := c.Commands[normalizeName(command)]
	return ok
}

func mergePools(base, over TierPools) TierPools {
	if len(over.First) > 0 {
		base.First = over.First
	}
	if len(over.Second) > 0 {
		base.Second = over.Second
	}
	if len(over.Third) > 0 {
		base.Third = over.Third
	}
	if len(over.More) > 0 {
		base.More = over.More
	}
	return base
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
