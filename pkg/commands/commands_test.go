package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRegistry_LookupByAlias(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, name := range []string{"hack", "HAXX", " hackme "} {
		c, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "hack", c.Key())
	}

	_, ok := reg.Lookup("dance")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := NewDefaultRegistry()

	err := reg.Register(&Command{Name: "tool", Aliases: []string{"Haxx"}})
	assert.True(t, errors.Is(err, ErrDuplicateName))

	_, ok := reg.Lookup("tool")
	assert.False(t, ok, "a rejected command must not be partially registered")

	assert.Error(t, reg.Register(&Command{Name: "  "}))
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Command{Name: "zap", Responses: []string{"z"}}))
	require.NoError(t, reg.Register(&Command{Name: "Alpha", Responses: []string{"a"}}))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Key())
	assert.Equal(t, "zap", list[1].Key())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dance.yml"), `
name: Dance
description: Make the bot dance
aliases: [boogie]
responses: ["inline"]
`)
	writeFile(t, filepath.Join(dir, "dance.txt"), "\n  💃 spin  \n\n🕺 slide\n")
	writeFile(t, filepath.Join(dir, "fun", "coffee.yaml"), `
name: coffee
responses: ["☕ brewing", "☕ done"]
`)
	writeFile(t, filepath.Join(dir, "broken.yml"), "name: [oops")
	writeFile(t, filepath.Join(dir, "nameless.yml"), "description: nothing")
	writeFile(t, filepath.Join(dir, "empty.yml"), "name: empty")
	writeFile(t, filepath.Join(dir, "notes.md"), "ignored")

	cmds, err := LoadDir(dir)
	require.NoError(t, err)

	byName := map[string]*Command{}
	for _, c := range cmds {
		byName[c.Key()] = c
	}
	require.Len(t, byName, 2)
	assert.Equal(t, []string{"💃 spin", "🕺 slide"}, byName["dance"].Responses)
	assert.Equal(t, []string{"dance", "boogie"}, byName["dance"].Names())
	assert.Equal(t, []string{"☕ brewing", "☕ done"}, byName["coffee"].Responses)
}

func TestLoadDir_Missing(t *testing.T) {
	cmds, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestLoad_OverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hack", "hack.yml"), "name: hack\nhandler: hack\n")
	writeFile(t, filepath.Join(dir, "hack", "hack.txt"), "pwned {user}\n")
	writeFile(t, filepath.Join(dir, "wave.yml"), "name: wave\naliases: [haxx]\nresponses: [\"👋\"]\n")
	writeFile(t, filepath.Join(dir, "hi.yml"), "name: hi\nresponses: [\"hello\"]\n")

	reg := NewDefaultRegistry()
	added, err := Load(dir, reg)
	require.NoError(t, err)

	assert.Equal(t, 1, added, "wave collides with a builtin alias and is skipped")
	hack, ok := reg.Lookup("hack")
	require.True(t, ok)
	assert.Equal(t, []string{"pwned {user}"}, hack.Responses)
	assert.Equal(t, HackHandler, hack.Handler)

	_, ok = reg.Lookup("hi")
	assert.True(t, ok)
	_, ok = reg.Lookup("wave")
	assert.False(t, ok)
}
