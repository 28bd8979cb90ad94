package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"sudobot/pkg/cache"
	"sudobot/pkg/commands"
	"sudobot/pkg/escalation"
	"sudobot/pkg/picker"
	"sudobot/pkg/responses"
	"sudobot/pkg/sudo"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMock = errors.New("mock failure")

// MockSession implements Session for testing
type MockSession struct {
	mu sync.Mutex

	SentMessages  []string // plain channel sends
	Replies       []string
	Edits         []string
	TypingCalls   int
	Interactions  []*discordgo.InteractionResponse
	StatusUpdates []discordgo.UpdateStatusData

	FailReply  bool
	FailSend   bool
	FailSearch bool
	Guilds     int
	Members    map[string]*discordgo.Member // by user id
	Users      map[string]*discordgo.User
	Search     []*discordgo.Member

	nextID int
}

func (m *MockSession) newMessage(channelID, content string) *discordgo.Message {
	m.nextID++
	return &discordgo.Message{
		ID:        fmt.Sprintf("mock_msg_%d", m.nextID),
		ChannelID: channelID,
		Content:   content,
	}
}

func (m *MockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return nil, errMock
	}
	m.SentMessages = append(m.SentMessages, content)
	return m.newMessage(channelID, content), nil
}

func (m *MockSession) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReply {
		return nil, errMock
	}
	m.Replies = append(m.Replies, content)
	return m.newMessage(channelID, content), nil
}

func (m *MockSession) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, content)
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}, nil
}

func (m *MockSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TypingCalls++
	return nil
}

func (m *MockSession) User(userID string) (*discordgo.User, error) {
	if u, ok := m.Users[userID]; ok {
		return u, nil
	}
	return nil, errMock
}

func (m *MockSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if member, ok := m.Members[userID]; ok {
		return member, nil
	}
	return nil, errMock
}

func (m *MockSession) GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	if m.FailSearch {
		return nil, errMock
	}
	return m.Search, nil
}

func (m *MockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Interactions = append(m.Interactions, resp)
	return nil
}

func (m *MockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdates = append(m.StatusUpdates, usd)
	return nil
}

func (m *MockSession) GuildCount() int {
	return m.Guilds
}

func (m *MockSession) statusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StatusUpdates)
}

type testBot struct {
	handler *Handler
	session *MockSession
	clock   *clockwork.FakeClock
	catalog *responses.Catalog
	usage   *cache.MemoryCounter
}

func newTestBot(t *testing.T, reg *commands.Registry) *testBot {
	t.Helper()

	clock := clockwork.NewFakeClock()
	catalog, err := responses.Default()
	require.NoError(t, err)

	p := picker.New(rand.New(rand.NewSource(42)), picker.DefaultAttempts)
	responder := sudo.NewResponder(
		escalation.NewMemory(clock, escalation.DefaultGrace),
		p,
		catalog,
		sudo.Config{Window: escalation.DefaultWindow, Ceiling: 4, ResetAtCeiling: true},
	)

	if reg == nil {
		reg = commands.NewDefaultRegistry()
	}
	usage := cache.NewMemoryCounter()

	h := NewHandler(HandlerConfig{
		Prefix:            "$sudo",
		Responder:         responder,
		Commands:          reg,
		CommandMemory:     escalation.NewMemory(clock, escalation.DefaultGrace),
		CommandWindow:     escalation.DefaultWindow,
		Picker:            p,
		Usage:             usage,
		HackPace:          0,
		InvitePermissions: 3072,
		SupportURL:        "https://discord.gg/example",
	})
	h.SetBotID("bot")
	t.Cleanup(h.Close)

	return &testBot{handler: h, session: &MockSession{}, clock: clock, catalog: catalog, usage: usage}
}

func message(content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "m1",
			ChannelID: "c1",
			GuildID:   "g1",
			Content:   content,
			Author:    &discordgo.User{ID: "u1", Username: "alice"},
		},
	}
}

func rendered(pool []string, v responses.Vars) []string {
	out := make([]string, len(pool))
	for i, tmpl := range pool {
		out[i] = responses.Render(tmpl, v)
	}
	return out
}

func TestHandleMessage_Ignored(t *testing.T) {
	b := newTestBot(t, nil)

	fromBot := message("$sudo make coffee")
	fromBot.Author.Bot = true
	fromSelf := message("$sudo make coffee")
	fromSelf.Author.ID = "bot"

	for _, m := range []*discordgo.MessageCreate{
		fromBot,
		fromSelf,
		message("hello there"),
		message("$sudoku is fun"),
		{Message: &discordgo.Message{Content: "$sudo x"}},
	} {
		b.handler.HandleMessage(b.session, m)
	}

	assert.Empty(t, b.session.Replies)
	assert.Empty(t, b.session.SentMessages)
	assert.Zero(t, b.handler.cfg.Responder.Memory().Len())
}

func TestHandleMessage_EmptyCommandHint(t *testing.T) {
	b := newTestBot(t, nil)

	b.handler.HandleMessage(b.session, message("$SUDO   "))

	require.Len(t, b.session.Replies, 1)
	assert.Contains(t, b.session.Replies[0], "Be specific.")
	assert.Zero(t, b.handler.cfg.Responder.Memory().Len())
}

func TestHandleMessage_Escalates(t *testing.T) {
	b := newTestBot(t, nil)
	vars := responses.Vars{User: "alice", Command: "make coffee"}

	b.handler.HandleMessage(b.session, message("$sudo make coffee"))
	b.clock.Advance(5 * time.Second)
	b.handler.HandleMessage(b.session, message("$SUDO make coffee"))
	b.clock.Advance(5 * time.Second)
	b.handler.HandleMessage(b.session, message("$sudo make coffee"))

	require.Len(t, b.session.Replies, 3)
	assert.Contains(t, rendered(b.catalog.Pool("make coffee", 1), vars), b.session.Replies[0])
	assert.Contains(t, rendered(b.catalog.Pool("make coffee", 2), vars), b.session.Replies[1])
	assert.Contains(t, rendered(b.catalog.Pool("make coffee", 3), vars), b.session.Replies[2])

	entry, ok := b.handler.cfg.Responder.Memory().Lookup(escalation.NewKey("u1", "g1", "make coffee"))
	require.True(t, ok)
	assert.Equal(t, 3, entry.Count)
}

func TestHandleMessage_NormalizesCommand(t *testing.T) {
	b := newTestBot(t, nil)

	b.handler.HandleMessage(b.session, message("$sudo Make Coffee"))
	b.handler.HandleMessage(b.session, message("$sudo   make \t coffee  "))

	entry, ok := b.handler.cfg.Responder.Memory().Lookup(escalation.NewKey("u1", "g1", "make coffee"))
	require.True(t, ok)
	assert.Equal(t, 2, entry.Count)
	assert.Equal(t, 1, b.handler.cfg.Responder.Memory().Len())
}

func TestHandleMessage_WindowExpiry(t *testing.T) {
	b := newTestBot(t, nil)
	vars := responses.Vars{User: "alice", Command: "reboot"}

	b.handler.HandleMessage(b.session, message("$sudo reboot"))
	b.clock.Advance(40 * time.Second)
	b.handler.HandleMessage(b.session, message("$sudo reboot"))

	require.Len(t, b.session.Replies, 2)
	assert.Contains(t, rendered(b.catalog.Pool("reboot", 1), vars), b.session.Replies[1])
}

func TestHandleMessage_ReplyFailureFallsBackToChannel(t *testing.T) {
	b := newTestBot(t, nil)
	b.session.FailReply = true

	b.handler.HandleMessage(b.session, message("$sudo make coffee"))

	assert.Empty(t, b.session.Replies)
	require.Len(t, b.session.SentMessages, 1)
	assert.NotEmpty(t, b.session.SentMessages[0])
}

func TestHandleMessage_DeliveryFailureStillRecords(t *testing.T) {
	b := newTestBot(t, nil)
	b.session.FailReply = true
	b.session.FailSend = true

	b.handler.HandleMessage(b.session, message("$sudo make coffee"))
	b.handler.HandleMessage(b.session, message("$sudo make coffee"))

	entry, ok := b.handler.cfg.Responder.Memory().Lookup(escalation.NewKey("u1", "g1", "make coffee"))
	require.True(t, ok)
	assert.Equal(t, 2, entry.Count)
}

func TestHandleMessage_TextCommandNoRepeat(t *testing.T) {
	reg := commands.NewDefaultRegistry()
	require.NoError(t, reg.Register(&commands.Command{
		Name:      "dance",
		Aliases:   []string{"boogie"},
		Responses: []string{"💃 {user} spins", "🕺 {user} slides"},
	}))
	b := newTestBot(t, reg)

	b.handler.HandleMessage(b.session, message("$sudo dance"))
	b.handler.HandleMessage(b.session, message("$sudo BOOGIE now"))
	b.handler.HandleMessage(b.session, message("$sudo dance"))

	require.Len(t, b.session.Replies, 3)
	assert.NotEqual(t, b.session.Replies[0], b.session.Replies[1])
	assert.NotEqual(t, b.session.Replies[1], b.session.Replies[2])
	assert.Contains(t, []string{"💃 alice spins", "🕺 alice slides"}, b.session.Replies[0])

	// Text commands never enter the escalation memory
	assert.Zero(t, b.handler.cfg.Responder.Memory().Len())
}

func TestHandleMessage_UnknownHandlerUsesResponses(t *testing.T) {
	reg := commands.NewRegistry()
	require.NoError(t, reg.Register(&commands.Command{
		Name:      "ping",
		Handler:   "nope",
		Responses: []string{"pong"},
	}))
	b := newTestBot(t, reg)

	b.handler.HandleMessage(b.session, message("$sudo ping"))

	assert.Equal(t, []string{"pong"}, b.session.Replies)
}

func TestHandleMessage_HandlerPanicReplies(t *testing.T) {
	TextCommandHandlers["explode"] = func(h *Handler, s Session, m *discordgo.MessageCreate, cmd *commands.Command, args []string) {
		panic("boom")
	}
	defer delete(TextCommandHandlers, "explode")

	reg := commands.NewRegistry()
	require.NoError(t, reg.Register(&commands.Command{Name: "explode", Handler: "explode"}))
	b := newTestBot(t, reg)

	assert.NotPanics(t, func() {
		b.handler.HandleMessage(b.session, message("$sudo explode"))
	})
	assert.Equal(t, []string{"There was an error executing that command."}, b.session.Replies)
}

func TestHandleMessage_RecordsUsage(t *testing.T) {
	b := newTestBot(t, nil)

	b.handler.HandleMessage(b.session, message("$sudo make coffee"))
	b.handler.HandleMessage(b.session, message("$sudo reboot"))
	b.handler.HandleMessage(b.session, message("$sudo hack"))

	top, err := b.usage.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []cache.Usage{{Command: "sudo", Count: 2}, {Command: "hack", Count: 1}}, top)
}

func TestHandleMessage_DirectMessage(t *testing.T) {
	b := newTestBot(t, nil)

	m := message("$sudo make coffee")
	m.GuildID = ""
	b.handler.HandleMessage(b.session, m)

	_, ok := b.handler.cfg.Responder.Memory().Lookup(escalation.NewKey("u1", escalation.DMContext, "make coffee"))
	assert.True(t, ok)
}

func TestHandleMessage_PunctuationPrefix(t *testing.T) {
	b := newTestBot(t, nil)
	b.handler.cfg.Prefix = "!"

	b.handler.HandleMessage(b.session, message("!make coffee"))

	require.Len(t, b.session.Replies, 1)
	_, ok := b.handler.cfg.Responder.Memory().Lookup(escalation.NewKey("u1", "g1", "make coffee"))
	assert.True(t, ok)
}

func TestHandleMessage_UsesGlobalName(t *testing.T) {
	b := newTestBot(t, nil)

	m := message("$sudo make coffee")
	m.Author.GlobalName = "Alice A."
	b.handler.HandleMessage(b.session, m)

	require.Len(t, b.session.Replies, 1)
	vars := responses.Vars{User: "Alice A.", Command: "make coffee"}
	assert.Contains(t, rendered(b.catalog.Pool("make coffee", 1), vars), b.session.Replies[0])
}

func TestCutPrefix(t *testing.T) {
	tests := []struct {
		content string
		prefix  string
		rest    string
		ok      bool
	}{
		{"$sudo make coffee", "$sudo", "make coffee", true},
		{"$SUDO   x  ", "$sudo", "x", true},
		{"$sudo", "$sudo", "", true},
		{"$sudoku", "$sudo", "", false},
		{"sudo x", "$sudo", "", false},
		{"$su", "$sudo", "", false},
		{"!ping", "!", "ping", true},
		{"! ping ", "!", "ping", true},
		{"?ping", "!", "", false},
		{"s!dance", "s!", "dance", true},
		{"S!dance", "s!", "dance", true},
		{"sudo7x", "sudo7", "", false},
	}

	for _, tt := range tests {
		rest, ok := cutPrefix(tt.content, tt.prefix)
		assert.Equal(t, tt.ok, ok, tt.content)
		assert.Equal(t, tt.rest, rest, tt.content)
	}
}
