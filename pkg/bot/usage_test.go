package bot

import (
	"context"
	"testing"

	"sudobot/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Incr(ctx context.Context, command string) error {
	return m.Called(ctx, command).Error(0)
}

func (m *MockCounter) Top(ctx context.Context, n int) ([]cache.Usage, error) {
	args := m.Called(ctx, n)
	usage, _ := args.Get(0).([]cache.Usage)
	return usage, args.Error(1)
}

func (m *MockCounter) Close() error {
	return nil
}

func TestUsageCounterFailuresAreIgnored(t *testing.T) {
	b := newTestBot(t, nil)
	counter := &MockCounter{}
	counter.On("Incr", mock.Anything, "sudo").Return(errMock)
	counter.On("Top", mock.Anything, 5).Return(nil, errMock)
	b.handler.cfg.Usage = counter

	b.handler.HandleMessage(b.session, message("$sudo make coffee"))
	require.Len(t, b.session.Replies, 1)

	b.handler.HandleInteraction(b.session, slashInteraction("status"))
	require.Len(t, b.session.Interactions, 1)

	var topCommands string
	for _, f := range b.session.Interactions[0].Data.Embeds[0].Fields {
		if f.Name == "Top Commands" {
			topCommands = f.Value
		}
	}
	assert.Equal(t, "unavailable", topCommands)
	counter.AssertExpectations(t)
}

func TestUsageSummary_Formats(t *testing.T) {
	b := newTestBot(t, nil)
	counter := &MockCounter{}
	counter.On("Top", mock.Anything, 5).Return([]cache.Usage{{Command: "sudo", Count: 12}, {Command: "hack", Count: 3}}, nil)
	b.handler.cfg.Usage = counter

	assert.Equal(t, "`sudo` × 12\n`hack` × 3", b.handler.usageSummary())
}
