package bubbletea_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/relay"
	bt "github.com/fwojciec/relay/bubbletea"
	"github.com/fwojciec/relay/mock"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, chat relay.Chat, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithSize(t, chat, 80, 24, opts...)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, chat relay.Chat, width, height int, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(chat, relay.DefaultTheme(), opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// typeText sets the input value as if the user typed it.
func typeText(m bt.Model, text string) bt.Model {
	m.Input.SetValue(text)
	return m
}

// staticChat returns a chat whose Snapshot always returns snap.
func staticChat(snap relay.Snapshot) *mock.Chat {
	return &mock.Chat{
		SnapshotFn: func() relay.Snapshot { return snap },
	}
}

func userMsg(text string) relay.Message {
	return relay.Message{Role: relay.RoleUser, Content: text}
}

func assistantMsg(text string) relay.Message {
	return relay.Message{Role: relay.RoleAssistant, Content: text}
}
