// Package bubbletea provides a Bubble Tea TUI over a relay.Chat.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/relay"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SnapshotMsg delivers a snapshot pulled from Stream.
type SnapshotMsg struct {
	Stream   relay.Stream
	Snapshot relay.Snapshot
}

// StreamDoneMsg signals that Stream has no more snapshots. Err is nil when
// the stream ended normally; failures reported inside the conversation are
// not repeated here.
type StreamDoneMsg struct {
	Stream relay.Stream
	Err    error
}
