package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders assistant text as plain wrapped paragraphs.
type AssistantTextBlock struct {
	text   string
	styles Styles
}

// NewAssistantTextBlock creates a block for assistant text.
func NewAssistantTextBlock(text string, styles Styles) *AssistantTextBlock {
	return &AssistantTextBlock{text: text, styles: styles}
}

func (b *AssistantTextBlock) View(width int) string {
	if strings.TrimSpace(b.text) == "" {
		return ""
	}
	return b.styles.Accent.Render(assistantLabel) + "\n" +
		lipgloss.NewStyle().Width(width).Render(b.text)
}
