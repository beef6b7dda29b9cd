package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders the entry that terminated a failed or cancelled reply
// under the assistant label. The text already carries its "Error: " prefix.
type ErrorBlock struct {
	text   string
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(text string, styles Styles) *ErrorBlock {
	return &ErrorBlock{text: text, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render(b.text)
	return b.styles.Accent.Render(assistantLabel) + "\n" +
		lipgloss.NewStyle().Width(width).Render(content)
}
