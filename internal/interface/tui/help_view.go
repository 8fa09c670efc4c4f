package tui

import (
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = chatView
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
` + appTitle + ` - Help
═══════════════════════

CHAT
────
  Enter            Send message
  Alt+Enter        New line
  PgUp/PgDn        Scroll conversation
  Ctrl+N           Start a new conversation
  Ctrl+S           Browse conversations
  Ctrl+Y           Copy the last reply
  Ctrl+G           Search an address
  Esc              Dismiss error
  Ctrl+C           Quit

COMMANDS
────────
  /image <path>        Attach an image (max 5 MB) to the next message
  /noimage             Remove the attached image
  /address [query]     Search an address and use it as your location
  /location <lat> <lng> Set your location directly
  /new                 Start a new conversation
  /sessions            Browse conversations
  /copy                Copy the last reply
  /help                Show this help

CONVERSATIONS
─────────────
  Enter        Open conversation
  n            New conversation
  d            Delete (asks y/n)
  r            Refresh
  esc          Back to chat

Press any key to return to the chat
`

	return helpStyle.Render(help)
}

// expandHome resolves a leading ~ in user-typed paths
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
