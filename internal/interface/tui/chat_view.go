package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/medichat/internal/core/models"
)

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submit()

	case "esc":
		m.errText = ""
		m.notice = ""
		return m, nil

	case "ctrl+n":
		return m, createSession(m.coord)

	case "ctrl+s":
		m.mode = sessionsView
		m.confirmDelete = ""
		return m, refreshSessions(m.coord)

	case "ctrl+y":
		reply, ok := m.lastAssistantReply()
		if !ok {
			m.notice = "No reply to copy yet"
			return m, nil
		}
		return m, copyToClipboard(reply)

	case "ctrl+g":
		return m.openAddressSearch("")

	case "f1":
		m.mode = helpView
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, inputActivity(m.coord))
	}
	return m, cmd
}

// submit sends the input, or runs it as a slash command
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	isCommand := strings.HasPrefix(text, "/")
	// Keep the draft while offline so nothing typed is lost
	if !isCommand && !m.connected {
		m.notice = ""
		m.errText = "Not connected. Your message was kept, send it again once connected."
		return m, nil
	}
	m.input.Reset()
	m.errText = ""
	m.notice = ""

	if isCommand {
		return m.runCommand(text)
	}
	return m, sendMessage(m.coord, text)
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/image":
		if arg == "" {
			m.errText = "usage: /image <path>"
			return m, nil
		}
		return m, attachImage(m.coord, expandHome(arg))

	case "/noimage":
		return m, removeImage(m.coord)

	case "/address":
		return m.openAddressSearch(arg)

	case "/location":
		if m.locations == nil {
			m.errText = "Location storage is unavailable"
			return m, nil
		}
		fields := strings.Fields(arg)
		if len(fields) != 2 {
			m.errText = errBadCoordinates.Error()
			return m, nil
		}
		return m, setLocation(m.locations, fields[0], fields[1])

	case "/new":
		return m, createSession(m.coord)

	case "/sessions":
		m.mode = sessionsView
		return m, refreshSessions(m.coord)

	case "/copy":
		if reply, ok := m.lastAssistantReply(); ok {
			return m, copyToClipboard(reply)
		}
		m.notice = "No reply to copy yet"
		return m, nil

	case "/help":
		m.mode = helpView
		return m, nil
	}

	m.errText = fmt.Sprintf("Unknown command %s (try /help)", name)
	return m, nil
}

// refreshViewport re-renders the conversation and keeps it pinned to the
// newest message
func (m Model) refreshViewport() Model {
	m.viewport.SetContent(renderConversation(m.welcome, m.messages, m.width, time.Now()))
	m.viewport.GotoBottom()
	return m
}

func renderConversation(welcome string, messages []models.Message, width int, now time.Time) string {
	var b strings.Builder

	wrapWidth := width - 4
	if wrapWidth < 40 {
		wrapWidth = 40
	}

	if welcome != "" {
		b.WriteString(welcomeStyle.Render(wordwrap.String(welcome, wrapWidth)))
		b.WriteString("\n\n")
	}

	for _, msg := range messages {
		var style lipgloss.Style
		var label string

		switch msg.Role {
		case models.RoleUser:
			style = userStyle
			label = "YOU"
		case models.RoleAssistant:
			style = assistantStyle
			label = "DOCTOR"
		default:
			style = lipgloss.NewStyle()
			label = strings.ToUpper(string(msg.Role))
		}

		b.WriteString(style.Render(fmt.Sprintf("▸ %s", label)))
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(formatTime(msg.Timestamp, now)))
		b.WriteString("\n")

		if len(msg.Image) > 0 {
			b.WriteString(timestampStyle.Render(fmt.Sprintf("[image, %s]", humanize.Bytes(uint64(len(msg.Image))))))
			b.WriteString("\n")
		}

		b.WriteString(wordwrap.String(msg.Content, wrapWidth))
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatTime renders a message time: relative within a day, a date beyond
// that, and "now" when the backend gave none
func formatTime(t, now time.Time) string {
	if t.IsZero() {
		return "now"
	}
	if now.Sub(t) < 24*time.Hour {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	return t.Local().Format("2006-01-02 15:04")
}

func (m Model) viewChat() string {
	var b strings.Builder

	// Header
	status := disconnectedStyle.Render("○ connecting")
	if m.connected {
		status = connectedStyle.Render("● connected")
	}
	header := titleStyle.Render(appTitle) + "  " + status
	if m.address != "" {
		header += "  " + timestampStyle.Render("📍 "+m.address)
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(m.width, 10)) + "\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Status lines
	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Waiting for a reply...")
	case m.typing:
		b.WriteString(timestampStyle.Render("The doctor is typing..."))
	}
	b.WriteString("\n")

	if m.attachment != "" {
		b.WriteString(noticeStyle.Render("📎 " + m.attachment + "  (/noimage to remove)"))
	}
	b.WriteString("\n")

	switch {
	case m.errText != "":
		b.WriteString(errorStyle.Render(m.errText) + timestampStyle.Render("  esc to dismiss"))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")

	counter := fmt.Sprintf("%d/%d", utf8.RuneCountInString(m.input.Value()), m.maxChars)
	b.WriteString(helpStyle.Render(counter + "  enter: send • ctrl+s: conversations • ctrl+n: new • ctrl+y: copy reply • ctrl+g: address • f1: help"))

	return b.String()
}
