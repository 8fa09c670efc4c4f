package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/models"
)

type sessionListItem struct {
	session models.Session
	total   int
	active  bool
}

func (i sessionListItem) FilterValue() string {
	return i.Title()
}

func (i sessionListItem) Title() string {
	return i.session.Title(i.total)
}

func (i sessionListItem) Description() string {
	desc := fmt.Sprintf("%d messages", i.session.MessageCount)
	if i.session.MessageCount == 1 {
		desc = "1 message"
	}
	if i.active {
		desc += " • current"
	}
	return desc
}

// sessionDelegate highlights the active session
type sessionDelegate struct {
	list.DefaultDelegate
}

func (d sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	s, ok := item.(sessionListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := s.Title()
	desc := s.Description()

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case s.active:
		title = itemStyle.Inherit(activeItemStyle).Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	_, _ = fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createSessionList(sessions []models.Session, activeID string, width, height int) list.Model {
	items := make([]list.Item, len(sessions))
	selected := 0
	for i, s := range sessions {
		items[i] = sessionListItem{session: s, total: len(sessions), active: s.ID == activeID}
		if s.ID == activeID {
			selected = i
		}
	}

	delegate := sessionDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.Select(selected)

	return l
}

func (m Model) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Pending delete takes the next key as the answer
	if m.confirmDelete != "" {
		id := m.confirmDelete
		m.confirmDelete = ""
		switch strings.ToLower(msg.String()) {
		case "y":
			return m, deleteSession(m.coord, id)
		default:
			m.notice = "Delete cancelled"
			return m, nil
		}
	}

	switch msg.String() {
	case "esc", "q":
		m.mode = chatView
		return m, nil

	case "enter":
		if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
			m.mode = chatView
			return m, switchSession(m.coord, selected.session.ID)
		}
		return m, nil

	case "n":
		m.mode = chatView
		return m, createSession(m.coord)

	case "d", "delete":
		if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
			m.confirmDelete = selected.session.ID
			m.notice = ""
		}
		return m, nil

	case "r":
		return m, refreshSessions(m.coord)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewSessions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversations") + "\n\n")

	if len(m.sessions) == 0 {
		b.WriteString("No conversations yet. Press n to start one.\n")
	} else {
		b.WriteString(m.list.View() + "\n")
	}

	switch {
	case m.confirmDelete != "":
		title := m.confirmDelete
		if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
			title = selected.Title()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("Delete %s? (y/n)", title)))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	default:
		b.WriteString(helpStyle.Render("↑/k up • ↓/j down • enter open • n new • d delete • r refresh • esc back"))
	}

	return b.String()
}
