package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/geo"
)

const addressDebounce = 300 * time.Millisecond

func (m Model) openAddressSearch(query string) (tea.Model, tea.Cmd) {
	if m.places == nil || m.locations == nil {
		m.errText = "Address search needs a Kakao REST API key (KAKAO_REST_API_KEY)"
		return m, nil
	}

	m.mode = addressView
	m.input.Blur()
	m.addressInput.SetValue(query)
	m.addressInput.CursorEnd()
	m.addressResults = nil
	m.addressErr = nil
	m.addressSelected = 0

	focus := m.addressInput.Focus()
	search := m.queueAddressSearch()
	return m, tea.Batch(focus, search)
}

// queueAddressSearch bumps the search sequence and debounces a lookup.
// Responses for older sequences are discarded.
func (m *Model) queueAddressSearch() tea.Cmd {
	m.addressSeq++
	query := strings.TrimSpace(m.addressInput.Value())
	if utf8.RuneCountInString(query) < geo.MinQueryLength {
		m.addressResults = nil
		m.addressErr = nil
		m.searching = false
		return nil
	}
	return debounceAddress(m.addressSeq, query)
}

func (m Model) closeAddressSearch() Model {
	m.mode = chatView
	m.addressSeq++ // Drop in-flight results
	m.addressInput.Blur()
	m.input.Focus()
	return m
}

func (m Model) updateAddress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeAddressSearch(), nil

	case "enter":
		if len(m.addressResults) == 0 {
			if strings.TrimSpace(m.addressInput.Value()) == "" {
				m.addressErr = geo.ErrEmptyQuery
			}
			return m, nil
		}
		place := m.addressResults[m.addressSelected]
		m = m.closeAddressSearch()
		return m, selectPlace(m.locations, place)

	case "down", "ctrl+j":
		if m.addressSelected < len(m.addressResults)-1 {
			m.addressSelected++
		}
		return m, nil

	case "up":
		if m.addressSelected > 0 {
			m.addressSelected--
		}
		return m, nil
	}

	before := m.addressInput.Value()
	var cmd tea.Cmd
	m.addressInput, cmd = m.addressInput.Update(msg)
	if m.addressInput.Value() == before {
		return m, cmd
	}
	search := m.queueAddressSearch()
	return m, tea.Batch(cmd, search)
}

func (m Model) viewAddress() string {
	var b strings.Builder

	b.WriteString(searchHeaderStyle.Render("Address: "))
	b.WriteString(m.addressInput.View())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(m.width, 80), 10)))
	b.WriteString("\n\n")

	query := strings.TrimSpace(m.addressInput.Value())
	switch {
	case m.addressErr != nil:
		msg := "Search failed: " + m.addressErr.Error()
		if errors.Is(m.addressErr, geo.ErrEmptyQuery) {
			msg = "Enter an address to search"
		}
		b.WriteString(errorStyle.Render(msg))
	case utf8.RuneCountInString(query) < geo.MinQueryLength:
		b.WriteString(searchMetaStyle.Render("Type an address (minimum 2 characters)"))
	case m.searching && m.addressResults == nil:
		b.WriteString(searchMetaStyle.Render("Searching..."))
	case len(m.addressResults) == 0:
		b.WriteString(searchMetaStyle.Render("No matching addresses"))
	default:
		for i, p := range m.addressResults {
			line := fmt.Sprintf("%s  %s", p.Address, searchMetaStyle.Render(fmt.Sprintf("(%.5f, %.5f)", p.Lat, p.Lng)))
			if i == m.addressSelected {
				b.WriteString("► " + searchSelectedStyle.Render(p.Address) + "\n")
				continue
			}
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑↓: choose | Enter: use this address | esc: back"))
	return b.String()
}
