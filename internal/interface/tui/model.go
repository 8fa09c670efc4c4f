// Package tui is the interactive chat client
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/config"
	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/neilberkman/medichat/internal/core/models"
)

type viewMode int

const (
	chatView viewMode = iota
	sessionsView
	addressView
	helpView
)

const appTitle = config.AppName

var errBadCoordinates = errors.New("usage: /location <lat> <lng>")

// Options configures the model
type Options struct {
	Welcome       string
	MaxInputChars int
	Places        AddressSearcher // nil disables address search
	Locations     LocationStore   // nil disables location commands
}

type Model struct {
	coord     Coordinator
	places    AddressSearcher
	locations LocationStore
	welcome   string
	maxChars  int

	mode   viewMode
	width  int
	height int

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Chat state, as rendered by the coordinator
	messages   []models.Message
	connected  bool
	typing     bool
	loading    bool
	attachment string
	errText    string
	notice     string
	address    string // Saved address, shown in the header

	// Session list
	list          list.Model
	sessions      []models.Session
	activeID      string
	confirmDelete string // Session awaiting y/n

	// Address search
	addressInput    textinput.Model
	addressSeq      int
	addressResults  []geo.Place
	addressSelected int
	addressErr      error
	searching       bool
}

func New(coord Coordinator, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about a medicine..."
	ta.ShowLineNumbers = false
	ta.CharLimit = opts.MaxInputChars
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "Road name or lot address"
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		coord:        coord,
		places:       opts.Places,
		locations:    opts.Locations,
		welcome:      opts.Welcome,
		maxChars:     opts.MaxInputChars,
		mode:         chatView,
		input:        ta,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		list:         createSessionList(nil, "", 80, 20),
		addressInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, startup(m.coord)}
	if m.locations != nil {
		cmds = append(cmds, loadSavedAddress(m.locations))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// Mode-specific key handling
		switch m.mode {
		case chatView:
			return m.updateChat(msg)
		case sessionsView:
			return m.updateSessions(msg)
		case addressView:
			return m.updateAddress(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case tea.MouseMsg:
		if m.mode == chatView {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	// Display bridge
	case resetMsg:
		m.messages = nil
		m = m.refreshViewport()
		return m, nil

	case appendMsg:
		m.messages = append(m.messages, msg.msg)
		m = m.refreshViewport()
		return m, nil

	case sessionsMsg:
		m.sessions = msg.sessions
		m.activeID = msg.activeID
		m.list = createSessionList(msg.sessions, msg.activeID, m.width, m.listHeight())
		return m, nil

	case connectedMsg:
		m.connected = bool(msg)
		return m, nil

	case typingMsg:
		m.typing = bool(msg)
		return m, nil

	case loadingMsg:
		wasLoading := m.loading
		m.loading = bool(msg)
		if m.loading && !wasLoading {
			return m, m.spinner.Tick
		}
		return m, nil

	case attachmentMsg:
		m.attachment = string(msg)
		return m, nil

	case errorMsg:
		m.errText = string(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case opDoneMsg:
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case savedAddressMsg:
		m.address = msg.address
		return m, nil

	case addressDebounceMsg:
		if msg.seq != m.addressSeq || m.places == nil {
			return m, nil
		}
		m.searching = true
		return m, searchAddress(m.places, msg.seq, msg.query)

	case addressResultsMsg:
		if msg.seq != m.addressSeq {
			return m, nil
		}
		m.searching = false
		m.addressResults = msg.places
		m.addressErr = msg.err
		m.addressSelected = 0
		return m, nil

	case placeSelectedMsg:
		if msg.err != nil {
			m.errText = "Could not save the address: " + msg.err.Error()
			return m, nil
		}
		m.address = msg.saved.Address
		m.notice = "Location set to " + msg.saved.Address
		return m, nil

	case locationSetMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.notice = "Location updated"
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	switch m.mode {
	case sessionsView:
		return m.viewSessions()
	case addressView:
		return m.viewAddress()
	case helpView:
		return m.viewHelp()
	}
	return m.viewChat()
}

// layout sizes every widget to the window
func (m Model) layout() Model {
	m.input.SetWidth(m.width)
	m.viewport.Width = m.width
	m.viewport.Height = m.chatHeight()
	m.list.SetSize(m.width, m.listHeight())
	m.addressInput.Width = max(m.width-20, 20)
	return m.refreshViewport()
}

// chatChrome is the header, status lines, input box and footer
const chatChrome = 2 + 3 + 3 + 2

func (m Model) chatHeight() int {
	return max(m.height-chatChrome, 3)
}

func (m Model) listHeight() int {
	return max(m.height-3, 3)
}

// lastAssistantReply returns the most recent assistant message
func (m Model) lastAssistantReply() (string, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == models.RoleAssistant {
			return strings.TrimSpace(m.messages[i].Content), true
		}
	}
	return "", false
}
