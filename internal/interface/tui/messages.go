package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

// Coordinator is what the TUI drives. Every call runs inside a tea.Cmd so
// Update never blocks on the network.
type Coordinator interface {
	ResolveActiveSession(ctx context.Context) error
	CreateSession(ctx context.Context) error
	SwitchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	SendMessage(ctx context.Context, text string) error
	AttachImage(path string) error
	RemoveImage()
	InputActivity()
}

// AddressSearcher resolves address queries
type AddressSearcher interface {
	Search(ctx context.Context, query string) ([]geo.Place, error)
}

// LocationStore persists the locations attached to outbound messages
type LocationStore interface {
	SetLocation(ctx context.Context, lat, lng float64) (models.Location, error)
	SelectPlace(ctx context.Context, p geo.Place) (models.AddressLocation, error)
	SavedAddress(ctx context.Context) (*models.AddressLocation, error)
}

const opTimeout = 30 * time.Second

// opDoneMsg reports a finished coordinator call. The coordinator already
// rendered any user-facing error.
type opDoneMsg struct {
	op  string
	err error
}

type noticeMsg string

type addressDebounceMsg struct {
	seq   int
	query string
}

type addressResultsMsg struct {
	seq    int
	places []geo.Place
	err    error
}

type savedAddressMsg struct {
	address string
}

type placeSelectedMsg struct {
	saved models.AddressLocation
	err   error
}

type locationSetMsg struct {
	loc models.Location
	err error
}

func runOp(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			logger.Debug("operation failed", "op", op, "err", err)
		}
		return opDoneMsg{op: op, err: err}
	}
}

func startup(c Coordinator) tea.Cmd {
	return runOp("startup", c.ResolveActiveSession)
}

func createSession(c Coordinator) tea.Cmd {
	return runOp("create", c.CreateSession)
}

func switchSession(c Coordinator, id string) tea.Cmd {
	return runOp("switch", func(ctx context.Context) error {
		return c.SwitchSession(ctx, id)
	})
}

func deleteSession(c Coordinator, id string) tea.Cmd {
	return runOp("delete", func(ctx context.Context) error {
		return c.DeleteSession(ctx, id)
	})
}

func refreshSessions(c Coordinator) tea.Cmd {
	return runOp("list", func(ctx context.Context) error {
		_, err := c.ListSessions(ctx)
		return err
	})
}

func sendMessage(c Coordinator, text string) tea.Cmd {
	return runOp("send", func(ctx context.Context) error {
		return c.SendMessage(ctx, text)
	})
}

func attachImage(c Coordinator, path string) tea.Cmd {
	return runOp("attach", func(context.Context) error {
		return c.AttachImage(path)
	})
}

func removeImage(c Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.RemoveImage()
		return nil
	}
}

func inputActivity(c Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.InputActivity()
		return nil
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return noticeMsg("Clipboard unavailable: " + err.Error())
		}
		return noticeMsg("Reply copied to clipboard")
	}
}

// debounceAddress waits before searching so every keystroke doesn't hit the API
func debounceAddress(seq int, query string) tea.Cmd {
	return tea.Tick(addressDebounce, func(time.Time) tea.Msg {
		return addressDebounceMsg{seq: seq, query: query}
	})
}

func searchAddress(s AddressSearcher, seq int, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		places, err := s.Search(ctx, query)
		return addressResultsMsg{seq: seq, places: places, err: err}
	}
}

func loadSavedAddress(s LocationStore) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		saved, err := s.SavedAddress(ctx)
		if err != nil || saved == nil {
			return nil
		}
		return savedAddressMsg{address: saved.Address}
	}
}

func selectPlace(s LocationStore, p geo.Place) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		saved, err := s.SelectPlace(ctx, p)
		return placeSelectedMsg{saved: saved, err: err}
	}
}

func setLocation(s LocationStore, latStr, lngStr string) tea.Cmd {
	return func() tea.Msg {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			return locationSetMsg{err: errBadCoordinates}
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		loc, err := s.SetLocation(ctx, lat, lng)
		return locationSetMsg{loc: loc, err: err}
	}
}
