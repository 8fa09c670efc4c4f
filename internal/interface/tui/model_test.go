package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/neilberkman/medichat/internal/core/models"
)

type fakeCoordinator struct {
	mu       sync.Mutex
	calls    []string
	sent     []string
	attached []string
	deleted  []string
	switched []string
	block    chan struct{} // When set, SendMessage waits on it
}

func (f *fakeCoordinator) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCoordinator) ResolveActiveSession(context.Context) error {
	f.record("resolve")
	return nil
}

func (f *fakeCoordinator) CreateSession(context.Context) error {
	f.record("create")
	return nil
}

func (f *fakeCoordinator) SwitchSession(_ context.Context, id string) error {
	f.record("switch")
	f.mu.Lock()
	f.switched = append(f.switched, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeCoordinator) DeleteSession(_ context.Context, id string) error {
	f.record("delete")
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeCoordinator) ListSessions(context.Context) ([]models.Session, error) {
	f.record("list")
	return nil, nil
}

func (f *fakeCoordinator) SendMessage(_ context.Context, text string) error {
	if f.block != nil {
		<-f.block
	}
	f.record("send")
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeCoordinator) AttachImage(path string) error {
	f.record("attach")
	f.mu.Lock()
	f.attached = append(f.attached, path)
	f.mu.Unlock()
	return nil
}

func (f *fakeCoordinator) RemoveImage() { f.record("remove") }

func (f *fakeCoordinator) InputActivity() { f.record("activity") }

func (f *fakeCoordinator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePlaces struct {
	places []geo.Place
}

func (f fakePlaces) Search(_ context.Context, query string) ([]geo.Place, error) {
	return f.places, nil
}

type fakeLocations struct {
	mu       sync.Mutex
	selected []geo.Place
}

func (f *fakeLocations) SetLocation(_ context.Context, lat, lng float64) (models.Location, error) {
	return models.NewLocation(lat, lng, time.Now()), nil
}

func (f *fakeLocations) SelectPlace(_ context.Context, p geo.Place) (models.AddressLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, p)
	return models.AddressLocation{Lat: p.Lat, Lng: p.Lng, Address: p.Address}, nil
}

func (f *fakeLocations) SavedAddress(context.Context) (*models.AddressLocation, error) {
	return nil, nil
}

func newTestModel() (Model, *fakeCoordinator) {
	coord := &fakeCoordinator{}
	m := New(coord, Options{Welcome: "Welcome to the clinic", MaxInputChars: 2000})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), coord
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+y":
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestEnterSendsWithoutBlocking(t *testing.T) {
	m, coord := newTestModel()
	coord.block = make(chan struct{})
	m, _ = update(t, m, connectedMsg(true))
	m.input.SetValue("  is ibuprofen safe?  ")

	m, cmd := update(t, m, key("enter"))

	if coord.callCount() != 0 {
		t.Fatal("Update called the coordinator synchronously")
	}
	if m.input.Value() != "" {
		t.Error("input should be cleared after submit")
	}
	if cmd == nil {
		t.Fatal("expected a send command")
	}

	done := make(chan tea.Msg)
	go func() { done <- cmd() }()
	close(coord.block)

	select {
	case msg := <-done:
		if op, ok := msg.(opDoneMsg); !ok || op.op != "send" {
			t.Errorf("command returned %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send command never finished")
	}
	if len(coord.sent) != 1 || coord.sent[0] != "is ibuprofen safe?" {
		t.Errorf("sent %v", coord.sent)
	}
}

func TestEnterWhileDisconnectedKeepsInput(t *testing.T) {
	m, coord := newTestModel()
	m, _ = update(t, m, connectedMsg(false))
	m.input.SetValue("is ibuprofen safe?")

	m, cmd := update(t, m, key("enter"))

	if cmd != nil {
		t.Error("no send should be issued while disconnected")
	}
	if got := m.input.Value(); got != "is ibuprofen safe?" {
		t.Errorf("input after enter = %q, want it kept", got)
	}
	if !strings.Contains(m.errText, "Not connected") {
		t.Errorf("errText = %q", m.errText)
	}
	if coord.callCount() != 0 {
		t.Errorf("coordinator called %d times", coord.callCount())
	}

	// Once connected the same draft goes out
	m, _ = update(t, m, connectedMsg(true))
	m, cmd = update(t, m, key("enter"))
	if cmd == nil || m.input.Value() != "" {
		t.Fatal("draft should be sent after reconnecting")
	}
	cmd()
	if len(coord.sent) != 1 || coord.sent[0] != "is ibuprofen safe?" {
		t.Errorf("sent %v", coord.sent)
	}
}

func TestBlankEnterDoesNothing(t *testing.T) {
	m, _ := newTestModel()
	m.input.SetValue("   ")

	_, cmd := update(t, m, key("enter"))
	if cmd != nil {
		t.Error("blank input should not produce a command")
	}
}

func TestSlashCommands(t *testing.T) {
	m, coord := newTestModel()

	m.input.SetValue("/image /tmp/scan.png")
	m, cmd := update(t, m, key("enter"))
	cmd()
	if len(coord.attached) != 1 || coord.attached[0] != "/tmp/scan.png" {
		t.Errorf("attached %v", coord.attached)
	}

	m.input.SetValue("/noimage")
	m, cmd = update(t, m, key("enter"))
	cmd()

	m.input.SetValue("/bogus")
	m, cmd = update(t, m, key("enter"))
	if cmd != nil || !strings.Contains(m.errText, "Unknown command") {
		t.Errorf("unknown command: errText = %q", m.errText)
	}

	m.input.SetValue("/location 37.5 abc")
	m, _ = update(t, m, key("enter"))
	if m.errText == "" {
		t.Error("/location without a store should report an error")
	}

	m.input.SetValue("/help")
	m, _ = update(t, m, key("enter"))
	if m.mode != helpView {
		t.Error("/help should open help")
	}
	m, _ = update(t, m, key("x"))
	if m.mode != chatView {
		t.Error("any key should leave help")
	}

	if coord.calls[len(coord.calls)-1] != "remove" {
		t.Errorf("calls = %v", coord.calls)
	}
}

func TestDisplayMessagesRender(t *testing.T) {
	m, _ := newTestModel()

	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleUser, Content: "stale"}})
	m, _ = update(t, m, resetMsg{})
	if len(m.messages) != 0 {
		t.Fatal("reset should clear messages")
	}

	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleUser, Content: "I have a cold"}})
	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleAssistant, Content: "Rest and drink fluids"}})
	m, _ = update(t, m, connectedMsg(true))
	m, _ = update(t, m, typingMsg(true))
	m, _ = update(t, m, attachmentMsg("scan.png (1.0 kB)"))
	m, _ = update(t, m, errorMsg("Connection problem"))

	view := m.View()
	for _, want := range []string{"Welcome to the clinic", "I have a cold", "Rest and drink fluids", "connected", "typing", "scan.png", "Connection problem", "0/2000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = update(t, m, key("esc"))
	if m.errText != "" {
		t.Error("esc should dismiss the error")
	}
}

func TestLoadingStartsSpinner(t *testing.T) {
	m, _ := newTestModel()

	m, cmd := update(t, m, loadingMsg(true))
	if !m.loading || cmd == nil {
		t.Error("loading should start the spinner")
	}
	if !strings.Contains(m.View(), "Waiting for a reply") {
		t.Error("loading indicator not shown")
	}

	m, _ = update(t, m, loadingMsg(false))
	if m.loading {
		t.Error("loading should be off")
	}
}

func TestCopyLastReply(t *testing.T) {
	m, _ := newTestModel()

	m, cmd := update(t, m, key("ctrl+y"))
	if cmd != nil || m.notice == "" {
		t.Error("nothing to copy should only show a notice")
	}

	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleAssistant, Content: "first"}})
	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleAssistant, Content: " second "}})
	m, _ = update(t, m, appendMsg{msg: models.Message{Role: models.RoleUser, Content: "thanks"}})

	reply, ok := m.lastAssistantReply()
	if !ok || reply != "second" {
		t.Errorf("lastAssistantReply() = %q, %v", reply, ok)
	}
	if _, cmd := update(t, m, key("ctrl+y")); cmd == nil {
		t.Error("expected a clipboard command")
	}
}

func TestSessionListDeleteConfirmation(t *testing.T) {
	m, coord := newTestModel()

	m, cmd := update(t, m, key("ctrl+s"))
	if m.mode != sessionsView || cmd == nil {
		t.Fatal("ctrl+s should open the session list and refresh it")
	}

	sessions := []models.Session{{ID: "c", MessageCount: 4, Order: 0}, {ID: "b", Order: 1}, {ID: "a", MessageCount: 1, Order: 2}}
	m, _ = update(t, m, sessionsMsg{sessions: sessions, activeID: "c"})

	view := m.View()
	for _, want := range []string{"Conversation 3", "Conversation 1", "4 messages", "1 message", "current"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q", want)
		}
	}

	// d then n cancels
	m, _ = update(t, m, key("d"))
	if m.confirmDelete != "c" || !strings.Contains(m.View(), "(y/n)") {
		t.Fatalf("expected confirmation prompt, confirmDelete = %q", m.confirmDelete)
	}
	m, cmd = update(t, m, key("n"))
	if cmd != nil || m.confirmDelete != "" {
		t.Error("n should cancel the delete")
	}

	// d then y deletes
	m, _ = update(t, m, key("d"))
	m, cmd = update(t, m, key("y"))
	if cmd == nil {
		t.Fatal("y should delete")
	}
	cmd()
	if len(coord.deleted) != 1 || coord.deleted[0] != "c" {
		t.Errorf("deleted %v", coord.deleted)
	}

	// enter switches and returns to chat
	m, _ = update(t, m, key("down"))
	m, cmd = update(t, m, key("enter"))
	if m.mode != chatView || cmd == nil {
		t.Fatal("enter should switch and return to chat")
	}
	cmd()
	if len(coord.switched) != 1 || coord.switched[0] != "b" {
		t.Errorf("switched %v", coord.switched)
	}
}

func TestAddressSearch(t *testing.T) {
	coord := &fakeCoordinator{}
	locs := &fakeLocations{}
	places := fakePlaces{places: []geo.Place{
		{Address: "서울 중구 태평로1가 31", Lat: 37.5663, Lng: 126.9778},
		{Address: "서울 중구 세종대로 110", Lat: 37.5665, Lng: 126.978},
	}}
	m := New(coord, Options{Places: places, Locations: locs, MaxInputChars: 2000})

	m.input.SetValue("/address 서")
	m, _ = update(t, m, key("enter"))
	if m.mode != addressView {
		t.Fatal("/address should open the address search")
	}
	seq := m.addressSeq

	// One character is below the minimum; typing a second queues a search
	m, cmd := update(t, m, key("울"))
	if cmd == nil || m.addressSeq == seq {
		t.Fatal("a two-character query should queue a search")
	}

	// A stale debounce is ignored, the current one searches
	m, cmd = update(t, m, addressDebounceMsg{seq: m.addressSeq - 1, query: "서"})
	if cmd != nil {
		t.Error("stale debounce should not search")
	}
	m, cmd = update(t, m, addressDebounceMsg{seq: m.addressSeq, query: "서울"})
	if cmd == nil {
		t.Fatal("current debounce should search")
	}
	m, _ = update(t, m, cmd())
	if len(m.addressResults) != 2 {
		t.Fatalf("results = %v", m.addressResults)
	}

	// Results from an older sequence are discarded
	m, _ = update(t, m, addressResultsMsg{seq: m.addressSeq - 1, places: nil})
	if len(m.addressResults) != 2 {
		t.Error("stale results replaced current ones")
	}

	m, _ = update(t, m, key("down"))
	m, cmd = update(t, m, key("enter"))
	if m.mode != chatView || cmd == nil {
		t.Fatal("enter should pick the address")
	}
	m, _ = update(t, m, cmd())
	if len(locs.selected) != 1 || locs.selected[0].Address != "서울 중구 세종대로 110" {
		t.Errorf("selected %v", locs.selected)
	}
	if m.address != "서울 중구 세종대로 110" {
		t.Errorf("header address = %q", m.address)
	}
}

func TestAddressSearchUnavailable(t *testing.T) {
	m, _ := newTestModel()

	m.input.SetValue("/address seoul")
	m, _ = update(t, m, key("enter"))
	if m.mode != chatView || m.errText == "" {
		t.Error("address search without a key should explain itself")
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

	if got := formatTime(time.Time{}, now); got != "now" {
		t.Errorf("zero time = %q, want now", got)
	}
	if got := formatTime(now.Add(-5*time.Minute), now); got != "5 minutes ago" {
		t.Errorf("5 minutes = %q", got)
	}
	old := now.Add(-72 * time.Hour)
	if got := formatTime(old, now); got != old.Local().Format("2006-01-02 15:04") {
		t.Errorf("3 days = %q", got)
	}
}

type collectSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *collectSender) Send(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collectSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestBridgePreservesOrder(t *testing.T) {
	b := NewBridge()
	sender := &collectSender{}

	// Posting before Run must not block
	b.ResetToWelcome()
	for i := 0; i < 200; i++ {
		b.AppendMessage(models.Message{Content: string(rune('a' + i%26))})
	}
	b.ShowError("boom")

	b.Run(sender)
	defer b.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 202 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sender.count() != 202 {
		t.Fatalf("delivered %d messages, want 202", sender.count())
	}

	if _, ok := sender.msgs[0].(resetMsg); !ok {
		t.Errorf("first message = %#v", sender.msgs[0])
	}
	for i := 1; i <= 200; i++ {
		got := sender.msgs[i].(appendMsg).msg.Content
		if want := string(rune('a' + (i-1)%26)); got != want {
			t.Fatalf("message %d = %q, want %q", i, got, want)
		}
	}
	if e, ok := sender.msgs[201].(errorMsg); !ok || string(e) != "boom" {
		t.Errorf("last message = %#v", sender.msgs[201])
	}
}

func TestExpandHome(t *testing.T) {
	if got := expandHome("/abs/path.png"); got != "/abs/path.png" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := expandHome("~/scan.png"); strings.HasPrefix(got, "~") {
		t.Errorf("home not expanded: %q", got)
	}
}
