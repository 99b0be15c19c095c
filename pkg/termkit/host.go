package termkit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/declui/pkg/loop"
	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/theme"
)

// KeyMap holds the host-level key bindings.
type KeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Activate key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns tab navigation, enter/space activation and ctrl+c
// to quit.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous")),
		Activate: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "activate")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// wakeMsg tells the host that posted tasks are waiting.
type wakeMsg struct{}

// HostOptions configures a Host.
type HostOptions struct {
	Logger   *slog.Logger
	Theme    theme.Theme
	Renderer *lipgloss.Renderer
	Keys     *KeyMap
}

// Host is the bubbletea model that owns a widget tree on the UI goroutine.
// It implements loop.Poster: posted tasks run inside Update.
type Host struct {
	log    *slog.Logger
	root   native.Widget
	styles theme.Styles
	keys   KeyMap
	zones  *zone.Manager
	tasks  *loop.Loop

	mu      sync.Mutex
	program *tea.Program

	focused       Interactive
	width, height int
}

var _ loop.Poster = (*Host)(nil)

// NewHost returns a host drawing root.
func NewHost(root native.Widget, opts HostOptions) *Host {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Theme.Name == "" {
		opts.Theme = theme.Default()
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	h := &Host{
		log:    opts.Logger,
		root:   root,
		styles: opts.Theme.Styles(opts.Renderer),
		keys:   keys,
		zones:  zone.New(),
		tasks:  loop.New(),
	}
	h.ensureFocus()
	return h
}

// Root returns the drawn widget.
func (h *Host) Root() native.Widget { return h.root }

// SetRoot replaces the drawn widget.
func (h *Host) SetRoot(w native.Widget) {
	h.root = w
	h.setFocus(nil)
	h.ensureFocus()
}

// Width returns the last known terminal width.
func (h *Host) Width() int { return h.width }

// Height returns the last known terminal height.
func (h *Host) Height() int { return h.height }

// Post queues fn for the UI goroutine. It never blocks, so it is safe to
// call from inside handlers.
func (h *Host) Post(fn func()) {
	h.tasks.Post(fn)
	h.mu.Lock()
	p := h.program
	h.mu.Unlock()
	if p != nil {
		go p.Send(wakeMsg{})
	}
}

// Pending returns the number of queued tasks.
func (h *Host) Pending() int { return h.tasks.Len() }

// Run starts a bubbletea program on the host and blocks until it exits.
func (h *Host) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithMouseCellMotion()}, opts...)
	p := tea.NewProgram(h, opts...)
	h.mu.Lock()
	h.program = p
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.program = nil
		h.mu.Unlock()
	}()
	if h.tasks.Len() > 0 {
		go p.Send(wakeMsg{})
	}
	_, err := p.Run()
	return err
}

// Close releases the mouse zone manager and the task queue.
func (h *Host) Close() {
	h.zones.Close()
	h.tasks.Close()
}

// --- tea.Model ---

func (h *Host) Init() tea.Cmd { return nil }

func (h *Host) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	h.tasks.RunPending()
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width, h.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return h, h.handleKey(msg)
	case tea.MouseMsg:
		h.handleMouse(msg)
	}
	return h, nil
}

func (h *Host) View() string {
	if h.root == nil {
		return ""
	}
	rc := &RenderContext{Styles: h.styles, Width: h.width, zones: h.zones}
	if h.focused != nil {
		rc.Focused = h.focused
	}
	return h.zones.Scan(rc.Child(h.root))
}

// Render draws the tree without mouse zones.
func (h *Host) Render() string {
	if h.root == nil {
		return ""
	}
	rc := NewRenderContext(h.styles, h.width)
	if h.focused != nil {
		rc.Focused = h.focused
	}
	return rc.Child(h.root)
}

func (h *Host) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, h.keys.Quit):
		return tea.Quit
	case key.Matches(msg, h.keys.Next):
		h.CycleFocusForward()
		return nil
	case key.Matches(msg, h.keys.Prev):
		h.CycleFocusBackward()
		return nil
	}
	h.ensureFocus()
	if h.focused == nil {
		return nil
	}
	if h.focused.HandleKey(msg) {
		return nil
	}
	if key.Matches(msg, h.keys.Activate) {
		h.focused.Activate()
	}
	return nil
}

func (h *Host) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	for _, w := range h.focusOrder() {
		if zi := h.zones.Get(w.ZoneID()); zi != nil && zi.InBounds(msg) {
			h.setFocus(w)
			w.Activate()
			return
		}
	}
}

// --- Focus ---

// Focused returns the widget with keyboard focus.
func (h *Host) Focused() native.Widget {
	if h.focused == nil {
		return nil
	}
	return h.focused
}

// Focus moves keyboard focus to w if it can take it.
func (h *Host) Focus(w native.Widget) bool {
	for _, in := range h.focusOrder() {
		if native.Widget(in) == w {
			h.setFocus(in)
			return true
		}
	}
	return false
}

// CycleFocusForward moves focus to the next focusable widget, wrapping
// around to the first after the last.
func (h *Host) CycleFocusForward() {
	order := h.focusOrder()
	if len(order) == 0 {
		h.setFocus(nil)
		return
	}
	idx := focusIndex(order, h.focused)
	h.setFocus(order[(idx+1)%len(order)])
}

// CycleFocusBackward moves focus to the previous focusable widget,
// wrapping around to the last before the first.
func (h *Host) CycleFocusBackward() {
	order := h.focusOrder()
	if len(order) == 0 {
		h.setFocus(nil)
		return
	}
	idx := focusIndex(order, h.focused)
	if idx < 0 {
		idx = 0
	}
	h.setFocus(order[(idx-1+len(order))%len(order)])
}

// focusIndex returns the position of cur in order, or -1.
func focusIndex(order []Interactive, cur Interactive) int {
	for i, w := range order {
		if w == cur {
			return i
		}
	}
	return -1
}

// focusOrder lists focusable widgets in pre-order. Hidden or disabled
// subtrees are skipped.
func (h *Host) focusOrder() []Interactive {
	var out []Interactive
	var walk func(w native.Widget)
	walk = func(w native.Widget) {
		if w == nil || w.Disposed() || !boolProp(w, "visible", true) || !enabled(w) {
			return
		}
		if in, ok := w.(Interactive); ok && in.CanFocus() {
			out = append(out, in)
		}
		for _, ch := range w.Children() {
			walk(ch)
		}
	}
	walk(h.root)
	return out
}

func (h *Host) ensureFocus() {
	order := h.focusOrder()
	if h.focused != nil && focusIndex(order, h.focused) >= 0 {
		return
	}
	if len(order) == 0 {
		h.setFocus(nil)
		return
	}
	h.setFocus(order[0])
}

func (h *Host) setFocus(w Interactive) {
	if h.focused == w {
		return
	}
	if h.focused != nil && !h.focused.Disposed() {
		h.focused.SetFocused(false)
	}
	h.focused = w
	if w != nil {
		w.SetFocused(true)
		h.log.Debug("termkit: focus moved", "class", w.Class(), "zone", w.ZoneID())
	}
}
