package termkit

import (
	"io"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/declui/pkg/mapper"
	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/theme"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

func newTestRenderer(t *testing.T) *lipgloss.Renderer {
	t.Helper()
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func newTestContext(t *testing.T, width int) *RenderContext {
	t.Helper()
	return NewRenderContext(theme.Default().Styles(newTestRenderer(t)), width)
}

func newTestHost(t *testing.T, root native.Widget) *Host {
	t.Helper()
	h := NewHost(root, HostOptions{Renderer: newTestRenderer(t)})
	t.Cleanup(h.Close)
	return h
}

// recorder collects signal names in emission order.
type recorder struct {
	names []string
	args  [][]value.Value
}

func (r *recorder) watch(t *testing.T, w native.Widget, signals ...string) {
	t.Helper()
	for _, s := range signals {
		if _, err := w.Connect(s, func(args ...value.Value) {
			r.names = append(r.names, s)
			r.args = append(r.args, args)
		}); err != nil {
			t.Fatalf("Connect(%q): %v", s, err)
		}
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// --- Toolkit ---

func TestToolkitCoversBuiltinMappings(t *testing.T) {
	classes := Toolkit().Classes()
	for _, mp := range mapper.Builtin() {
		if !slices.Contains(classes, mp.Class) {
			t.Errorf("toolkit lacks class %q for type %q", mp.Class, mp.Type)
		}
	}
}

func TestWidgetsDeclareMappedSignals(t *testing.T) {
	tk := Toolkit()
	for _, mp := range mapper.Builtin() {
		w, err := tk.New(mp.Class)
		if err != nil {
			t.Fatalf("New(%q): %v", mp.Class, err)
		}
		for _, ew := range mp.Events {
			if !slices.Contains(w.Signals(), ew.Signal) {
				t.Errorf("%s lacks signal %q", mp.Class, ew.Signal)
			}
		}
	}
}

// --- PushButton ---

func TestPushButtonActivateSequence(t *testing.T) {
	b := NewPushButton()
	var rec recorder
	rec.watch(t, b, "pressed", "released", "clicked", "toggled")
	b.Activate()
	if diff := cmp.Diff([]string{"pressed", "released", "clicked"}, rec.names); diff != "" {
		t.Errorf("signals (-want +got):\n%s", diff)
	}
}

func TestPushButtonCheckableToggles(t *testing.T) {
	b := NewPushButton()
	_ = b.SetProperty("checkable", value.Bool(true))
	var rec recorder
	rec.watch(t, b, "toggled", "clicked")
	b.Activate()
	if !boolProp(b, "checked", false) {
		t.Error("checked = false after activation")
	}
	if diff := cmp.Diff([]string{"toggled", "clicked"}, rec.names); diff != "" {
		t.Errorf("signals (-want +got):\n%s", diff)
	}
}

func TestDisabledButtonIsSilent(t *testing.T) {
	b := NewPushButton()
	_ = b.SetProperty("enabled", value.Bool(false))
	var rec recorder
	rec.watch(t, b, "clicked")
	b.Activate()
	if len(rec.names) != 0 {
		t.Errorf("disabled button emitted %v", rec.names)
	}
}

func TestProgrammaticWritesEmitNothing(t *testing.T) {
	for _, w := range []native.Widget{NewPushButton(), NewCheckBox(), NewSlider(), NewLineEdit(), NewComboBox()} {
		var rec recorder
		rec.watch(t, w, w.Signals()...)
		_ = w.SetProperty("checked", value.Bool(true))
		_ = w.SetProperty("value", value.Int(5))
		_ = w.SetProperty("text", value.Str("x"))
		_ = w.SetProperty("items", value.List(value.Str("a"), value.Str("b")))
		if len(rec.names) != 0 {
			t.Errorf("%s emitted %v on programmatic writes", w.Class(), rec.names)
		}
	}
}

func TestPushButtonRender(t *testing.T) {
	b := NewPushButton()
	_ = b.SetProperty("text", value.Str("OK"))
	if got := b.Render(newTestContext(t, 0)); got != " OK " {
		t.Errorf("Render = %q, want %q", got, " OK ")
	}
}

// --- LineEdit ---

func TestLineEditTyping(t *testing.T) {
	l := NewLineEdit()
	l.SetFocused(true)
	var rec recorder
	rec.watch(t, l, "textChanged")

	l.HandleKey(runes("h"))
	l.HandleKey(runes("i"))

	if got := strProp(l, "text"); got != "hi" {
		t.Errorf("text = %q, want hi", got)
	}
	if got := intProp(l, "cursorPosition", -1); got != 2 {
		t.Errorf("cursorPosition = %d, want 2", got)
	}
	if len(rec.args) != 2 || rec.args[1][0].String() != "hi" {
		t.Errorf("textChanged args = %v", rec.args)
	}
}

func TestLineEditProgrammaticText(t *testing.T) {
	l := NewLineEdit()
	_ = l.SetProperty("text", value.Str("preset"))
	if got := l.input.Value(); got != "preset" {
		t.Errorf("input value = %q, want preset", got)
	}
	_ = l.SetProperty("maxLength", value.Int(3))
	if l.input.CharLimit != 3 {
		t.Errorf("CharLimit = %d, want 3", l.input.CharLimit)
	}
}

func TestLineEditReadOnlyIgnoresTyping(t *testing.T) {
	l := NewLineEdit()
	_ = l.SetProperty("readOnly", value.Bool(true))
	if l.HandleKey(runes("x")) {
		t.Error("read-only field consumed a rune")
	}
	if got := strProp(l, "text"); got != "" {
		t.Errorf("text = %q, want empty", got)
	}
}

func TestLineEditEnter(t *testing.T) {
	l := NewLineEdit()
	var rec recorder
	rec.watch(t, l, "returnPressed", "editingFinished")
	l.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if diff := cmp.Diff([]string{"returnPressed", "editingFinished"}, rec.names); diff != "" {
		t.Errorf("signals (-want +got):\n%s", diff)
	}
}

// --- Check / Radio ---

func TestRadioButtonsAreExclusive(t *testing.T) {
	box := NewContainer()
	a, b := NewRadioButton(), NewRadioButton()
	_ = box.AddChild(a)
	_ = box.AddChild(b)

	a.Activate()
	b.Activate()
	if boolProp(a, "checked", true) || !boolProp(b, "checked", false) {
		t.Errorf("checked a=%v b=%v, want false true", boolProp(a, "checked", true), boolProp(b, "checked", false))
	}
	var rec recorder
	rec.watch(t, b, "toggled")
	b.Activate()
	if len(rec.names) != 0 {
		t.Error("activating a checked radio toggled it")
	}
}

func TestCheckBoxRender(t *testing.T) {
	c := NewCheckBox()
	_ = c.SetProperty("text", value.Str("on"))
	rc := newTestContext(t, 0)
	if got := c.Render(rc); got != "[ ] on" {
		t.Errorf("Render = %q", got)
	}
	c.Activate()
	if got := c.Render(rc); got != "[x] on" {
		t.Errorf("Render after toggle = %q", got)
	}
}

// --- Ranged ---

func TestSliderKeys(t *testing.T) {
	s := NewSlider()
	var rec recorder
	rec.watch(t, s, "valueChanged", "sliderMoved")

	s.HandleKey(tea.KeyMsg{Type: tea.KeyRight})
	s.HandleKey(tea.KeyMsg{Type: tea.KeyPgUp})
	if got := intProp(s, "value", -1); got != 11 {
		t.Errorf("value = %d, want 11", got)
	}
	s.HandleKey(tea.KeyMsg{Type: tea.KeyEnd})
	if got := intProp(s, "value", -1); got != 99 {
		t.Errorf("value = %d, want 99", got)
	}
	n := len(rec.names)
	s.HandleKey(tea.KeyMsg{Type: tea.KeyRight})
	if len(rec.names) != n {
		t.Error("stepping past the maximum emitted signals")
	}
}

func TestRangedClampsProgrammaticValue(t *testing.T) {
	s := NewSpinBox()
	_ = s.SetProperty("maximum", value.Int(10))
	_ = s.SetProperty("value", value.Int(50))
	if got := intProp(s, "value", -1); got != 10 {
		t.Errorf("value = %d, want 10", got)
	}
	_ = s.SetProperty("minimum", value.Int(20))
	if got := intProp(s, "value", -1); got != 20 {
		t.Errorf("value after raising minimum = %d, want 20", got)
	}
}

func TestSpinBoxRender(t *testing.T) {
	s := NewSpinBox()
	_ = s.SetProperty("value", value.Int(7))
	_ = s.SetProperty("suffix", value.Str(" px"))
	if got := s.Render(newTestContext(t, 0)); got != "7 px ▴▾" {
		t.Errorf("Render = %q", got)
	}
}

// --- ProgressBar ---

func TestProgressText(t *testing.T) {
	p := NewProgressBar()
	_ = p.SetProperty("value", value.Int(25))
	if got := p.Text(); got != "25%" {
		t.Errorf("Text = %q, want 25%%", got)
	}
	_ = p.SetProperty("format", value.Str("%v of %m"))
	if got := p.Text(); got != "25 of 100" {
		t.Errorf("Text = %q", got)
	}
}

func TestGaugeCells(t *testing.T) {
	tests := []struct {
		ratio                 float64
		full, partial, empty int
	}{
		{0, 0, 0, 20},
		{1, 20, 0, 0},
		{0.5, 10, 0, 10},
		{0.05, 1, 0, 19},
		{0.03, 0, 5, 19},
	}
	for _, tt := range tests {
		full, partial, empty := gaugeCells(tt.ratio, 20)
		if full != tt.full || partial != tt.partial || empty != tt.empty {
			t.Errorf("gaugeCells(%v) = %d,%d,%d, want %d,%d,%d",
				tt.ratio, full, partial, empty, tt.full, tt.partial, tt.empty)
		}
	}
}

// --- ComboBox ---

func TestComboBoxSelection(t *testing.T) {
	c := NewComboBox()
	_ = c.SetProperty("items", value.List(value.Str("red"), value.Str("green"), value.Str("blue")))
	if got := strProp(c, "currentText"); got != "red" {
		t.Errorf("currentText = %q, want red", got)
	}
	_ = c.SetProperty("currentText", value.Str("blue"))
	if got := intProp(c, "currentIndex", -1); got != 2 {
		t.Errorf("currentIndex = %d, want 2", got)
	}

	var rec recorder
	rec.watch(t, c, "currentIndexChanged")
	c.HandleKey(tea.KeyMsg{Type: tea.KeyDown})
	if got := strProp(c, "currentText"); got != "red" {
		t.Errorf("currentText after wrap = %q, want red", got)
	}
	if len(rec.args) != 1 || value.As(rec.args[0][0], -1) != 0 {
		t.Errorf("currentIndexChanged args = %v", rec.args)
	}
}

// --- Layout ---

func TestContainerLayout(t *testing.T) {
	box := NewContainer()
	for _, s := range []string{"a", "b"} {
		l := NewLabel()
		_ = l.SetProperty("text", value.Str(s))
		_ = box.AddChild(l)
	}
	rc := newTestContext(t, 0)
	if got := box.Render(rc); got != "a\nb" {
		t.Errorf("vertical = %q", got)
	}
	_ = box.SetProperty("orientation", value.Str("horizontal"))
	_ = box.SetProperty("spacing", value.Int(1))
	if got := box.Render(rc); got != "a b" {
		t.Errorf("horizontal = %q", got)
	}
}

func TestHiddenChildrenSkipped(t *testing.T) {
	box := NewContainer()
	shown, hidden := NewLabel(), NewLabel()
	_ = shown.SetProperty("text", value.Str("shown"))
	_ = hidden.SetProperty("text", value.Str("hidden"))
	_ = hidden.SetProperty("visible", value.Bool(false))
	_ = box.AddChild(shown)
	_ = box.AddChild(hidden)
	if got := box.Render(newTestContext(t, 0)); got != "shown" {
		t.Errorf("Render = %q", got)
	}
}

func TestLabelTruncatesToWidth(t *testing.T) {
	l := NewLabel()
	_ = l.SetProperty("text", value.Str("abcdefghij"))
	got := l.Render(newTestContext(t, 5))
	if got != "abcd…" {
		t.Errorf("Render = %q, want abcd…", got)
	}
}

func TestGroupBoxRender(t *testing.T) {
	g := NewGroupBox()
	_ = g.SetProperty("title", value.Str("Opts"))
	got := g.Render(newTestContext(t, 0))
	if !strings.Contains(got, "Opts") || !strings.Contains(got, "╭") {
		t.Errorf("Render = %q, want a rounded frame titled Opts", got)
	}
	if g.CanFocus() {
		t.Error("non-checkable group box can take focus")
	}
}

// --- Host ---

func newButtonRow(t *testing.T, labels ...string) (*Container, []*PushButton) {
	t.Helper()
	box := NewContainer()
	var out []*PushButton
	for _, s := range labels {
		b := NewPushButton()
		_ = b.SetProperty("text", value.Str(s))
		_ = box.AddChild(b)
		out = append(out, b)
	}
	return box, out
}

func TestHostInitialFocus(t *testing.T) {
	box, bs := newButtonRow(t, "a", "b")
	h := newTestHost(t, box)
	if h.Focused() != native.Widget(bs[0]) {
		t.Errorf("initial focus = %v, want first button", h.Focused())
	}
}

func TestHostTabCyclesFocus(t *testing.T) {
	box, bs := newButtonRow(t, "a", "b", "c")
	_ = bs[1].SetProperty("enabled", value.Bool(false))
	h := newTestHost(t, box)

	h.Update(tea.KeyMsg{Type: tea.KeyTab})
	if h.Focused() != native.Widget(bs[2]) {
		t.Errorf("after Tab focus = %v, want c (b is disabled)", h.Focused())
	}
	h.Update(tea.KeyMsg{Type: tea.KeyTab})
	if h.Focused() != native.Widget(bs[0]) {
		t.Errorf("after second Tab focus should wrap to a")
	}
	h.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if h.Focused() != native.Widget(bs[2]) {
		t.Errorf("after Shift+Tab focus should wrap back to c")
	}
}

func TestHostEnterActivatesFocused(t *testing.T) {
	box, bs := newButtonRow(t, "a", "b")
	h := newTestHost(t, box)
	var rec recorder
	rec.watch(t, bs[0], "clicked")
	h.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(rec.names) != 1 {
		t.Errorf("clicked %d times, want 1", len(rec.names))
	}
}

func TestHostRoutesKeysToLineEdit(t *testing.T) {
	l := NewLineEdit()
	h := newTestHost(t, l)
	h.Update(runes("x"))
	h.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if got := strProp(l, "text"); got != "x " {
		t.Errorf("text = %q, want %q", got, "x ")
	}
}

func TestHostQuit(t *testing.T) {
	h := newTestHost(t, NewLabel())
	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestHostPostRunsOnUpdate(t *testing.T) {
	h := newTestHost(t, NewLabel())
	ran := 0
	h.Post(func() { ran++ })
	if ran != 0 || h.Pending() != 1 {
		t.Fatalf("task ran early: ran=%d pending=%d", ran, h.Pending())
	}
	h.Update(wakeMsg{})
	if ran != 1 || h.Pending() != 0 {
		t.Errorf("after Update ran=%d pending=%d, want 1 and 0", ran, h.Pending())
	}
}

func TestHostWindowSize(t *testing.T) {
	h := newTestHost(t, NewLabel())
	h.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if h.Width() != 80 || h.Height() != 24 {
		t.Errorf("size = %dx%d, want 80x24", h.Width(), h.Height())
	}
}

func TestHostRender(t *testing.T) {
	box, _ := newButtonRow(t, "a", "b")
	h := newTestHost(t, box)
	if got := h.Render(); got != " a \n b " {
		t.Errorf("Render = %q", got)
	}
}
