package termkit

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

const sliderTrackWidth = 20

// Ranged is an integer control bounded by minimum and maximum: a slider,
// or a spin box when spin is set.
type Ranged struct {
	native.Base
	focusable

	spin bool
}

// NewSlider returns a horizontal slider over [0, 99].
func NewSlider() *Ranged {
	r := &Ranged{focusable: newFocusable()}
	r.Init(r, ClassSlider, rangeProps(
		native.PropertySpec{Name: "pageStep", Kind: value.KindInt, Default: value.Int(10)},
		native.PropertySpec{Name: "orientation", Kind: value.KindString, Default: value.Str("horizontal")},
	), "valueChanged", "sliderPressed", "sliderReleased", "sliderMoved")
	r.AllowDynamic(true)
	r.OnChange = r.propertyChanged
	return r
}

// NewSpinBox returns a spin box over [0, 99].
func NewSpinBox() *Ranged {
	r := &Ranged{focusable: newFocusable(), spin: true}
	r.Init(r, ClassSpinBox, rangeProps(
		native.PropertySpec{Name: "prefix", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "suffix", Kind: value.KindString, Default: value.Str("")},
	), "valueChanged")
	r.AllowDynamic(true)
	r.OnChange = r.propertyChanged
	return r
}

func rangeProps(extra ...native.PropertySpec) []native.PropertySpec {
	return commonProps(append([]native.PropertySpec{
		{Name: "value", Kind: value.KindInt, Default: value.Int(0)},
		{Name: "minimum", Kind: value.KindInt, Default: value.Int(0)},
		{Name: "maximum", Kind: value.KindInt, Default: value.Int(99)},
		{Name: "singleStep", Kind: value.KindInt, Default: value.Int(1)},
	}, extra...)...)
}

func (r *Ranged) bounds() (lo, hi int) {
	lo, hi = intProp(r, "minimum", 0), intProp(r, "maximum", 99)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (r *Ranged) clamp(v int) int {
	lo, hi := r.bounds()
	return min(max(v, lo), hi)
}

// propertyChanged keeps value inside the bounds.
func (r *Ranged) propertyChanged(name string, _ value.Value) {
	switch name {
	case "value", "minimum", "maximum":
		v := intProp(r, "value", 0)
		if c := r.clamp(v); c != v {
			_ = r.Update("value", value.Int(int64(c)))
		}
	}
}

func (r *Ranged) setByUser(v int) {
	v = r.clamp(v)
	if v == intProp(r, "value", 0) {
		return
	}
	_ = r.Update("value", value.Int(int64(v)))
	if !r.spin {
		r.Emit("sliderMoved", value.Int(int64(v)))
	}
	r.Emit("valueChanged", value.Int(int64(v)))
}

func (r *Ranged) HandleKey(msg tea.KeyMsg) bool {
	if !enabled(r) {
		return false
	}
	cur := intProp(r, "value", 0)
	step := intProp(r, "singleStep", 1)
	page := intProp(r, "pageStep", 10)
	lo, hi := r.bounds()
	switch msg.Type {
	case tea.KeyRight, tea.KeyUp:
		r.setByUser(cur + step)
	case tea.KeyLeft, tea.KeyDown:
		r.setByUser(cur - step)
	case tea.KeyPgUp:
		r.setByUser(cur + page)
	case tea.KeyPgDown:
		r.setByUser(cur - page)
	case tea.KeyHome:
		r.setByUser(lo)
	case tea.KeyEnd:
		r.setByUser(hi)
	default:
		return false
	}
	return true
}

// Activate presses and releases a slider handle, or steps a spin box up.
func (r *Ranged) Activate() {
	if !enabled(r) {
		return
	}
	if r.spin {
		r.setByUser(intProp(r, "value", 0) + intProp(r, "singleStep", 1))
		return
	}
	r.Emit("sliderPressed")
	r.Emit("sliderReleased")
}

func (r *Ranged) Render(rc *RenderContext) string {
	st := rc.Styles.Text
	if !enabled(r) {
		st = rc.Styles.Disabled
	}
	v := intProp(r, "value", 0)
	if r.spin {
		text := fmt.Sprintf("%s%d%s", strProp(r, "prefix"), v, strProp(r, "suffix"))
		arrows := "▴▾"
		if rc.IsFocused(r) {
			arrows = rc.Styles.Accent.Render(arrows)
		}
		return st.Render(text) + " " + arrows
	}

	lo, hi := r.bounds()
	ratio := 0.0
	if hi > lo {
		ratio = float64(v-lo) / float64(hi-lo)
	}
	pos := int(math.Round(ratio * float64(sliderTrackWidth-1)))
	handle := "●"
	if rc.IsFocused(r) {
		handle = rc.Styles.Accent.Render(handle)
	}
	return st.Render(strings.Repeat("─", pos)) + handle + st.Render(strings.Repeat("─", sliderTrackWidth-1-pos))
}
