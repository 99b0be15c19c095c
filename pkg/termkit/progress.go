package termkit

import (
	"math"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

const progressWidth = 20

// Block characters for sub-cell precision (8 levels per cell).
var gaugeBlocks = [9]rune{
	' ',      // 0/8 empty
	'\u258F', // 1/8
	'\u258E', // 2/8
	'\u258D', // 3/8
	'\u258C', // 4/8
	'\u258B', // 5/8
	'\u258A', // 6/8
	'\u2589', // 7/8
	'\u2588', // 8/8
}

// ProgressBar shows a value between minimum and maximum as a gauge.
type ProgressBar struct {
	native.Base
}

// NewProgressBar returns a bar over [0, 100] showing its percentage.
func NewProgressBar() *ProgressBar {
	p := &ProgressBar{}
	p.Init(p, ClassProgressBar, commonProps(
		native.PropertySpec{Name: "value", Kind: value.KindInt, Default: value.Int(0)},
		native.PropertySpec{Name: "minimum", Kind: value.KindInt, Default: value.Int(0)},
		native.PropertySpec{Name: "maximum", Kind: value.KindInt, Default: value.Int(100)},
		native.PropertySpec{Name: "textVisible", Kind: value.KindBool, Default: value.Bool(true)},
		native.PropertySpec{Name: "format", Kind: value.KindString, Default: value.Str("%p%")},
	))
	p.AllowDynamic(true)
	return p
}

// Ratio returns the filled fraction clamped to [0, 1].
func (p *ProgressBar) Ratio() float64 {
	v := intProp(p, "value", 0)
	lo, hi := intProp(p, "minimum", 0), intProp(p, "maximum", 100)
	if hi <= lo {
		return 0
	}
	return math.Min(math.Max(float64(v-lo)/float64(hi-lo), 0), 1)
}

// Text expands the format: %p is the percentage, %v the value and %m the
// maximum.
func (p *ProgressBar) Text() string {
	r := strings.NewReplacer(
		"%p", strconv.Itoa(int(math.Round(p.Ratio()*100))),
		"%v", strconv.Itoa(intProp(p, "value", 0)),
		"%m", strconv.Itoa(intProp(p, "maximum", 100)),
	)
	return r.Replace(strProp(p, "format"))
}

func (p *ProgressBar) Render(rc *RenderContext) string {
	full, partial, empty := gaugeCells(p.Ratio(), progressWidth)
	filled := strings.Repeat(string(gaugeBlocks[8]), full)
	if partial > 0 {
		filled += string(gaugeBlocks[partial])
	}
	bar := rc.Styles.GaugeFilled.Render(filled) + rc.Styles.GaugeEmpty.Render(strings.Repeat("░", empty))
	if !enabled(p) {
		bar = rc.Styles.Disabled.Render(filled + strings.Repeat("░", empty))
	}
	if boolProp(p, "textVisible", true) {
		bar += " " + rc.Styles.Text.Render(p.Text())
	}
	return bar
}

// gaugeCells splits width cells into full cells, the eighths of the
// boundary cell and empty cells.
func gaugeCells(ratio float64, width int) (full, partial, empty int) {
	total := width * 8
	units := min(max(int(math.Round(ratio*float64(total))), 0), total)
	full = units / 8
	partial = units % 8
	empty = width - full
	if partial > 0 {
		empty--
	}
	return full, partial, max(empty, 0)
}
