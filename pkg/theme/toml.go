package theme

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
)

// thTOMLTheme is the TOML-serializable representation of a Theme.
type thTOMLTheme struct {
	Name    string        `toml:"name"`
	Base    thTOMLBase    `toml:"base"`
	Frame   thTOMLFrame   `toml:"frame"`
	Control thTOMLControl `toml:"control"`
	Status  thTOMLStatus  `toml:"status"`
}

type thTOMLBase struct {
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Dim        string `toml:"dim"`
	Accent     string `toml:"accent"`
}

type thTOMLFrame struct {
	Border      string `toml:"border"`
	BorderFocus string `toml:"border_focus"`
	Title       string `toml:"title"`
}

type thTOMLControl struct {
	ButtonFG    string `toml:"button_fg"`
	ButtonBG    string `toml:"button_bg"`
	InputFG     string `toml:"input_fg"`
	InputBG     string `toml:"input_bg"`
	Placeholder string `toml:"placeholder"`
}

type thTOMLStatus struct {
	GaugeFilled string `toml:"gauge_filled"`
	GaugeEmpty  string `toml:"gauge_empty"`
	Error       string `toml:"error"`
}

var thHexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFromTOML parses a TOML theme definition from raw bytes.
func LoadFromTOML(data []byte) (Theme, error) {
	var tt thTOMLTheme
	if err := toml.Unmarshal(data, &tt); err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}

	t := Theme{
		Name:       tt.Name,
		Background: tt.Base.Background,
		Foreground: tt.Base.Foreground,
		Dim:        tt.Base.Dim,
		Accent:     tt.Base.Accent,

		Border:      tt.Frame.Border,
		BorderFocus: tt.Frame.BorderFocus,
		Title:       tt.Frame.Title,

		ButtonFG:    tt.Control.ButtonFG,
		ButtonBG:    tt.Control.ButtonBG,
		InputFG:     tt.Control.InputFG,
		InputBG:     tt.Control.InputBG,
		Placeholder: tt.Control.Placeholder,

		GaugeFilled: tt.Status.GaugeFilled,
		GaugeEmpty:  tt.Status.GaugeEmpty,
		Error:       tt.Status.Error,
	}

	if err := thValidateTheme(t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// SaveToTOML serializes a theme to TOML bytes.
func SaveToTOML(t Theme) ([]byte, error) {
	tt := thTOMLTheme{
		Name: t.Name,
		Base: thTOMLBase{
			Background: t.Background,
			Foreground: t.Foreground,
			Dim:        t.Dim,
			Accent:     t.Accent,
		},
		Frame: thTOMLFrame{
			Border:      t.Border,
			BorderFocus: t.BorderFocus,
			Title:       t.Title,
		},
		Control: thTOMLControl{
			ButtonFG:    t.ButtonFG,
			ButtonBG:    t.ButtonBG,
			InputFG:     t.InputFG,
			InputBG:     t.InputBG,
			Placeholder: t.Placeholder,
		},
		Status: thTOMLStatus{
			GaugeFilled: t.GaugeFilled,
			GaugeEmpty:  t.GaugeEmpty,
			Error:       t.Error,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tt); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// thColorFields lists the color fields in file order.
func thColorFields(t Theme) [][2]string {
	return [][2]string{
		{"background", t.Background},
		{"foreground", t.Foreground},
		{"dim", t.Dim},
		{"accent", t.Accent},
		{"border", t.Border},
		{"border_focus", t.BorderFocus},
		{"title", t.Title},
		{"button_fg", t.ButtonFG},
		{"button_bg", t.ButtonBG},
		{"input_fg", t.InputFG},
		{"input_bg", t.InputBG},
		{"placeholder", t.Placeholder},
		{"gauge_filled", t.GaugeFilled},
		{"gauge_empty", t.GaugeEmpty},
		{"error", t.Error},
	}
}

// thValidateTheme checks that all required color fields are present and valid hex.
func thValidateTheme(t Theme) error {
	if t.Name == "" {
		return fmt.Errorf("theme: missing required field %q", "name")
	}
	for _, f := range thColorFields(t) {
		if f[1] == "" {
			return fmt.Errorf("theme: missing required field %q", f[0])
		}
		if !thHexColorRegex.MatchString(f[1]) {
			return fmt.Errorf("theme: invalid hex color %q for field %q (expected #RRGGBB)", f[1], f[0])
		}
	}
	return nil
}
