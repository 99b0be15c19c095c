package theme

// thRegisterBuiltins registers all built-in themes in the registry.
func thRegisterBuiltins() {
	for _, t := range []Theme{
		thDefaultTheme(),
		thGruvboxTheme(),
		thNordTheme(),
		thDraculaTheme(),
	} {
		thRegister(t)
	}
}

// thDefaultTheme returns the dark neutral theme with purple accent.
func thDefaultTheme() Theme {
	return Theme{
		Name:       "default",
		Background: "#1e1e1e",
		Foreground: "#d4d4d4",
		Dim:        "#6b6b6b",
		Accent:     "#7C3AED",

		Border:      "#3e3e3e",
		BorderFocus: "#7C3AED",
		Title:       "#d4d4d4",

		ButtonFG:    "#ffffff",
		ButtonBG:    "#3e3e3e",
		InputFG:     "#d4d4d4",
		InputBG:     "#2a2a2a",
		Placeholder: "#6b6b6b",

		GaugeFilled: "#4ec970",
		GaugeEmpty:  "#3e3e3e",
		Error:       "#e06c75",
	}
}

// thGruvboxTheme returns the warm retro Gruvbox theme.
func thGruvboxTheme() Theme {
	return Theme{
		Name:       "gruvbox",
		Background: "#282828",
		Foreground: "#ebdbb2",
		Dim:        "#928374",
		Accent:     "#fe8019",

		Border:      "#504945",
		BorderFocus: "#fe8019",
		Title:       "#fabd2f",

		ButtonFG:    "#fbf1c7",
		ButtonBG:    "#504945",
		InputFG:     "#ebdbb2",
		InputBG:     "#3c3836",
		Placeholder: "#928374",

		GaugeFilled: "#b8bb26",
		GaugeEmpty:  "#504945",
		Error:       "#fb4934",
	}
}

// thNordTheme returns the arctic Nord theme.
func thNordTheme() Theme {
	return Theme{
		Name:       "nord",
		Background: "#2e3440",
		Foreground: "#d8dee9",
		Dim:        "#4c566a",
		Accent:     "#88c0d0",

		Border:      "#3b4252",
		BorderFocus: "#88c0d0",
		Title:       "#eceff4",

		ButtonFG:    "#eceff4",
		ButtonBG:    "#434c5e",
		InputFG:     "#d8dee9",
		InputBG:     "#3b4252",
		Placeholder: "#4c566a",

		GaugeFilled: "#a3be8c",
		GaugeEmpty:  "#3b4252",
		Error:       "#bf616a",
	}
}

// thDraculaTheme returns the Dracula theme.
func thDraculaTheme() Theme {
	return Theme{
		Name:       "dracula",
		Background: "#282a36",
		Foreground: "#f8f8f2",
		Dim:        "#6272a4",
		Accent:     "#bd93f9",

		Border:      "#44475a",
		BorderFocus: "#bd93f9",
		Title:       "#f8f8f2",

		ButtonFG:    "#f8f8f2",
		ButtonBG:    "#44475a",
		InputFG:     "#f8f8f2",
		InputBG:     "#343746",
		Placeholder: "#6272a4",

		GaugeFilled: "#50fa7b",
		GaugeEmpty:  "#44475a",
		Error:       "#ff5555",
	}
}
