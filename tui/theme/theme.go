package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/arcade/config"
)

const defaultThemeName = "kanagawa"

// --- Kanagawa Dragon (dark) palette ---
const (
	kanagawaDarkGreen     = "#98BB6C"
	kanagawaDarkYellow    = "#FF9E3B"
	kanagawaDarkRed       = "#FF5D62"
	kanagawaDarkOrange    = "#FFA066"
	kanagawaDarkCyan      = "#7E9CD8"
	kanagawaDarkViolet    = "#957FB8"
	kanagawaDarkLightText = "#DCD7BA"
	kanagawaDarkMutedText = "#727169"
	kanagawaDarkBorder    = "#363646"
	kanagawaDarkSubtleBg  = "#1F1F28"
)

// --- Kanagawa Wave (light-inspired) palette ---
const (
	kanagawaLightGreen     = "#4E7C5A"
	kanagawaLightYellow    = "#A68A64"
	kanagawaLightRed       = "#C34043"
	kanagawaLightOrange    = "#CC6B4E"
	kanagawaLightCyan      = "#5B8BBE"
	kanagawaLightViolet    = "#674D7A"
	kanagawaLightLightText = "#2B2F42"
	kanagawaLightMutedText = "#6C7086"
	kanagawaLightBorder    = "#B5BDC5"
	kanagawaLightSubtleBg  = "#F7F7FB"
)

// --- Terminal (ANSI-friendly) palette ---
const (
	terminalGreen     = "2"
	terminalYellow    = "3"
	terminalRed       = "1"
	terminalOrange    = "208"
	terminalCyan      = "6"
	terminalViolet    = "5"
	terminalLightText = "7"
	terminalMutedText = "8"
	terminalBorder    = "8"
	terminalSubtleBg  = "0"
)

// Colors encapsulates the palette used by a theme.
type Colors struct {
	Green            lipgloss.TerminalColor
	Yellow           lipgloss.TerminalColor
	Red              lipgloss.TerminalColor
	Orange           lipgloss.TerminalColor
	Cyan             lipgloss.TerminalColor
	Violet           lipgloss.TerminalColor
	LightText        lipgloss.TerminalColor
	MutedText        lipgloss.TerminalColor
	Border           lipgloss.TerminalColor
	SubtleBackground lipgloss.TerminalColor
}

// Theme holds the pre-configured styles shared by the CLI, the logger and the TUI.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Normal lipgloss.Style
	Muted  lipgloss.Style

	Box  lipgloss.Style
	Code lipgloss.Style

	Input       lipgloss.Style
	Placeholder lipgloss.Style

	Highlight lipgloss.Style
	Accent    lipgloss.Style

	// Countdown renders the large session timer in the dashboard.
	Countdown lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"kanagawa": newKanagawaColors,
	"terminal": newTerminalColors,
}

var themeAliases = map[string]string{
	"kanagawa-dark":   "kanagawa",
	"kanagawa-dragon": "kanagawa",
	"kanagawa-wave":   "kanagawa",
	"ansi":            "terminal",
}

// DefaultTheme is the theme selected by ARCADE_THEME or the tui config section.
var DefaultTheme = NewTheme()

// NewTheme creates a theme based on the configured theme selection.
func NewTheme() *Theme {
	return NewThemeWithName(getThemeName())
}

// NewThemeWithName constructs a theme from a specific palette name.
func NewThemeWithName(name string) *Theme {
	return newThemeFromColors(resolveThemeColors(name))
}

func newThemeFromColors(colors Colors) *Theme {
	return &Theme{
		Colors: colors,

		Header: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			MarginBottom(1),

		Success: lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colors.Red).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(colors.Cyan).
			Bold(true),

		Bold:   lipgloss.NewStyle().Bold(true),
		Normal: lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Faint(true),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(1, 2),

		Code: lipgloss.NewStyle().
			Background(colors.SubtleBackground).
			Foreground(colors.LightText).
			Padding(0, 1).
			MarginLeft(2),

		Input: lipgloss.NewStyle().
			Foreground(colors.LightText),

		Placeholder: lipgloss.NewStyle().
			Foreground(colors.MutedText).
			Italic(true),

		Highlight: lipgloss.NewStyle().
			Foreground(colors.Orange).
			Bold(true),

		Accent: lipgloss.NewStyle().
			Foreground(colors.Violet).
			Bold(true),

		Countdown: lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true).
			Padding(0, 1),
	}
}

func resolveThemeColors(name string) Colors {
	key := normalizeThemeName(name)
	if alias, ok := themeAliases[key]; ok {
		key = alias
	}
	if builder, ok := themeRegistry[key]; ok {
		return builder()
	}
	return themeRegistry[defaultThemeName]()
}

func normalizeThemeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")
	return normalized
}

// tuiConfig is the "tui" extension section of arcade.yml.
type tuiConfig struct {
	Theme string `yaml:"theme"`
	Icons string `yaml:"icons"`
}

func loadTUIConfig() tuiConfig {
	var tc tuiConfig
	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return tc
	}
	_ = cfg.UnmarshalExtension("tui", &tc)
	return tc
}

func getThemeName() string {
	if theme := normalizeThemeName(os.Getenv("ARCADE_THEME")); theme != "" {
		return theme
	}
	if theme := normalizeThemeName(loadTUIConfig().Theme); theme != "" {
		return theme
	}
	return defaultThemeName
}

func newKanagawaColors() Colors {
	return Colors{
		Green:            lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen},
		Yellow:           lipgloss.AdaptiveColor{Light: kanagawaLightYellow, Dark: kanagawaDarkYellow},
		Red:              lipgloss.AdaptiveColor{Light: kanagawaLightRed, Dark: kanagawaDarkRed},
		Orange:           lipgloss.AdaptiveColor{Light: kanagawaLightOrange, Dark: kanagawaDarkOrange},
		Cyan:             lipgloss.AdaptiveColor{Light: kanagawaLightCyan, Dark: kanagawaDarkCyan},
		Violet:           lipgloss.AdaptiveColor{Light: kanagawaLightViolet, Dark: kanagawaDarkViolet},
		LightText:        lipgloss.AdaptiveColor{Light: kanagawaLightLightText, Dark: kanagawaDarkLightText},
		MutedText:        lipgloss.AdaptiveColor{Light: kanagawaLightMutedText, Dark: kanagawaDarkMutedText},
		Border:           lipgloss.AdaptiveColor{Light: kanagawaLightBorder, Dark: kanagawaDarkBorder},
		SubtleBackground: lipgloss.AdaptiveColor{Light: kanagawaLightSubtleBg, Dark: kanagawaDarkSubtleBg},
	}
}

func newTerminalColors() Colors {
	return Colors{
		Green:            lipgloss.Color(terminalGreen),
		Yellow:           lipgloss.Color(terminalYellow),
		Red:              lipgloss.Color(terminalRed),
		Orange:           lipgloss.Color(terminalOrange),
		Cyan:             lipgloss.Color(terminalCyan),
		Violet:           lipgloss.Color(terminalViolet),
		LightText:        lipgloss.Color(terminalLightText),
		MutedText:        lipgloss.Color(terminalMutedText),
		Border:           lipgloss.Color(terminalBorder),
		SubtleBackground: lipgloss.Color(terminalSubtleBg),
	}
}
