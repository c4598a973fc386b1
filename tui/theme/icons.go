package theme

import "os"

// Nerd Font icons
const (
	nerdIconWatch   = "󰔛" // md-timer_outline
	nerdIconPause   = "󰏤" // md-pause
	nerdIconError   = "" // cod-error
	nerdIconGear    = "" // fa-gear
	nerdIconLoading = "" // fa-refresh
	nerdIconIdle    = "󰒲" // md-sleep
	nerdIconSuccess = "󰄬" // md-check
	nerdIconWarning = "" // fa-warning
	nerdIconInfo    = "󰋼" // md-information
)

// ASCII fallback icons
const (
	asciiIconWatch   = "*"
	asciiIconPause   = "||"
	asciiIconError   = "!"
	asciiIconGear    = "#"
	asciiIconLoading = "~"
	asciiIconIdle    = "-"
	asciiIconSuccess = "✓"
	asciiIconWarning = "⚠"
	asciiIconInfo    = "i"
)

var (
	IconWatch   string
	IconPause   string
	IconError   string
	IconGear    string
	IconLoading string
	IconIdle    string
	IconSuccess string
	IconWarning string
	IconInfo    string
)

func init() {
	useASCII := os.Getenv("ARCADE_ICONS") == "ascii"
	if !useASCII && os.Getenv("ARCADE_ICONS") == "" {
		useASCII = loadTUIConfig().Icons == "ascii"
	}
	SetASCII(useASCII)
}

// SetASCII switches between the Nerd Font and ASCII icon sets.
func SetASCII(ascii bool) {
	if ascii {
		IconWatch = asciiIconWatch
		IconPause = asciiIconPause
		IconError = asciiIconError
		IconGear = asciiIconGear
		IconLoading = asciiIconLoading
		IconIdle = asciiIconIdle
		IconSuccess = asciiIconSuccess
		IconWarning = asciiIconWarning
		IconInfo = asciiIconInfo
		return
	}
	IconWatch = nerdIconWatch
	IconPause = nerdIconPause
	IconError = nerdIconError
	IconGear = nerdIconGear
	IconLoading = nerdIconLoading
	IconIdle = nerdIconIdle
	IconSuccess = nerdIconSuccess
	IconWarning = nerdIconWarning
	IconInfo = nerdIconInfo
}

// ForDisplay maps a display icon name ("watch", "pause", ...) to a glyph.
func ForDisplay(name string) string {
	switch name {
	case "watch":
		return IconWatch
	case "pause":
		return IconPause
	case "error":
		return IconError
	case "gear":
		return IconGear
	case "loading":
		return IconLoading
	case "idle":
		return IconIdle
	default:
		return ""
	}
}
