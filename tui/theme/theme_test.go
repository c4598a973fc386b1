package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestResolveThemeColors(t *testing.T) {
	tests := []struct {
		name  string
		green lipgloss.TerminalColor
	}{
		{"terminal", lipgloss.Color(terminalGreen)},
		{"ANSI", lipgloss.Color(terminalGreen)},
		{"Kanagawa Dragon", lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen}},
		{"no-such-theme", lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.green, resolveThemeColors(tt.name).Green)
		})
	}
}

func TestThemeNameFromEnv(t *testing.T) {
	t.Setenv("ARCADE_THEME", " Terminal ")
	assert.Equal(t, "terminal", getThemeName())
}

func TestForDisplay(t *testing.T) {
	SetASCII(true)
	defer SetASCII(false)

	assert.Equal(t, "||", ForDisplay("pause"))
	assert.Equal(t, "*", ForDisplay("watch"))

	SetASCII(false)
	assert.Equal(t, nerdIconWatch, ForDisplay("watch"))
}
