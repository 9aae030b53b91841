package tui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	headerStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	hintStyle    = lipgloss.NewStyle().Underline(true)
	victoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	stuckStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// palette maps game colors to 256-color terminal codes.
var palette = map[int]string{
	1: "196", // red
	2: "33",  // blue
	3: "226", // yellow
	4: "46",  // green
	5: "208", // orange
	6: "129", // purple
	7: "245", // gray
	8: "213", // pink
	9: "51",  // cyan
}

func colorStyle(color int) lipgloss.Style {
	code, ok := palette[color]
	if !ok {
		code = strconv.Itoa(color)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code))
}
