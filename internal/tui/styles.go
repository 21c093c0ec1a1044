package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("39")
	colorMuted  = lipgloss.Color("8")
	colorBorder = lipgloss.Color("238")
	colorError  = lipgloss.Color("9")
	colorInfo   = lipgloss.Color("12")
	colorUser   = lipgloss.Color("12")
	colorModel  = lipgloss.Color("10")
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	focusedPaneStyle = paneStyle.BorderForeground(colorAccent)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	userStyle    = lipgloss.NewStyle().Foreground(colorUser)
	modelStyle   = lipgloss.NewStyle().Foreground(colorModel)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("235"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("237"))
	disabledStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted).Background(lipgloss.Color("235"))
	primaryStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("26"))
	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			Foreground(lipgloss.Color("153"))
)
