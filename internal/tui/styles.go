package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("11")  // bright yellow
	colorSecondary = lipgloss.Color("13")  // bright magenta
	colorDim       = lipgloss.Color("240") // gray
	colorAlert     = lipgloss.Color("9")   // bright red
	colorBorder    = lipgloss.Color("238") // dark gray

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorDim)

	// Form
	styleLabel = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(14)

	styleLabelFocused = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				Width(14)

	styleInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleButton = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("208")).
			Bold(true).
			Padding(0, 2)

	// Chat
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	stylePlanet = lipgloss.NewStyle().
			Foreground(colorPrimary)

	styleSuggestion = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleAlert = lipgloss.NewStyle().
			Foreground(colorAlert).
			Bold(true)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)
)
