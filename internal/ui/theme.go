package ui

import "github.com/charmbracelet/lipgloss"

// Theme is the terminal color palette. All colors are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	SelfForeground   lipgloss.Color
	ActionForeground lipgloss.Color

	InfoForeground  lipgloss.Color
	WarnForeground  lipgloss.Color
	ErrorForeground lipgloss.Color
}

// DefaultTheme is a palette that reads on both dark and light terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("244"),

	HeaderForeground: lipgloss.Color("75"),
	SelfForeground:   lipgloss.Color("114"),
	ActionForeground: lipgloss.Color("179"),

	InfoForeground:  lipgloss.Color("39"),
	WarnForeground:  lipgloss.Color("214"),
	ErrorForeground: lipgloss.Color("196"),
}
