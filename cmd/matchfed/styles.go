package main

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#2DA44E") // Green
	errorColor  = lipgloss.Color("#CF222E") // Red
	dimColor    = lipgloss.Color("#6E7681") // Gray
	linkColor   = lipgloss.Color("#58A6FF") // Light blue
	scoreColor  = lipgloss.Color("#F778BA") // Pink
	mediaColor  = lipgloss.Color("#FFA657") // Light orange

	HeaderStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	ReportStyle = lipgloss.NewStyle().
			Foreground(scoreColor).
			Bold(true)

	// DimStyle greys out entries that are not match reports.
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	RejectedStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Strikethrough(true)

	LinkStyle = lipgloss.NewStyle().
			Foreground(linkColor).
			Underline(true)

	MediaStyle = lipgloss.NewStyle().
			Foreground(mediaColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)
