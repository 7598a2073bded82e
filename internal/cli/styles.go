// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5FAFFF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats errors or failure messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// RVUStyle highlights RVU values.
	RVUStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SuccessColor)

	// UnknownStyle flags studies no rule matched; they need rule authoring.
	UnknownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(WarningColor)
)

// FormatRVU renders an RVU value with two decimals.
func FormatRVU(rvu float64) string {
	return RVUStyle.Render(fmt.Sprintf("%.2f", rvu))
}

// FormatPace renders a pace delta with its sign, colored by direction.
func FormatPace(pace float64) string {
	text := fmt.Sprintf("%+.2f", pace)
	if pace < 0 {
		return ErrorStyle.Render(text)
	}
	return SuccessStyle.Render(text)
}
