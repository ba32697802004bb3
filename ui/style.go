package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"catalog-discovery/discovery"
)

var classColors = map[discovery.Classification]int{
	discovery.ClassPlugin:  0x1bd96a,
	discovery.ClassData:    0x4a9eff,
	discovery.ClassArt:     0xf5a623,
	discovery.ClassSave:    0xb07aff,
	discovery.ClassModpack: 0xff496e,
}

// Colorize applies the given color to the text using lipgloss.
// color is a 0xRRGGBB integer.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// ClassColor returns the display color for a classification, 0 when it has none.
func ClassColor(c discovery.Classification) int {
	return classColors[c]
}

// Classification renders c padded to width, colored when known.
func Classification(c discovery.Classification, width int) string {
	text := fmt.Sprintf("%-*s", width, c)
	if color, ok := classColors[c]; ok {
		return Colorize(text, color)
	}
	return text
}

// Rating renders a 0..5 rating, dimmed when unrated.
func Rating(r float64) string {
	if r <= 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  -  ")
	}
	return fmt.Sprintf("%.1f/5", r)
}
