package tui

import (
	xansi "github.com/charmbracelet/x/ansi"
)

// truncateDisplay cuts s to max display cells, appending an ellipsis when
// something was dropped. ANSI-aware so styled strings keep their escapes.
func truncateDisplay(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= max {
		return s
	}
	if max <= 1 {
		return xansi.Cut(s, 0, max)
	}
	return xansi.Cut(s, 0, max-1) + "…"
}
