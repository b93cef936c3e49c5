package repository

import "strings"

// IsModifiedStatus reads a short status line ("XY path") and reports whether
// either column marks the file as modified. Untracked ("??") and newly added
// ("A ") files come from a fresh pull and do not count.
func IsModifiedStatus(line string) bool {
	if len(line) < 2 {
		return false
	}
	return strings.Contains(line[:2], "M")
}
