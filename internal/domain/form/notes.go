package form

import (
	"regexp"
	"strings"
)

// MaxNotesLength is the stored notes limit in characters.
const MaxNotesLength = 255

var spaceRun = regexp.MustCompile(` {2,}`)

// NormalizeNotes trims the text, collapses runs of spaces into one and
// truncates to MaxNotesLength characters. Line breaks and tabs inside the
// text are kept.
func NormalizeNotes(s string) string {
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if runes := []rune(s); len(runes) > MaxNotesLength {
		s = string(runes[:MaxNotesLength])
	}
	return s
}
