package datetime

import (
	"strings"
	"time"
)

// phpLayouts maps PHP date() format characters to Go reference-time layout
// fragments. Unknown characters pass through verbatim.
var phpLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'n': "1",
	'd': "02",
	'j': "2",
	'H': "15",
	'G': "15",
	'i': "04",
	's': "05",
	'D': "Mon",
	'l': "Monday",
	'M': "Jan",
	'F': "January",
	'a': "pm",
	'A': "PM",
	'g': "3",
	'h': "03",
	'T': "MST",
	'O': "-0700",
	'P': "-07:00",
	'u': "000000",
	'v': "000",
}

// goLayout converts a PHP-style date format ("Y-m-d H:i:s") to a Go time
// layout. The single character "c" maps to RFC3339, matching the original
// language.
func goLayout(phpFormat string) string {
	if phpFormat == "c" {
		return time.RFC3339
	}
	var b strings.Builder
	for i := 0; i < len(phpFormat); i++ {
		ch := phpFormat[i]
		if ch == '\\' && i+1 < len(phpFormat) {
			// Backslash escapes the next format character.
			i++
			b.WriteByte(phpFormat[i])
			continue
		}
		if layout, ok := phpLayouts[ch]; ok {
			b.WriteString(layout)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
