package avgraph

import "strings"

// Filter option values pass through two parsers: the option parser splits on
// ':' and honours '\' and '\'' escapes; the graph parser then splits filters
// and chains on ',', ';' and pad labels on '[' ']'. Each level gets its own
// table and values are escaped for the option level first.
var (
	optionEscapes = map[rune]bool{
		'\\': true,
		'\'': true,
		':':  true,
	}
	graphEscapes = map[rune]bool{
		'\\': true,
		'\'': true,
		'[':  true,
		']':  true,
		',':  true,
		';':  true,
		':':  true,
	}
)

// Escape makes an option value safe to place in a filter graph description.
func Escape(value string) string {
	return escapeWith(escapeWith(value, optionEscapes), graphEscapes)
}

func escapeWith(value string, table map[rune]bool) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if table[r] {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
