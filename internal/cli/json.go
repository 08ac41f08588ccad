package cli

import (
	"regexp"
	"strings"
)

// keys, string values, literals and numbers
var jsonTokenRegex = regexp.MustCompile(`("(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?)`)

// HighlightJSON applies ANSI colors to a JSON string. It returns the input
// unchanged when color is disabled.
func HighlightJSON(jsonStr string) string {
	if !Enabled() {
		return jsonStr
	}

	return jsonTokenRegex.ReplaceAllStringFunc(jsonStr, func(token string) string {
		switch {
		case strings.HasSuffix(token, ":"):
			return Style(token[:len(token)-1], Blue) + ":"
		case strings.HasPrefix(token, `"`):
			return Style(token, Green)
		case token == "true" || token == "false":
			return Style(token, Yellow)
		case token == "null":
			return Style(token, Dim)
		default:
			return Style(token, Purple)
		}
	})
}
