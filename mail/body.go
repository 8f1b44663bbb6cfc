package mail

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// WrapBody splits body on explicit line breaks and wraps every line on its
// own to width runes. Each resulting line ends with "\n". A width of 0
// leaves lines untouched. Words longer than width are not broken.
func WrapBody(body string, width uint) string {
	body = lineBreaks.Replace(body)
	body = strings.TrimSuffix(body, "\n")

	var b strings.Builder
	b.Grow(len(body) + 1)
	for _, line := range strings.Split(body, "\n") {
		if width > 0 {
			line = wordwrap.WrapString(line, width)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
