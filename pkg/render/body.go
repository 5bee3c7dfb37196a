// Package render turns message records into display records: bodies are
// escaped with emoji and mentions marked up and links wrapped in anchors,
// and system events get readable descriptions.
package render

import (
	"strings"

	"signal2html/pkg/models"
)

const objectReplacement = '\uFFFC'

// Body renders a raw message body. mentions is keyed by codepoint offset and
// may be nil.
func Body(body string, mentions map[int]models.Mention) string {
	return Linkify(markup(body, mentions))
}

// markup runs the single codepoint scan: emoji are wrapped, placeholders
// with a mention are replaced by the name and HTML metacharacters are
// escaped.
func markup(body string, mentions map[int]models.Mention) string {
	emoji := make(map[int]EmojiSpan)
	for _, span := range FindEmoji(body) {
		emoji[span.Location] = span
	}

	var sb strings.Builder
	skip := 0
	for i, c := range []rune(body) {
		if skip > 0 {
			skip--
			continue
		}
		if span, ok := emoji[i]; ok {
			sb.WriteString("<span class='msg-emoji'>")
			sb.WriteString(span.Text)
			sb.WriteString("</span>")
			skip = span.Length - 1
			continue
		}
		if c == objectReplacement {
			if m, ok := mentions[i]; ok {
				sb.WriteString("<span class='msg-mention'>")
				sb.WriteString(markup(m.Name, nil))
				sb.WriteString("</span>")
				skip = max(m.Length-1, 0)
				continue
			}
		}
		switch c {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
