package render

import (
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

const (
	variationSelector = "\uFE0F"
	zeroWidthJoiner   = "\u200D"
)

// EmojiSpan is an emoji found in a string. Location and Length count
// codepoints.
type EmojiSpan struct {
	Location int
	Length   int
	Text     string
}

// FindEmoji returns the emoji grapheme clusters of s in order.
func FindEmoji(s string) []EmojiSpan {
	var spans []EmojiSpan
	pos := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n := len(gr.Runes())
		if cluster := gr.Str(); isEmoji(cluster) {
			spans = append(spans, EmojiSpan{Location: pos, Length: n, Text: cluster})
		}
		pos += n
	}
	return spans
}

// isEmoji classifies one grapheme cluster. Unqualified forms and joined
// sequences whose parts are all emoji count as well.
func isEmoji(cluster string) bool {
	if knownEmoji(cluster) {
		return true
	}
	if !strings.Contains(cluster, zeroWidthJoiner) {
		return false
	}
	for _, part := range strings.Split(cluster, zeroWidthJoiner) {
		if part == "" || !knownEmoji(part) {
			return false
		}
	}
	return true
}

func knownEmoji(s string) bool {
	if _, err := gomoji.GetInfo(s); err == nil {
		return true
	}
	bare := strings.ReplaceAll(s, variationSelector, "")
	if bare == "" {
		return false
	}
	if _, err := gomoji.GetInfo(bare); err == nil {
		return true
	}
	_, err := gomoji.GetInfo(bare + variationSelector)
	return err == nil
}

// IsAllEmoji reports whether s consists of nothing but emoji once spaces
// and variation selectors are removed. Other invisible codepoints, such as
// joiners outside an emoji sequence, make it false.
func IsAllEmoji(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, variationSelector, "")
	if s == "" {
		return false
	}
	total := 0
	for _, span := range FindEmoji(s) {
		total += span.Length
	}
	return total == len([]rune(s))
}
