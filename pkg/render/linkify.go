package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var linkPattern = regexp.MustCompile(`(?i)` +
	`(\b(?:https?|ftp)://[^\s<>"']+)` +
	`|(\b[a-z0-9._%+\-]+@(?:[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?\.)+[a-z]{2,}\b)` +
	`|(\bwww\.[^\s<>"']+)` +
	`|(\b(?:[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?\.)+[a-z]{2,}(?::\d{1,5})?(?:/[^\s<>"']*)?)`)

const (
	matchURL = 1 + iota
	matchEmail
	matchWWW
	matchHost
)

// Linkify wraps URLs, bare domains and email addresses in anchors. Text
// inside tags or existing anchors is left alone, so running it twice is the
// same as running it once.
func Linkify(s string) string {
	if !mayContainLink(s) {
		return s
	}
	var sb strings.Builder
	depth := 0
	for len(s) > 0 {
		if s[0] == '<' {
			end := strings.IndexByte(s, '>')
			if end < 0 {
				sb.WriteString(s)
				break
			}
			tag := s[:end+1]
			lower := strings.ToLower(tag)
			switch {
			case strings.HasPrefix(lower, "<a ") || lower == "<a>":
				depth++
			case strings.HasPrefix(lower, "</a"):
				depth = max(depth-1, 0)
			}
			sb.WriteString(tag)
			s = s[end+1:]
			continue
		}
		end := strings.IndexByte(s, '<')
		if end < 0 {
			end = len(s)
		}
		if depth > 0 {
			sb.WriteString(s[:end])
		} else {
			linkifyText(&sb, s[:end])
		}
		s = s[end:]
	}
	return sb.String()
}

// mayContainLink is the cheap test run before the matcher.
func mayContainLink(s string) bool {
	return strings.Contains(s, ".") || strings.Contains(s, "://")
}

func linkifyText(sb *strings.Builder, text string) {
	last := 0
	for _, m := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		kind := 0
		for k := matchURL; k <= matchHost; k++ {
			if m[2*k] >= 0 {
				kind = k
				break
			}
		}
		start, end := m[0], m[1]
		end = start + len(trimLink(text[start:end]))
		link := text[start:end]
		href, ok := linkTarget(kind, link)
		if !ok {
			continue
		}
		sb.WriteString(text[last:start])
		sb.WriteString(`<a href="`)
		sb.WriteString(href)
		sb.WriteString(`" target="_blank">`)
		sb.WriteString(link)
		sb.WriteString(`</a>`)
		last = end
	}
	sb.WriteString(text[last:])
}

// trimLink drops trailing punctuation and escaped angle brackets that are
// more likely prose than part of the link.
func trimLink(link string) string {
	for _, entity := range []string{"&lt;", "&gt;"} {
		if idx := strings.Index(link, entity); idx >= 0 {
			link = link[:idx]
		}
	}
	for len(link) > 0 {
		last := link[len(link)-1]
		switch {
		case strings.IndexByte(".,;:!?'\"", last) >= 0:
			link = link[:len(link)-1]
		case last == ')' && strings.Count(link, "(") < strings.Count(link, ")"):
			link = link[:len(link)-1]
		default:
			return link
		}
	}
	return link
}

func linkTarget(kind int, link string) (string, bool) {
	switch kind {
	case matchURL:
		return link, strings.Contains(link, "://") && !strings.HasSuffix(link, "://")
	case matchEmail:
		domain := link[strings.LastIndexByte(link, '@')+1:]
		return "mailto:" + link, validHost(domain)
	case matchWWW:
		return "http://" + link, len(link) > len("www.")
	case matchHost:
		return "http://" + link, validHost(hostOf(link))
	}
	return "", false
}

func hostOf(link string) string {
	if idx := strings.IndexAny(link, ":/"); idx >= 0 {
		return link[:idx]
	}
	return link
}

// validHost accepts domains under an ICANN-managed public suffix.
func validHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	suffix, icann := publicsuffix.PublicSuffix(host)
	return icann && suffix != host
}
