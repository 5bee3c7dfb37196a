package colors

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"signal2html/pkg/models"
	"signal2html/pkg/msgtype"
)

// SenderStyle is the color class of one sender within a conversation.
type SenderStyle struct {
	Index int
	Color string
	Hex   string
}

// Assignment maps recipient ids to their color class in one conversation.
type Assignment struct {
	styles []SenderStyle
	byID   map[string]int
}

// Index returns the color class of a sender; unknown senders and all
// senders of a one-to-one conversation share class 0.
func (a *Assignment) Index(r *models.Recipient) int {
	if r == nil {
		return 0
	}
	if idx, ok := a.byID[r.ID]; ok {
		return idx
	}
	return 0
}

// Styles lists the classes that have a color, ordered by index.
func (a *Assignment) Styles() []SenderStyle {
	return a.styles
}

// CSS renders one rule per color class.
func (a *Assignment) CSS() string {
	var sb strings.Builder
	for _, s := range a.styles {
		fmt.Fprintf(&sb, ".msg-sender-%d { background: %s; }\n", s.Index, s.Hex)
	}
	return sb.String()
}

// Assign computes the sender colors of a thread.
func Assign(thread *models.Thread, log zerolog.Logger) *Assignment {
	records := thread.Records()
	if thread.IsGroup() {
		var senders []*models.Recipient
		seen := make(map[string]struct{})
		for _, rec := range records {
			if rec.Addr == nil {
				continue
			}
			if _, ok := seen[rec.Addr.ID]; ok {
				continue
			}
			seen[rec.Addr.ID] = struct{}{}
			senders = append(senders, rec.Addr)
		}
		return AssignGroup(senders, log)
	}
	color := DefaultColor
	for _, rec := range records {
		if msgtype.IsInbox(rec.Type) && rec.Addr != nil {
			if rec.Addr.Color != "" {
				color = rec.Addr.Color
			}
			break
		}
	}
	return &Assignment{
		styles: []SenderStyle{{Index: 0, Color: color, Hex: Hex(color, log)}},
		byID:   map[string]int{},
	}
}

// AssignGroup gives each sender an index in slice order. A sender whose
// color was already handed out gets the first palette color that neither an
// earlier sender uses nor any sender has stored. Group pseudo-senders get an
// index but no color.
func AssignGroup(senders []*models.Recipient, log zerolog.Logger) *Assignment {
	a := &Assignment{byID: make(map[string]int, len(senders))}
	stored := make(map[string]struct{})
	for _, s := range senders {
		if !s.IsGroup {
			stored[Hex(s.Color, log)] = struct{}{}
		}
	}
	used := make(map[string]struct{})
	for idx, s := range senders {
		a.byID[s.ID] = idx
		if s.IsGroup {
			continue
		}
		name, hex := s.Color, Hex(s.Color, log)
		if _, taken := used[hex]; taken {
			if sub, ok := firstFree(used, stored); ok {
				name, hex = sub.Name, sub.Hex
			} else if sub, ok = firstFree(used, nil); ok {
				name, hex = sub.Name, sub.Hex
			}
		}
		used[hex] = struct{}{}
		a.styles = append(a.styles, SenderStyle{Index: idx, Color: name, Hex: hex})
	}
	return a
}

func firstFree(used, stored map[string]struct{}) (Named, bool) {
	for _, c := range Palette {
		if _, ok := used[c.Hex]; ok {
			continue
		}
		if _, ok := stored[c.Hex]; ok {
			continue
		}
		return c, true
	}
	return Named{}, false
}
