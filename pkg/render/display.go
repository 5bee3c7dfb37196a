package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signal2html/pkg/colors"
	"signal2html/pkg/models"
	"signal2html/pkg/msgtype"
)

const DateSeparatorLayout = "Mon, Jan 02, 2006"

type Kind string

const (
	KindDate    Kind = "date"
	KindMessage Kind = "message"
	KindEvent   Kind = "event"
)

type Quote struct {
	Author      string
	Body        string
	Attachments []models.Attachment
}

type Reaction struct {
	Emoji  string
	Sender string
	Time   time.Time
}

// Record is one rendered line of a conversation. Body is HTML.
type Record struct {
	Kind        Kind
	ID          string
	Type        msgtype.Name
	Body        string
	Timestamp   time.Time
	SenderName  string
	SenderIdx   int
	IsAllEmoji  bool
	IsGroup     bool
	IsCall      bool
	Outgoing    bool
	Attachments []models.Attachment
	Quote       *Quote
	Reactions   []Reaction
	Delivered   int
	Read        int
	Viewed      int
}

// Conversation is what an output sink receives for one thread.
type Conversation struct {
	ThreadID int64
	Name     string
	SaneName string
	Subtitle string
	IsGroup  bool
	Members  []string
	Records  []Record
	Colors   *colors.Assignment
	// Thread is the source of the rendered records.
	Thread *models.Thread
}

type Renderer struct {
	loc *time.Location
	log zerolog.Logger
}

// New creates a renderer that shows times in loc, or in local time when
// loc is nil.
func New(loc *time.Location, log zerolog.Logger) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{loc: loc, log: log}
}

// Conversation renders a built thread.
func (r *Renderer) Conversation(t *models.Thread) *Conversation {
	conv := &Conversation{
		ThreadID: t.ID,
		Name:     t.Name(),
		SaneName: t.SaneName(),
		IsGroup:  t.IsGroup(),
		Colors:   colors.Assign(t, r.log),
		Thread:   t,
	}
	for _, m := range t.Members {
		conv.Members = append(conv.Members, m.DisplayName())
	}
	if conv.IsGroup {
		conv.Subtitle = strings.Join(conv.Members, ", ")
	} else {
		conv.Subtitle = t.Recipient.Phone
	}

	var prevDay string
	for _, rec := range t.Records() {
		if msgtype.IsJoined(rec.Type) {
			continue
		}
		ts := time.UnixMilli(rec.DateSent).In(r.loc)
		if day := ts.Format(time.DateOnly); day != prevDay {
			prevDay = day
			conv.Records = append(conv.Records, Record{
				Kind:      KindDate,
				Body:      ts.Format(DateSeparatorLayout),
				Timestamp: ts,
			})
		}
		conv.Records = append(conv.Records, r.record(conv, rec, ts))
	}
	return conv
}

func (r *Renderer) record(conv *Conversation, rec *models.MessageRecord, ts time.Time) Record {
	out := Record{
		Kind:       KindMessage,
		ID:         rec.Key(),
		Type:       msgtype.NameOf(rec.Type),
		Timestamp:  ts,
		SenderName: rec.Addr.DisplayName(),
		SenderIdx:  conv.Colors.Index(rec.Addr),
		IsGroup:    conv.IsGroup,
		IsCall:     msgtype.IsCall(rec.Type) || msgtype.IsGroupCall(rec.Type),
		Outgoing:   msgtype.IsOutgoing(rec.Type),
		Delivered:  rec.DeliveryReceipts,
		Read:       rec.ReadReceipts,
		Viewed:     rec.ViewedReceipts,
	}
	if msgtype.IsEvent(rec.Type) {
		out.Kind = KindEvent
		out.Body = markup(r.describeEvent(conv, rec), nil)
	} else {
		out.Body = Body(rec.Text(), rec.Mentions)
		out.IsAllEmoji = IsAllEmoji(rec.Text())
	}

	for _, a := range rec.Attachments {
		if !a.Quote {
			out.Attachments = append(out.Attachments, a)
		}
	}
	if q := rec.Quote; q != nil {
		out.Quote = &Quote{Author: q.Author.DisplayName(), Body: Body(q.Text, q.Mentions)}
		for _, a := range rec.Attachments {
			if a.Quote {
				out.Quote.Attachments = append(out.Quote.Attachments, a)
			}
		}
	}
	for _, re := range rec.Reactions {
		out.Reactions = append(out.Reactions, Reaction{
			Emoji:  re.What,
			Sender: re.Recipient.DisplayName(),
			Time:   time.UnixMilli(re.SentTime).In(r.loc),
		})
	}
	return out
}

// describeEvent returns the plain text shown for a system event.
func (r *Renderer) describeEvent(conv *Conversation, rec *models.MessageRecord) string {
	sender := rec.Addr.DisplayName()
	switch {
	case msgtype.IsIncomingCall(rec.Type):
		return conv.Name + " called you"
	case msgtype.IsOutgoingCall(rec.Type):
		return "You called"
	case msgtype.IsMissedCall(rec.Type):
		return "Missed call"
	case msgtype.IsGroupCall(rec.Type):
		if gc, ok := rec.Data.(*models.GroupCallData); ok && gc.InitiatorName != "" {
			return "Group call started by " + gc.InitiatorName
		}
		return "Group call"
	case msgtype.IsGV1Migration(rec.Type):
		return "This group was upgraded to a New Group."
	case msgtype.IsKeyUpdate(rec.Type):
		return fmt.Sprintf("Your safety number with %s has changed.", sender)
	}
	switch data := rec.Data.(type) {
	case *models.GroupUpdateV1:
		return describeGroupUpdate(sender, &data.GroupUpdateData)
	case *models.GroupUpdateV2:
		return describeGroupUpdate(sender, &data.GroupUpdateData)
	}
	return fmt.Sprintf("%s updated the group.", orSomeone(sender))
}

func describeGroupUpdate(sender string, data *models.GroupUpdateData) string {
	actor := sender
	if data.ChangedBy != nil && data.ChangedBy.Name != "" {
		actor = data.ChangedBy.Name
	}
	actor = orSomeone(actor)

	var lines []string
	if len(data.Added) > 0 {
		lines = append(lines, fmt.Sprintf("%s added %s.", actor, memberNames(data.Added, false)))
	}
	if len(data.Removed) > 0 {
		lines = append(lines, fmt.Sprintf("%s removed %s.", actor, memberNames(data.Removed, false)))
	}
	if data.Name != nil {
		lines = append(lines, fmt.Sprintf("%s changed the group name to \"%s\".", actor, *data.Name))
	}
	if len(lines) == 0 {
		lines = append(lines, actor+" updated the group.")
	}
	if len(data.Members) > 0 {
		lines = append(lines, "Members: "+memberNames(data.Members, true)+".")
	}
	return strings.Join(lines, " ")
}

func memberNames(members []models.GroupMember, markAdmins bool) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		name := m.Name
		if name == "" {
			name = "Unknown member"
		}
		if markAdmins && m.IsAdmin {
			name += " (admin)"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func orSomeone(name string) string {
	if name == "" {
		return "Someone"
	}
	return name
}
