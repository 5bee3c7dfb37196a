// Package models holds the version-independent view of a Signal backup:
// recipients, threads and the messages inside them.
package models

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"signal2html/pkg/util"
)

// Recipient is an individual contact or a group.
type Recipient struct {
	// ID is a numeric recipient id on modern schemas and a minted or
	// preference-table id on legacy ones.
	ID      string
	Name    string
	Color   string
	IsGroup bool
	Phone   string
	UUID    string
	GroupID string
}

// DisplayName is nil-safe.
func (r *Recipient) DisplayName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

type MessageKind int

const (
	KindSMS MessageKind = iota
	KindMMS
)

func (k MessageKind) String() string {
	if k == KindMMS {
		return "mms"
	}
	return "sms"
}

// Mention replaces a run of placeholder codepoints in a body.
type Mention struct {
	Offset int
	Length int
	Name   string
}

type Quote struct {
	ID       int64
	Author   *Recipient
	Text     string
	Mentions map[int]Mention
}

type Attachment struct {
	ID          int64
	UniqueID    int64
	ContentType string
	// FileRef is a link relative to the conversation output, empty when the
	// blob is missing from the backup.
	FileRef   string
	VoiceNote bool
	Width     int
	Height    int
	Quote     bool
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

func (a Attachment) IsVideo() bool {
	return strings.HasPrefix(a.ContentType, "video/")
}

func (a Attachment) IsAudio() bool {
	return strings.HasPrefix(a.ContentType, "audio/")
}

type Reaction struct {
	Recipient    *Recipient
	What         string
	SentTime     int64
	ReceivedTime int64
}

// MessageRecord is one row of the sms or mms table. MMS-only fields stay
// empty for SMS records.
type MessageRecord struct {
	Kind         MessageKind
	ID           int64
	ThreadID     int64
	Addr         *Recipient
	Conversation *Recipient
	DateSent     int64
	DateReceived int64
	Body         *string
	Type         int64

	DeliveryReceipts int
	ReadReceipts     int
	ViewedReceipts   int

	Quote       *Quote
	Attachments []Attachment
	Reactions   []Reaction
	Mentions    map[int]Mention
	Data        EventData
}

// Text returns the body or an empty string.
func (m *MessageRecord) Text() string {
	if m.Body == nil {
		return ""
	}
	return *m.Body
}

// Key is unique across both message tables.
func (m *MessageRecord) Key() string {
	return m.Kind.String() + "-" + strconv.FormatInt(m.ID, 10)
}

// Thread is one conversation.
type Thread struct {
	ID        int64
	Recipient *Recipient
	Members   []*Recipient
	SMS       []*MessageRecord
	MMS       []*MessageRecord

	outputName string
}

func (t *Thread) IsGroup() bool {
	return t.Recipient != nil && t.Recipient.IsGroup
}

// Name is the display name of the conversation.
func (t *Thread) Name() string {
	return strings.TrimSpace(t.Recipient.DisplayName())
}

// SaneName is usable as a file or directory name. It is unique among threads
// passed to AssignOutputNames.
func (t *Thread) SaneName() string {
	if t.outputName != "" {
		return t.outputName
	}
	return t.baseName()
}

func (t *Thread) baseName() string {
	if t.Recipient.Name != "" {
		if name := util.SanitizeFilename(t.Recipient.Name); name != "" {
			return name
		}
	}
	return "#" + t.Recipient.ID
}

// AssignOutputNames gives every thread a distinct SaneName. Threads whose
// names collide, ignoring case, get the recipient id appended.
func AssignOutputNames(threads []*Thread) {
	used := make(map[string]struct{}, len(threads))
	for _, t := range threads {
		name := t.baseName()
		if _, taken := used[strings.ToLower(name)]; taken {
			name += "#" + t.Recipient.ID
			for n := 2; ; n++ {
				if _, taken = used[strings.ToLower(name)]; !taken {
					break
				}
				name = t.baseName() + "#" + t.Recipient.ID + "-" + strconv.Itoa(n)
			}
		}
		used[strings.ToLower(name)] = struct{}{}
		t.outputName = name
	}
}

// SanePhone is like SaneName but based on the phone number.
func (t *Thread) SanePhone() string {
	if t.Recipient.Phone != "" {
		return util.SanitizeFilename(t.Recipient.Phone)
	}
	return "#" + t.Recipient.ID
}

// IsEmpty reports whether the thread has no messages at all.
func (t *Thread) IsEmpty() bool {
	return len(t.SMS) == 0 && len(t.MMS) == 0
}

// Records merges both message kinds ordered by sent time. Ties keep SMS
// before MMS and then ascending ids.
func (t *Thread) Records() []*MessageRecord {
	out := make([]*MessageRecord, 0, len(t.SMS)+len(t.MMS))
	out = append(out, t.SMS...)
	out = append(out, t.MMS...)
	slices.SortStableFunc(out, func(a, b *MessageRecord) int {
		return cmp.Or(
			cmp.Compare(a.DateSent, b.DateSent),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}
