// Package records turns the rows of one thread into MessageRecords: senders
// are resolved through the addressbook, embedded payloads are decoded and
// attachments are located on disk.
package records

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"signal2html/pkg/addressbook"
	"signal2html/pkg/models"
	"signal2html/pkg/signaldb"
)

// Source is the part of the backup database the builder reads.
type Source interface {
	Threads(ctx context.Context) ([]signaldb.ThreadRow, error)
	SMS(ctx context.Context, threadID int64) ([]signaldb.SMSRow, error)
	MMS(ctx context.Context, threadID int64) ([]signaldb.MMSRow, error)
	Parts(ctx context.Context, mmsID int64) ([]signaldb.PartRow, error)
	Mentions(ctx context.Context, mmsID int64) ([]signaldb.MentionRow, error)
}

// AttachmentResolver locates the blob of an attachment and returns a link
// relative to the thread's output directory.
type AttachmentResolver interface {
	Resolve(thread *models.Thread, attachmentID, uniqueID int64) (string, error)
}

// Stats counts what was built and what had to be degraded.
type Stats struct {
	SMS                int
	MMS                int
	Attachments        int
	MissingAttachments int
	Reactions          int
	Mentions           int
	DegradedPayloads   int
}

func (s *Stats) Add(o Stats) {
	s.SMS += o.SMS
	s.MMS += o.MMS
	s.Attachments += o.Attachments
	s.MissingAttachments += o.MissingAttachments
	s.Reactions += o.Reactions
	s.Mentions += o.Mentions
	s.DegradedPayloads += o.DegradedPayloads
}

type Builder struct {
	db    Source
	book  addressbook.Addressbook
	files AttachmentResolver
	log   zerolog.Logger
}

// NewBuilder creates a builder. files may be nil, in which case attachments
// carry no file reference.
func NewBuilder(db Source, book addressbook.Addressbook, files AttachmentResolver, log zerolog.Logger) *Builder {
	return &Builder{
		db:    db,
		book:  book,
		files: files,
		log:   log.With().Str("component", "records").Logger(),
	}
}

// Threads lists all conversations with their recipient and members
// resolved. Messages are filled in by Build.
func (b *Builder) Threads(ctx context.Context) ([]*models.Thread, error) {
	rows, err := b.db.Threads(ctx)
	if err != nil {
		return nil, err
	}
	threads := make([]*models.Thread, 0, len(rows))
	for _, row := range rows {
		if !row.RecipientID.Valid || row.RecipientID.String == "" {
			return nil, fmt.Errorf("thread %d has no recipient", row.ID)
		}
		t := &models.Thread{
			ID:        row.ID,
			Recipient: b.book.GetRecipientByAddress(row.RecipientID.String),
		}
		t.Members = b.members(t)
		threads = append(threads, t)
	}
	return threads, nil
}

func (b *Builder) members(t *models.Thread) []*models.Recipient {
	if !t.Recipient.IsGroup {
		return []*models.Recipient{t.Recipient}
	}
	addrs := b.book.GetGroupMembers(t.Recipient.GroupID)
	out := make([]*models.Recipient, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, b.book.GetRecipientByAddress(addr))
	}
	return out
}

// Build fills the SMS and MMS records of a thread. A row that cannot be
// read fails the whole thread; broken payloads only degrade their field.
func (b *Builder) Build(ctx context.Context, t *models.Thread) (Stats, error) {
	var stats Stats
	log := b.log.With().Int64("thread_id", t.ID).Logger()

	smsRows, err := b.db.SMS(ctx, t.ID)
	if err != nil {
		return stats, err
	}
	t.SMS = make([]*models.MessageRecord, 0, len(smsRows))
	for _, row := range smsRows {
		rec := &models.MessageRecord{
			Kind:             models.KindSMS,
			ID:               row.ID,
			ThreadID:         t.ID,
			Addr:             b.sender(t, row.Address.String),
			Conversation:     t.Recipient,
			DateSent:         row.DateSent,
			DateReceived:     row.DateReceived,
			Type:             row.Type,
			DeliveryReceipts: row.DeliveryReceipts,
			ReadReceipts:     row.ReadReceipts,
		}
		if row.Body.Valid {
			rec.Body = &row.Body.String
		}
		rec.Data = b.decodeEvent(log, rec, &stats)
		t.SMS = append(t.SMS, rec)
	}
	stats.SMS = len(t.SMS)

	mmsRows, err := b.db.MMS(ctx, t.ID)
	if err != nil {
		return stats, err
	}
	t.MMS = make([]*models.MessageRecord, 0, len(mmsRows))
	for _, row := range mmsRows {
		rec, err := b.buildMMS(ctx, log, t, row, &stats)
		if err != nil {
			return stats, err
		}
		t.MMS = append(t.MMS, rec)
	}
	stats.MMS = len(t.MMS)

	for _, rec := range t.MMS {
		if err := b.attachAll(ctx, log, t, rec, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// sender resolves a row's address. Rows without one belong to the thread
// recipient.
func (b *Builder) sender(t *models.Thread, address string) *models.Recipient {
	if address == "" {
		return t.Recipient
	}
	return b.book.GetRecipientByAddress(address)
}

func (b *Builder) buildMMS(ctx context.Context, log zerolog.Logger, t *models.Thread, row signaldb.MMSRow, stats *Stats) (*models.MessageRecord, error) {
	rec := &models.MessageRecord{
		Kind:             models.KindMMS,
		ID:               row.ID,
		ThreadID:         t.ID,
		Addr:             b.sender(t, row.Address.String),
		Conversation:     t.Recipient,
		DateSent:         row.DateSent,
		DateReceived:     row.DateReceived,
		Type:             row.Type,
		DeliveryReceipts: row.DeliveryReceipts,
		ReadReceipts:     row.ReadReceipts,
		ViewedReceipts:   row.ViewedReceipts,
		Attachments:      []models.Attachment{},
	}
	if row.Body.Valid {
		rec.Body = &row.Body.String
	}
	if row.QuoteID.Valid && row.QuoteID.Int64 != 0 {
		rec.Quote = &models.Quote{
			ID:       row.QuoteID.Int64,
			Author:   b.quoteAuthor(log, row.QuoteAuthor.String),
			Text:     row.QuoteBody.String,
			Mentions: b.quoteMentions(log, rec, row.QuoteMentions, stats),
		}
	}
	rec.Reactions = b.reactions(log, rec, row.Reactions, stats)

	mentions, err := b.mentions(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.Mentions = mentions
	stats.Mentions += len(mentions)

	rec.Data = b.decodeEvent(log, rec, stats)
	return rec, nil
}

// quoteAuthor resolves the author of a quoted message across the whole
// backup. The placeholder for authors known nowhere is not registered.
func (b *Builder) quoteAuthor(log zerolog.Logger, raw string) *models.Recipient {
	if r, ok := b.book.Lookup(raw); ok {
		return r
	}
	if r, ok := b.book.GetRecipientByPhone(raw); ok {
		return r
	}
	if r, ok := b.book.GetRecipientByUUID(raw); ok {
		return r
	}
	log.Info().Str("quote_author", raw).Msg("Quote author not in addressbook, using placeholder")
	return &models.Recipient{ID: raw, Name: raw, Phone: raw}
}

func (b *Builder) mentions(ctx context.Context, rec *models.MessageRecord) (map[int]models.Mention, error) {
	rows, err := b.db.Mentions(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make(map[int]models.Mention, len(rows))
	for _, row := range rows {
		out[row.Start] = models.Mention{
			Offset: row.Start,
			Length: row.Length,
			Name:   b.book.GetRecipientByAddress(row.RecipientID).DisplayName(),
		}
	}
	return out, nil
}

func recipientIDString(id uint64) string {
	return strconv.FormatUint(id, 10)
}
