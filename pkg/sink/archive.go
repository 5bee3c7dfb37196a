package sink

import (
	"context"
	"fmt"
	"sync"

	"signal2html/pkg/archive"
	"signal2html/pkg/models"
	"signal2html/pkg/render"
)

// Archive persists conversations into a searchable SQLite archive.
type Archive struct {
	mu    sync.Mutex
	store *archive.Archive
	owned bool
}

// OpenArchive creates or opens the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	store, err := archive.New(path)
	if err != nil {
		return nil, err
	}
	return &Archive{store: store, owned: true}, nil
}

// NewArchive writes into an already open store; Close leaves it open.
func NewArchive(store *archive.Archive) *Archive {
	return &Archive{store: store}
}

// Store returns the underlying archive.
func (s *Archive) Store() *archive.Archive {
	return s.store
}

func (s *Archive) WriteConversation(ctx context.Context, conv *render.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	if err := writeConversation(tx, conv); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to archive thread %d: %w", conv.ThreadID, err)
	}
	return tx.Commit()
}

func writeConversation(tx *archive.Tx, conv *render.Conversation) error {
	t := conv.Thread
	contacts := newContactSet(tx)
	if err := contacts.add(t.Recipient); err != nil {
		return err
	}

	byKey := make(map[string]*models.MessageRecord)
	var lastActivity int64
	for _, rec := range t.Records() {
		byKey[rec.Key()] = rec
		lastActivity = max(lastActivity, rec.DateSent)
	}

	if err := tx.UpsertThread(&archive.Thread{
		ID:             t.ID,
		RecipientID:    t.Recipient.ID,
		Name:           conv.Name,
		Subtitle:       conv.Subtitle,
		IsGroup:        conv.IsGroup,
		LastActivityMs: lastActivity,
		MemberCount:    int64(len(t.Members) + 1),
	}); err != nil {
		return err
	}
	for _, m := range t.Members {
		if err := contacts.add(m); err != nil {
			return err
		}
		if err := tx.AddParticipant(t.ID, m.ID, conv.Colors.Index(m)); err != nil {
			return err
		}
	}

	for _, out := range conv.Records {
		rec, ok := byKey[out.ID]
		if !ok {
			continue
		}
		if err := writeRecord(tx, contacts, t, rec, &out); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(tx *archive.Tx, contacts *contactSet, t *models.Thread, rec *models.MessageRecord, out *render.Record) error {
	sender := rec.Addr
	if sender == nil {
		sender = t.Recipient
	}
	if err := contacts.add(sender); err != nil {
		return err
	}
	msg := &archive.Message{
		ID:               out.ID,
		ThreadID:         t.ID,
		SenderID:         sender.ID,
		Kind:             string(out.Kind),
		Type:             string(out.Type),
		HTML:             out.Body,
		TimestampMs:      rec.DateSent,
		ReceivedMs:       rec.DateReceived,
		DeliveryReceipts: rec.DeliveryReceipts,
		ReadReceipts:     rec.ReadReceipts,
		ViewedReceipts:   rec.ViewedReceipts,
		IsAllEmoji:       out.IsAllEmoji,
	}
	if out.Kind == render.KindMessage {
		msg.Text = rec.Text()
	}
	if q := rec.Quote; q != nil {
		if err := contacts.add(q.Author); err != nil {
			return err
		}
		msg.QuoteID = q.ID
		msg.QuoteText = q.Text
		if q.Author != nil {
			msg.QuoteAuthorID = q.Author.ID
		}
	}
	if err := tx.UpsertMessage(msg); err != nil {
		return err
	}

	for i := range rec.Attachments {
		if err := tx.UpsertAttachment(msg.ID, &rec.Attachments[i]); err != nil {
			return err
		}
	}
	for i := range rec.Reactions {
		re := &rec.Reactions[i]
		if re.Recipient == nil {
			continue
		}
		if err := contacts.add(re.Recipient); err != nil {
			return err
		}
		if err := tx.UpsertReaction(msg.ID, re); err != nil {
			return err
		}
	}
	return nil
}

// contactSet upserts each recipient once per transaction.
type contactSet struct {
	tx   *archive.Tx
	seen map[string]struct{}
}

func newContactSet(tx *archive.Tx) *contactSet {
	return &contactSet{tx: tx, seen: make(map[string]struct{})}
}

func (c *contactSet) add(r *models.Recipient) error {
	if r == nil {
		return nil
	}
	if _, ok := c.seen[r.ID]; ok {
		return nil
	}
	c.seen[r.ID] = struct{}{}
	return c.tx.UpsertContact(r)
}

func (s *Archive) Close() error {
	if !s.owned {
		return nil
	}
	return s.store.Close()
}
