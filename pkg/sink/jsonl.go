package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.mau.fi/util/exslices"

	"signal2html/pkg/models"
	"signal2html/pkg/render"
)

type jsonAttachment struct {
	ContentType string `json:"content_type"`
	File        string `json:"file,omitempty"`
	VoiceNote   bool   `json:"voice_note,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type jsonQuote struct {
	Author      string           `json:"author"`
	Body        string           `json:"body"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
}

type jsonReaction struct {
	Emoji  string `json:"emoji"`
	Sender string `json:"sender"`
	Time   string `json:"time"`
}

// jsonRecord is one line of the JSONL output.
type jsonRecord struct {
	ThreadID    int64            `json:"thread_id"`
	Thread      string           `json:"thread"`
	Kind        render.Kind      `json:"kind"`
	ID          string           `json:"id,omitempty"`
	Type        string           `json:"type,omitempty"`
	Timestamp   string           `json:"timestamp"`
	Sender      string           `json:"sender,omitempty"`
	SenderIdx   int              `json:"sender_idx,omitempty"`
	Body        string           `json:"body"`
	AllEmoji    bool             `json:"all_emoji,omitempty"`
	Outgoing    bool             `json:"outgoing,omitempty"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
	Quote       *jsonQuote       `json:"quote,omitempty"`
	Reactions   []jsonReaction   `json:"reactions,omitempty"`
	Delivered   int              `json:"delivered,omitempty"`
	Read        int              `json:"read,omitempty"`
	Viewed      int              `json:"viewed,omitempty"`
}

func toJSONAttachment(a models.Attachment) jsonAttachment {
	return jsonAttachment{
		ContentType: a.ContentType,
		File:        a.FileRef,
		VoiceNote:   a.VoiceNote,
		Width:       a.Width,
		Height:      a.Height,
	}
}

func toJSONReaction(r render.Reaction) jsonReaction {
	return jsonReaction{Emoji: r.Emoji, Sender: r.Sender, Time: r.Time.Format(time.RFC3339)}
}

// JSONL writes every record of every conversation as one JSON object per line.
type JSONL struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewJSONL writes to w. Close flushes but does not close w.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{w: bufio.NewWriter(w)}
}

// CreateJSONL creates the file at path, including missing parent directories.
func CreateJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonl file: %w", err)
	}
	s := NewJSONL(f)
	s.closer = f
	return s, nil
}

func (s *JSONL) WriteConversation(ctx context.Context, conv *render.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)
	for _, rec := range conv.Records {
		line := jsonRecord{
			ThreadID:    conv.ThreadID,
			Thread:      conv.Name,
			Kind:        rec.Kind,
			ID:          rec.ID,
			Type:        string(rec.Type),
			Timestamp:   rec.Timestamp.Format(time.RFC3339),
			Sender:      rec.SenderName,
			SenderIdx:   rec.SenderIdx,
			Body:        rec.Body,
			AllEmoji:    rec.IsAllEmoji,
			Outgoing:    rec.Outgoing,
			Attachments: exslices.CastFunc(rec.Attachments, toJSONAttachment),
			Reactions:   exslices.CastFunc(rec.Reactions, toJSONReaction),
			Delivered:   rec.Delivered,
			Read:        rec.Read,
			Viewed:      rec.Viewed,
		}
		if q := rec.Quote; q != nil {
			line.Quote = &jsonQuote{
				Author:      q.Author,
				Body:        q.Body,
				Attachments: exslices.CastFunc(q.Attachments, toJSONAttachment),
			}
		}
		if err := enc.Encode(&line); err != nil {
			return fmt.Errorf("failed to write record %s of thread %d: %w", rec.ID, conv.ThreadID, err)
		}
	}
	return s.w.Flush()
}

func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
