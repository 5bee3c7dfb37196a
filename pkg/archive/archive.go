// Package archive stores exported conversations in a searchable SQLite database.
package archive

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signal2html/pkg/models"
)

// Archive handles all database operations for the export archive
type Archive struct {
	db *sql.DB
}

// New creates a new Archive and initializes the database
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	a := &Archive{db: db}
	if err := a.init(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) init() error {
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return a.runMigrations()
}

func (a *Archive) runMigrations() error {
	currentVersion, err := a.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := a.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		for _, stmt := range m.Statements {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil && !isIgnorableMigrationError(err) {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
		}
		if err := setMetadata(tx, "schema_version", strconv.Itoa(m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema_version for migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		currentVersion = m.Version
	}
	return nil
}

// SchemaVersion returns the last applied migration, 0 for a fresh schema.
func (a *Archive) SchemaVersion() (int, error) {
	value, err := a.GetSyncMetadata("schema_version")
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid schema_version %q: %w", value, err)
	}
	return v, nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column name") ||
		strings.Contains(msg, "already exists")
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Tx groups the writes for one conversation.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (a *Archive) Begin() (*Tx, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// UpsertContact inserts or updates a recipient
func (t *Tx) UpsertContact(r *models.Recipient) error {
	now := time.Now().UnixMilli()
	_, err := t.tx.Exec(`
		INSERT INTO contacts (id, name, phone, uuid, color, is_group, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = COALESCE(excluded.phone, contacts.phone),
			uuid = COALESCE(excluded.uuid, contacts.uuid),
			color = excluded.color,
			is_group = excluded.is_group,
			updated_at = excluded.updated_at
	`, r.ID, r.Name, nullIfEmpty(r.Phone), nullIfEmpty(r.UUID), nullIfEmpty(r.Color),
		r.IsGroup, now, now)
	return err
}

// UpsertThread inserts or updates a thread
func (t *Tx) UpsertThread(th *Thread) error {
	now := time.Now().UnixMilli()
	_, err := t.tx.Exec(`
		INSERT INTO threads (id, recipient_id, name, subtitle, is_group, last_activity_ms, member_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recipient_id = excluded.recipient_id,
			name = excluded.name,
			subtitle = excluded.subtitle,
			is_group = excluded.is_group,
			last_activity_ms = excluded.last_activity_ms,
			member_count = excluded.member_count,
			updated_at = excluded.updated_at
	`, th.ID, th.RecipientID, th.Name, nullIfEmpty(th.Subtitle), th.IsGroup,
		nullIfZero(th.LastActivityMs), th.MemberCount, now, now)
	return err
}

// AddParticipant adds a contact to a thread
func (t *Tx) AddParticipant(threadID int64, contactID string, colorIndex int) error {
	_, err := t.tx.Exec(`
		INSERT INTO thread_participants (thread_id, contact_id, color_index)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id, contact_id) DO UPDATE SET
			color_index = excluded.color_index
	`, threadID, contactID, colorIndex)
	return err
}

// UpsertMessage inserts or replaces an exported record
func (t *Tx) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := t.tx.Exec(`
		INSERT INTO messages (id, thread_id, sender_id, kind, type, text, html, timestamp_ms, received_ms,
			quote_id, quote_author_id, quote_text, delivery_receipts, read_receipts, viewed_receipts,
			is_all_emoji, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			thread_id = excluded.thread_id,
			sender_id = excluded.sender_id,
			kind = excluded.kind,
			type = excluded.type,
			text = excluded.text,
			html = excluded.html,
			timestamp_ms = excluded.timestamp_ms,
			received_ms = excluded.received_ms,
			quote_id = excluded.quote_id,
			quote_author_id = excluded.quote_author_id,
			quote_text = excluded.quote_text,
			delivery_receipts = excluded.delivery_receipts,
			read_receipts = excluded.read_receipts,
			viewed_receipts = excluded.viewed_receipts,
			is_all_emoji = excluded.is_all_emoji
	`, m.ID, m.ThreadID, m.SenderID, m.Kind, m.Type, nullIfEmpty(m.Text), nullIfEmpty(m.HTML),
		m.TimestampMs, nullIfZero(m.ReceivedMs), nullIfZero(m.QuoteID), nullIfEmpty(m.QuoteAuthorID),
		nullIfEmpty(m.QuoteText), m.DeliveryReceipts, m.ReadReceipts, m.ViewedReceipts,
		m.IsAllEmoji, now)
	return err
}

// UpsertAttachment inserts or updates an attachment
func (t *Tx) UpsertAttachment(messageID string, att *models.Attachment) error {
	now := time.Now().UnixMilli()
	_, err := t.tx.Exec(`
		INSERT INTO attachments (id, message_id, unique_id, mime_type, file_ref, width, height, is_voice_note, is_quote, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message_id = excluded.message_id,
			mime_type = excluded.mime_type,
			file_ref = excluded.file_ref,
			width = excluded.width,
			height = excluded.height,
			is_voice_note = excluded.is_voice_note,
			is_quote = excluded.is_quote
	`, att.ID, messageID, att.UniqueID, nullIfEmpty(att.ContentType), nullIfEmpty(att.FileRef),
		nullIfZero(int64(att.Width)), nullIfZero(int64(att.Height)), att.VoiceNote, att.Quote, now)
	return err
}

// UpsertReaction inserts or updates a reaction. One reaction per actor.
func (t *Tx) UpsertReaction(messageID string, r *models.Reaction) error {
	_, err := t.tx.Exec(`
		INSERT INTO reactions (message_id, actor_id, reaction, timestamp_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, actor_id) DO UPDATE SET
			reaction = excluded.reaction,
			timestamp_ms = excluded.timestamp_ms
	`, messageID, r.Recipient.ID, r.What, r.SentTime)
	return err
}

func setMetadata(e execer, key, value string) error {
	_, err := e.Exec(`
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	return err
}

// SetSyncMetadata sets a metadata value
func (a *Archive) SetSyncMetadata(key, value string) error {
	return setMetadata(a.db, key, value)
}

// GetSyncMetadata gets a metadata value, empty when unset
func (a *Archive) GetSyncMetadata(key string) (string, error) {
	var value string
	err := a.db.QueryRow(`SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

const messageColumns = `
	SELECT m.id, m.thread_id, m.sender_id, m.kind, m.type, m.text, m.html, m.timestamp_ms,
		   c.name as sender_name, t.name as thread_name`

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var text, html, senderName, threadName sql.NullString
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Kind, &m.Type, &text, &html,
			&m.TimestampMs, &senderName, &threadName); err != nil {
			return nil, err
		}
		m.Text = text.String
		m.HTML = html.String
		m.SenderName = senderName.String
		m.ThreadName = threadName.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SearchMessages performs a full-text search on message bodies
func (a *Archive) SearchMessages(query string, limit int) ([]Message, error) {
	rows, err := a.db.Query(messageColumns+`
		FROM messages_fts
		JOIN messages m ON messages_fts.docid = m.rowid
		LEFT JOIN contacts c ON m.sender_id = c.id
		LEFT JOIN threads t ON m.thread_id = t.id
		WHERE messages_fts MATCH ?
		ORDER BY m.timestamp_ms DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// GetConversation retrieves the newest messages of a thread, optionally
// only those before beforeTimestamp.
func (a *Archive) GetConversation(threadID int64, limit int, beforeTimestamp int64) ([]Message, error) {
	if beforeTimestamp <= 0 {
		beforeTimestamp = 1<<63 - 1
	}
	rows, err := a.db.Query(messageColumns+`
		FROM messages m
		LEFT JOIN contacts c ON m.sender_id = c.id
		LEFT JOIN threads t ON m.thread_id = t.id
		WHERE m.thread_id = ? AND m.timestamp_ms < ?
		ORDER BY m.timestamp_ms DESC
		LIMIT ?
	`, threadID, beforeTimestamp, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// GetMessagesBySenderName retrieves messages by sender name (partial match)
func (a *Archive) GetMessagesBySenderName(name string, limit int) ([]Message, error) {
	rows, err := a.db.Query(messageColumns+`
		FROM messages m
		LEFT JOIN contacts c ON m.sender_id = c.id
		LEFT JOIN threads t ON m.thread_id = t.id
		WHERE c.name LIKE ? AND m.text IS NOT NULL AND m.text != ''
		ORDER BY m.timestamp_ms DESC
		LIMIT ?
	`, "%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ListContacts returns all named contacts
func (a *Archive) ListContacts() ([]Contact, error) {
	rows, err := a.db.Query(`
		SELECT id, name, phone, uuid, color, is_group
		FROM contacts
		WHERE name IS NOT NULL
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		var phone, uuid, color sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &phone, &uuid, &color, &c.IsGroup); err != nil {
			return nil, err
		}
		c.Phone = phone.String
		c.UUID = uuid.String
		c.Color = color.String
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ListThreads returns threads ordered by last activity
func (a *Archive) ListThreads(limit int) ([]Thread, error) {
	rows, err := a.db.Query(`
		SELECT id, recipient_id, name, subtitle, is_group, last_activity_ms, member_count
		FROM threads
		ORDER BY last_activity_ms DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		var name, subtitle sql.NullString
		var lastActivity, memberCount sql.NullInt64
		if err := rows.Scan(&t.ID, &t.RecipientID, &name, &subtitle, &t.IsGroup,
			&lastActivity, &memberCount); err != nil {
			return nil, err
		}
		t.Name = name.String
		t.Subtitle = subtitle.String
		t.LastActivityMs = lastActivity.Int64
		t.MemberCount = memberCount.Int64
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// GetStats returns database statistics
func (a *Archive) GetStats() (Stats, error) {
	var stats Stats
	for _, q := range []struct {
		table string
		dst   *int64
	}{
		{"messages", &stats.MessageCount},
		{"threads", &stats.ThreadCount},
		{"contacts", &stats.ContactCount},
		{"attachments", &stats.AttachmentCount},
		{"reactions", &stats.ReactionCount},
	} {
		if err := a.db.QueryRow(`SELECT COUNT(*) FROM ` + q.table).Scan(q.dst); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Helper functions
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(i int64) any {
	if i == 0 {
		return nil
	}
	return i
}

// Types for writes and query results

type Message struct {
	ID               string
	ThreadID         int64
	SenderID         string
	Kind             string
	Type             string
	Text             string
	HTML             string
	TimestampMs      int64
	ReceivedMs       int64
	QuoteID          int64
	QuoteAuthorID    string
	QuoteText        string
	DeliveryReceipts int
	ReadReceipts     int
	ViewedReceipts   int
	IsAllEmoji       bool

	SenderName string
	ThreadName string
}

type Contact struct {
	ID      string
	Name    string
	Phone   string
	UUID    string
	Color   string
	IsGroup bool
}

type Thread struct {
	ID             int64
	RecipientID    string
	Name           string
	Subtitle       string
	IsGroup        bool
	LastActivityMs int64
	MemberCount    int64
}

type Stats struct {
	MessageCount    int64
	ThreadCount     int64
	ContactCount    int64
	AttachmentCount int64
	ReactionCount   int64
}
