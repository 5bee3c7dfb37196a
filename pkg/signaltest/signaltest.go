// Package signaltest builds synthetic backup directories with the table
// layout of a given schema version, for use in tests.
package signaltest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DatabaseFile = "database.sqlite"
	VersionFile  = "DatabaseVersion.sbf"
)

// Backup is a backup directory under construction.
type Backup struct {
	t       testing.TB
	DB      *sql.DB
	Dir     string
	Version int
}

// New creates a backup directory with an empty database for version.
func New(t testing.TB, version int) *Backup {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, DatabaseFile))
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	b := &Backup{t: t, DB: db, Dir: dir, Version: version}
	for _, stmt := range schemaFor(version) {
		b.Exec(stmt)
	}
	marker := fmt.Sprintf("DatabaseVersion:%d", version)
	if err := os.WriteFile(filepath.Join(dir, VersionFile), []byte(marker), 0o644); err != nil {
		t.Fatalf("failed to write version marker: %v", err)
	}
	return b
}

// Path is the location of the database file.
func (b *Backup) Path() string {
	return filepath.Join(b.Dir, DatabaseFile)
}

func (b *Backup) Exec(query string, args ...any) sql.Result {
	b.t.Helper()
	res, err := b.DB.Exec(query, args...)
	if err != nil {
		b.t.Fatalf("fixture statement failed: %v\n%s", err, query)
	}
	return res
}

func (b *Backup) insert(query string, args ...any) int64 {
	b.t.Helper()
	id, err := b.Exec(query, args...).LastInsertId()
	if err != nil {
		b.t.Fatalf("failed to read inserted id: %v", err)
	}
	return id
}

func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Recipient is a row of the modern recipient table.
type Recipient struct {
	GroupID     string
	Phone       string
	UUID        string
	SystemName  string
	ProfileName string
	Color       string
}

func (b *Backup) AddRecipient(r Recipient) int64 {
	return b.insert(`
		INSERT INTO recipient (group_id, phone, uuid, system_display_name, profile_joined_name, color)
		VALUES (?, ?, ?, ?, ?, ?)
	`, null(r.GroupID), null(r.Phone), null(r.UUID), null(r.SystemName), null(r.ProfileName), null(r.Color))
}

// AddLegacyRecipient adds a recipient_preferences row keyed by phone number
// or group string.
func (b *Backup) AddLegacyRecipient(address, systemName, profileName, color string) int64 {
	return b.insert(`
		INSERT INTO recipient_preferences (recipient_ids, system_display_name, signal_profile_name, color)
		VALUES (?, ?, ?, ?)
	`, address, null(systemName), null(profileName), null(color))
}

func (b *Backup) AddGroup(groupID, title string, members ...string) int64 {
	return b.insert(`INSERT INTO groups (group_id, title, members) VALUES (?, ?, ?)`,
		groupID, null(title), strings.Join(members, ","))
}

// AddThread adds a conversation with the given recipient reference.
func (b *Backup) AddThread(recipient string) int64 {
	col := "recipient_ids"
	if b.Version >= 108 {
		col = "thread_recipient_id"
	}
	return b.insert(fmt.Sprintf(`INSERT INTO thread (%s) VALUES (?)`, col), recipient)
}

type SMS struct {
	ThreadID     int64
	Address      string
	DateSent     int64
	DateReceived int64
	Body         *string
	Type         int64
	Delivered    int
	Read         int
}

func (b *Backup) AddSMS(m SMS) int64 {
	return b.insert(`
		INSERT INTO sms (thread_id, address, date, date_sent, body, type, delivery_receipt_count, read_receipt_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ThreadID, m.Address, m.DateReceived, m.DateSent, m.Body, m.Type, m.Delivered, m.Read)
}

type MMS struct {
	ThreadID      int64
	Address       string
	DateSent      int64
	DateReceived  int64
	Body          *string
	Type          int64
	QuoteID       int64
	QuoteAuthor   string
	QuoteBody     string
	Delivered     int
	Read          int
	Viewed        int
	Reactions     []byte
	QuoteMentions []byte
}

func (b *Backup) AddMMS(m MMS) int64 {
	cols := []string{"thread_id", "address", "date", "date_received", "body", "msg_box",
		"delivery_receipt_count", "read_receipt_count"}
	args := []any{m.ThreadID, m.Address, m.DateSent, m.DateReceived, m.Body, m.Type, m.Delivered, m.Read}
	if m.QuoteID != 0 {
		cols = append(cols, "quote_id", "quote_author", "quote_body")
		args = append(args, m.QuoteID, m.QuoteAuthor, m.QuoteBody)
	}
	if b.Version >= 37 {
		cols = append(cols, "reactions")
		args = append(args, m.Reactions)
	}
	if b.Version >= 68 {
		cols = append(cols, "quote_mentions")
		args = append(args, m.QuoteMentions)
	}
	if b.Version >= 83 {
		cols = append(cols, "viewed_receipt_count")
		args = append(args, m.Viewed)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return b.insert(fmt.Sprintf(`INSERT INTO mms (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders), args...)
}

type Part struct {
	MessageID   int64
	ContentType string
	UniqueID    int64
	VoiceNote   bool
	Width       int
	Height      int
	Quote       bool
}

func (b *Backup) AddPart(p Part) int64 {
	return b.insert(`
		INSERT INTO part (mid, ct, unique_id, voice_note, width, height, quote)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.MessageID, p.ContentType, p.UniqueID, p.VoiceNote, p.Width, p.Height, p.Quote)
}

// AddBlob writes the attachment file for a part.
func (b *Backup) AddBlob(partID, uniqueID int64, content []byte) string {
	b.t.Helper()
	name := fmt.Sprintf("Attachment_%d_%d.bin", partID, uniqueID)
	if err := os.WriteFile(filepath.Join(b.Dir, name), content, 0o644); err != nil {
		b.t.Fatalf("failed to write attachment blob: %v", err)
	}
	return name
}

func (b *Backup) AddMention(threadID, messageID int64, recipientID string, start, length int) int64 {
	return b.insert(`
		INSERT INTO mention (thread_id, message_id, recipient_id, range_start, range_length)
		VALUES (?, ?, ?, ?, ?)
	`, threadID, messageID, recipientID, start, length)
}

// Str returns a pointer for nullable bodies.
func Str(s string) *string {
	return &s
}
