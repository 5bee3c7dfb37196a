// Package signaldb reads a decrypted Signal backup database. The connection
// is read-only and every column that differs between schema versions comes
// from VersionInfo.
package signaldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"signal2html/pkg/versioninfo"
)

// DB wraps the backup database.
type DB struct {
	db *sql.DB
	vi versioninfo.VersionInfo
}

// Open opens the database at path without write access.
func Open(path string, vi versioninfo.VersionInfo) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DB{db: db, vi: vi}, nil
}

// New wraps an existing connection.
func New(db *sql.DB, vi versioninfo.VersionInfo) *DB {
	return &DB{db: db, vi: vi}
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Version returns the schema version the queries are built for.
func (d *DB) Version() versioninfo.VersionInfo {
	return d.vi
}

// Groups returns every row of the groups table.
func (d *DB) Groups(ctx context.Context) ([]GroupRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT _id, group_id, title, members FROM groups`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var out []GroupRow
	for rows.Next() {
		var g GroupRow
		if err := rows.Scan(&g.ID, &g.GroupID, &g.Title, &g.Members); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// LegacyRecipients returns the recipient_preferences table of schemas that
// address recipients by phone number.
func (d *DB) LegacyRecipients(ctx context.Context) ([]LegacyRecipientRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT _id, recipient_ids, system_display_name, color, signal_profile_name
		FROM recipient_preferences
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipient preferences: %w", err)
	}
	defer rows.Close()

	var out []LegacyRecipientRow
	for rows.Next() {
		var r LegacyRecipientRow
		if err := rows.Scan(&r.ID, &r.Address, &r.SystemDisplayName, &r.Color, &r.ProfileName); err != nil {
			return nil, fmt.Errorf("failed to scan recipient preference: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recipients returns the recipient table of schemas that address
// recipients by id.
func (d *DB) Recipients(ctx context.Context) ([]RecipientRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT _id, group_id, phone, uuid, system_display_name, profile_joined_name, color
		FROM recipient
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var out []RecipientRow
	for rows.Next() {
		var r RecipientRow
		if err := rows.Scan(&r.ID, &r.GroupID, &r.Phone, &r.UUID, &r.SystemDisplayName, &r.ProfileName, &r.Color); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Threads returns all conversations ordered by id.
func (d *DB) Threads(ctx context.Context) ([]ThreadRow, error) {
	query := fmt.Sprintf(`SELECT _id, %s FROM thread ORDER BY _id`, d.vi.ThreadRecipientIDColumn())
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var out []ThreadRow
	for rows.Next() {
		var t ThreadRow
		if err := rows.Scan(&t.ID, &t.RecipientID); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SMS returns the plain text messages of a thread.
func (d *DB) SMS(ctx context.Context, threadID int64) ([]SMSRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT _id, address, date, date_sent, body, type, delivery_receipt_count, read_receipt_count
		FROM sms
		WHERE thread_id = ?
		ORDER BY date_sent, _id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sms of thread %d: %w", threadID, err)
	}
	defer rows.Close()

	var out []SMSRow
	for rows.Next() {
		var m SMSRow
		if err := rows.Scan(&m.ID, &m.Address, &m.DateReceived, &m.DateSent, &m.Body, &m.Type,
			&m.DeliveryReceipts, &m.ReadReceipts); err != nil {
			return nil, fmt.Errorf("failed to scan sms of thread %d: %w", threadID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MMS returns the multi-part messages of a thread.
func (d *DB) MMS(ctx context.Context, threadID int64) ([]MMSRow, error) {
	query := fmt.Sprintf(`
		SELECT _id, address, date, date_received, body, msg_box,
			quote_id, quote_author, quote_body,
			delivery_receipt_count, read_receipt_count, %s, %s, %s
		FROM mms
		WHERE thread_id = ?
		ORDER BY date, _id
	`, d.vi.ViewedReceiptCountColumn(), d.vi.ReactionsQueryColumn(), d.vi.QuoteMentionsQueryColumn())
	rows, err := d.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mms of thread %d: %w", threadID, err)
	}
	defer rows.Close()

	var out []MMSRow
	for rows.Next() {
		var m MMSRow
		if err := rows.Scan(&m.ID, &m.Address, &m.DateSent, &m.DateReceived, &m.Body, &m.Type,
			&m.QuoteID, &m.QuoteAuthor, &m.QuoteBody,
			&m.DeliveryReceipts, &m.ReadReceipts, &m.ViewedReceipts, &m.Reactions, &m.QuoteMentions); err != nil {
			return nil, fmt.Errorf("failed to scan mms of thread %d: %w", threadID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Parts returns the attachment metadata of one multi-part message.
func (d *DB) Parts(ctx context.Context, mmsID int64) ([]PartRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT _id, ct, unique_id, voice_note, width, height, quote
		FROM part
		WHERE mid = ?
		ORDER BY _id
	`, mmsID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parts of mms %d: %w", mmsID, err)
	}
	defer rows.Close()

	var out []PartRow
	for rows.Next() {
		var p PartRow
		if err := rows.Scan(&p.ID, &p.ContentType, &p.UniqueID, &p.VoiceNote, &p.Width, &p.Height, &p.Quote); err != nil {
			return nil, fmt.Errorf("failed to scan part of mms %d: %w", mmsID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Mentions returns the mention rows of one message. Schemas without a
// mention table yield nothing.
func (d *DB) Mentions(ctx context.Context, mmsID int64) ([]MentionRow, error) {
	if !d.vi.AreMentionsSupported() {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT range_start, range_length, recipient_id
		FROM mention
		WHERE message_id = ?
		ORDER BY range_start
	`, mmsID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentions of mms %d: %w", mmsID, err)
	}
	defer rows.Close()

	var out []MentionRow
	for rows.Next() {
		var m MentionRow
		if err := rows.Scan(&m.Start, &m.Length, &m.RecipientID); err != nil {
			return nil, fmt.Errorf("failed to scan mention of mms %d: %w", mmsID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
