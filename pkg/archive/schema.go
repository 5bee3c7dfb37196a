package archive

// schema defines the SQLite archive written by the archive sink
const schema = `
-- Contacts table: every recipient referenced by an exported conversation
CREATE TABLE IF NOT EXISTS contacts (
    id TEXT PRIMARY KEY,     -- Signal recipient id
    name TEXT,
    phone TEXT,
    uuid TEXT,
    color TEXT,
    is_group BOOLEAN DEFAULT FALSE,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Threads table: one row per conversation
CREATE TABLE IF NOT EXISTS threads (
    id INTEGER PRIMARY KEY,  -- Signal thread id
    recipient_id TEXT NOT NULL,
    name TEXT,
    subtitle TEXT,
    is_group BOOLEAN DEFAULT FALSE,
    last_activity_ms INTEGER,
    member_count INTEGER DEFAULT 2,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (recipient_id) REFERENCES contacts(id)
);

-- Thread participants: maps contacts to threads
CREATE TABLE IF NOT EXISTS thread_participants (
    thread_id INTEGER NOT NULL,
    contact_id TEXT NOT NULL,
    color_index INTEGER DEFAULT 0,
    PRIMARY KEY (thread_id, contact_id),
    FOREIGN KEY (thread_id) REFERENCES threads(id),
    FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

-- Messages table: stores all rendered records except date separators
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,              -- "sms-<id>" or "mms-<id>"
    thread_id INTEGER NOT NULL,
    sender_id TEXT NOT NULL,
    kind TEXT NOT NULL,               -- message or event
    type TEXT NOT NULL,               -- named message type
    text TEXT,                        -- raw body, indexed for search
    html TEXT,                        -- rendered body
    timestamp_ms INTEGER NOT NULL,
    received_ms INTEGER,
    quote_id INTEGER,
    quote_author_id TEXT,
    quote_text TEXT,
    delivery_receipts INTEGER DEFAULT 0,
    read_receipts INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (thread_id) REFERENCES threads(id),
    FOREIGN KEY (sender_id) REFERENCES contacts(id)
);

-- Attachments table: stores message attachments
CREATE TABLE IF NOT EXISTS attachments (
    id INTEGER PRIMARY KEY,           -- Signal part id
    message_id TEXT NOT NULL,
    unique_id INTEGER,
    mime_type TEXT,
    file_ref TEXT,                    -- NULL when the blob was missing
    width INTEGER,
    height INTEGER,
    is_voice_note BOOLEAN DEFAULT FALSE,
    is_quote BOOLEAN DEFAULT FALSE,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (message_id) REFERENCES messages(id)
);

-- Reactions table: stores reactions to messages
CREATE TABLE IF NOT EXISTS reactions (
    message_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    reaction TEXT NOT NULL,            -- Unicode emoji
    timestamp_ms INTEGER NOT NULL,
    PRIMARY KEY (message_id, actor_id),
    FOREIGN KEY (message_id) REFERENCES messages(id),
    FOREIGN KEY (actor_id) REFERENCES contacts(id)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_messages_thread_id ON messages(thread_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender_id ON messages(sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_threads_last_activity ON threads(last_activity_ms);
CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id);
CREATE INDEX IF NOT EXISTS idx_reactions_message_id ON reactions(message_id);
CREATE INDEX IF NOT EXISTS idx_thread_participants_contact ON thread_participants(contact_id);

-- Full-text search over raw message bodies (FTS4 for broader compatibility)
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts4(
    text,
    tokenize=unicode61
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(docid, text)
    SELECT NEW.rowid, NEW.text
    WHERE NEW.text IS NOT NULL AND NEW.text != '';
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    DELETE FROM messages_fts WHERE docid = OLD.rowid;
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    DELETE FROM messages_fts WHERE docid = OLD.rowid;
    INSERT INTO messages_fts(docid, text)
    SELECT NEW.rowid, NEW.text
    WHERE NEW.text IS NOT NULL AND NEW.text != '';
END;

-- Metadata table: schema version and export provenance
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT,
    updated_at INTEGER NOT NULL
);
`

type migration struct {
	Version    int
	Statements []string
}

// migrations run in order, tracked via sync_metadata.schema_version.
var migrations = []migration{
	{
		Version: 1,
		Statements: []string{
			`ALTER TABLE messages ADD COLUMN viewed_receipts INTEGER DEFAULT 0;`,
		},
	},
	{
		Version: 2,
		Statements: []string{
			`ALTER TABLE messages ADD COLUMN is_all_emoji BOOLEAN DEFAULT FALSE;`,
			`CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(type);`,
		},
	},
}
