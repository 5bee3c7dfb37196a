package signaltest

// schemaFor returns the subset of the Signal schema the exporter reads, in
// the shape it had at version.
func schemaFor(version int) []string {
	var stmts []string
	if version < 24 {
		stmts = append(stmts, `
			CREATE TABLE recipient_preferences (
				_id INTEGER PRIMARY KEY AUTOINCREMENT,
				recipient_ids TEXT UNIQUE,
				block INTEGER DEFAULT 0,
				color TEXT DEFAULT NULL,
				system_display_name TEXT DEFAULT NULL,
				signal_profile_name TEXT DEFAULT NULL
			)`)
	} else {
		stmts = append(stmts, `
			CREATE TABLE recipient (
				_id INTEGER PRIMARY KEY AUTOINCREMENT,
				uuid TEXT UNIQUE DEFAULT NULL,
				phone TEXT UNIQUE DEFAULT NULL,
				group_id TEXT UNIQUE DEFAULT NULL,
				color TEXT DEFAULT NULL,
				system_display_name TEXT DEFAULT NULL,
				profile_joined_name TEXT DEFAULT NULL
			)`)
	}

	threadRecipient := "recipient_ids TEXT"
	if version >= 108 {
		threadRecipient = "thread_recipient_id INTEGER"
	} else if version >= 24 {
		threadRecipient = "recipient_ids INTEGER"
	}
	stmts = append(stmts,
		`CREATE TABLE groups (
			_id INTEGER PRIMARY KEY,
			group_id TEXT,
			title TEXT,
			members TEXT,
			avatar_id INTEGER,
			active INTEGER DEFAULT 1
		)`,
		`CREATE TABLE thread (
			_id INTEGER PRIMARY KEY AUTOINCREMENT,
			date INTEGER DEFAULT 0,
			message_count INTEGER DEFAULT 0,
			`+threadRecipient+`,
			snippet TEXT
		)`,
		`CREATE TABLE sms (
			_id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id INTEGER,
			address TEXT,
			date INTEGER,
			date_sent INTEGER,
			body TEXT,
			type INTEGER,
			delivery_receipt_count INTEGER DEFAULT 0,
			read_receipt_count INTEGER DEFAULT 0
		)`,
		`CREATE TABLE part (
			_id INTEGER PRIMARY KEY,
			mid INTEGER,
			ct TEXT,
			unique_id INTEGER NOT NULL,
			voice_note INTEGER DEFAULT 0,
			width INTEGER DEFAULT 0,
			height INTEGER DEFAULT 0,
			quote INTEGER DEFAULT 0
		)`,
	)

	mms := `CREATE TABLE mms (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id INTEGER,
		address TEXT,
		date INTEGER,
		date_received INTEGER,
		body TEXT,
		msg_box INTEGER,
		quote_id INTEGER DEFAULT 0,
		quote_author TEXT,
		quote_body TEXT,
		delivery_receipt_count INTEGER DEFAULT 0,
		read_receipt_count INTEGER DEFAULT 0`
	if version >= 37 {
		mms += ",\n\t\treactions BLOB DEFAULT NULL"
	}
	if version >= 68 {
		mms += ",\n\t\tquote_mentions BLOB DEFAULT NULL"
	}
	if version >= 83 {
		mms += ",\n\t\tviewed_receipt_count INTEGER DEFAULT 0"
	}
	stmts = append(stmts, mms+"\n\t)")

	if version >= 68 {
		stmts = append(stmts, `
			CREATE TABLE mention (
				_id INTEGER PRIMARY KEY AUTOINCREMENT,
				thread_id INTEGER,
				message_id INTEGER,
				recipient_id INTEGER,
				range_start INTEGER,
				range_length INTEGER
			)`)
	}
	return stmts
}
