package signaldb

import "database/sql"

// Query result types

type GroupRow struct {
	ID      int64
	GroupID string
	Title   sql.NullString
	// Members is a comma-separated list of addresses.
	Members sql.NullString
}

type LegacyRecipientRow struct {
	ID                int64
	Address           string
	SystemDisplayName sql.NullString
	Color             sql.NullString
	ProfileName       sql.NullString
}

type RecipientRow struct {
	ID                int64
	GroupID           sql.NullString
	Phone             sql.NullString
	UUID              sql.NullString
	SystemDisplayName sql.NullString
	ProfileName       sql.NullString
	Color             sql.NullString
}

type ThreadRow struct {
	ID          int64
	RecipientID sql.NullString
}

type SMSRow struct {
	ID               int64
	Address          sql.NullString
	DateReceived     int64
	DateSent         int64
	Body             sql.NullString
	Type             int64
	DeliveryReceipts int
	ReadReceipts     int
}

type MMSRow struct {
	ID               int64
	Address          sql.NullString
	DateSent         int64
	DateReceived     int64
	Body             sql.NullString
	Type             int64
	QuoteID          sql.NullInt64
	QuoteAuthor      sql.NullString
	QuoteBody        sql.NullString
	DeliveryReceipts int
	ReadReceipts     int
	ViewedReceipts   int
	Reactions        []byte
	QuoteMentions    []byte
}

type PartRow struct {
	ID          int64
	ContentType sql.NullString
	UniqueID    sql.NullInt64
	VoiceNote   sql.NullBool
	Width       sql.NullInt64
	Height      sql.NullInt64
	Quote       sql.NullBool
}

type MentionRow struct {
	Start       int
	Length      int
	RecipientID string
}
