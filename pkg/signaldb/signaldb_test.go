package signaldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal2html/pkg/signaltest"
	"signal2html/pkg/versioninfo"
)

func open(t *testing.T, b *signaltest.Backup) *DB {
	t.Helper()
	db, err := Open(b.Path(), versioninfo.New(b.Version))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(t.TempDir()+"/nope.sqlite", versioninfo.New(89))
	assert.Error(t, err)
}

func TestThreads_ColumnByVersion(t *testing.T) {
	for _, version := range []int{23, 89, 110} {
		b := signaltest.New(t, version)
		first := b.AddThread("15")
		b.AddThread("+15550000001")

		rows, err := open(t, b).Threads(context.Background())
		require.NoError(t, err, "version %d", version)
		require.Len(t, rows, 2)
		assert.Equal(t, first, rows[0].ID)
		assert.Equal(t, "15", rows[0].RecipientID.String)
	}
}

func TestMMS_VersionDependentColumns(t *testing.T) {
	ctx := context.Background()

	old := signaltest.New(t, 23)
	thread := old.AddThread("+15550000001")
	old.AddMMS(signaltest.MMS{ThreadID: thread, Address: "+15550000001", DateSent: 5, Body: signaltest.Str("hi"), Viewed: 3})
	rows, err := open(t, old).MMS(ctx, thread)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].ViewedReceipts)
	assert.Empty(t, rows[0].Reactions)
	assert.Empty(t, rows[0].QuoteMentions)

	modern := signaltest.New(t, 89)
	thread = modern.AddThread("2")
	modern.AddMMS(signaltest.MMS{ThreadID: thread, Address: "2", DateSent: 5, Body: signaltest.Str("hi"),
		Viewed: 3, Reactions: []byte{1, 2}, QuoteID: 4, QuoteAuthor: "3", QuoteBody: "earlier"})
	rows, err = open(t, modern).MMS(ctx, thread)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].ViewedReceipts)
	assert.Equal(t, []byte{1, 2}, rows[0].Reactions)
	assert.Equal(t, int64(4), rows[0].QuoteID.Int64)
	assert.Equal(t, "earlier", rows[0].QuoteBody.String)
}

func TestSMSAndParts(t *testing.T) {
	ctx := context.Background()
	b := signaltest.New(t, 65)
	thread := b.AddThread("2")
	b.AddSMS(signaltest.SMS{ThreadID: thread, Address: "2", DateSent: 20, DateReceived: 25, Type: 20, Delivered: 1})
	b.AddSMS(signaltest.SMS{ThreadID: thread, Address: "2", DateSent: 10, Body: signaltest.Str("first"), Type: 20})
	mms := b.AddMMS(signaltest.MMS{ThreadID: thread, Address: "2", DateSent: 30})
	b.AddPart(signaltest.Part{MessageID: mms, ContentType: "audio/aac", UniqueID: 9, VoiceNote: true})

	db := open(t, b)
	sms, err := db.SMS(ctx, thread)
	require.NoError(t, err)
	require.Len(t, sms, 2)
	assert.Equal(t, "first", sms[0].Body.String)
	assert.False(t, sms[1].Body.Valid)
	assert.Equal(t, int64(25), sms[1].DateReceived)
	assert.Equal(t, 1, sms[1].DeliveryReceipts)

	parts, err := db.Parts(ctx, mms)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "audio/aac", parts[0].ContentType.String)
	assert.True(t, parts[0].VoiceNote.Bool)
	assert.Equal(t, int64(9), parts[0].UniqueID.Int64)
}

func TestMentions_OnlyOnNewerSchemas(t *testing.T) {
	ctx := context.Background()

	b := signaltest.New(t, 65)
	rows, err := open(t, b).Mentions(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rows)

	b = signaltest.New(t, 89)
	thread := b.AddThread("2")
	mms := b.AddMMS(signaltest.MMS{ThreadID: thread, Address: "2", DateSent: 1, Body: signaltest.Str("\uFFFC hi")})
	b.AddMention(thread, mms, "3", 0, 1)
	rows, err = open(t, b).Mentions(ctx, mms)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, MentionRow{Start: 0, Length: 1, RecipientID: "3"}, rows[0])
}
