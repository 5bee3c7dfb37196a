package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"signal2html/pkg/models"
	"signal2html/pkg/msgtype"
	"signal2html/pkg/render"
)

func str(s string) *string {
	return &s
}

func testConversation(t *testing.T) *render.Conversation {
	t.Helper()
	bob := &models.Recipient{ID: "2", Name: "Bob <B>", Phone: "+15550000002", Color: "purple"}
	me := &models.Recipient{ID: "1", Name: "Me", Color: "red"}
	day1 := time.Date(2022, 3, 14, 10, 0, 0, 0, time.UTC).UnixMilli()
	day2 := time.Date(2022, 3, 15, 9, 0, 0, 0, time.UTC).UnixMilli()
	th := &models.Thread{
		ID:        9,
		Recipient: bob,
		Members:   []*models.Recipient{bob},
		SMS: []*models.MessageRecord{
			{Kind: models.KindSMS, ID: 1, Addr: bob, DateSent: day1, Type: msgtype.BaseInbox, Body: str("see example.com")},
			{Kind: models.KindSMS, ID: 2, Addr: bob, DateSent: day1 + 1000, Type: msgtype.Joined},
			{Kind: models.KindSMS, ID: 3, Addr: bob, DateSent: day2, Type: msgtype.IncomingAudioCall},
		},
		MMS: []*models.MessageRecord{
			{Kind: models.KindMMS, ID: 1, Addr: me, DateSent: day1 + 2000, Type: 23, Body: str("ok"),
				DeliveryReceipts: 1,
				Quote:            &models.Quote{ID: 1, Author: bob, Text: "see example.com"},
				Attachments: []models.Attachment{
					{ID: 5, UniqueID: 50, ContentType: "image/png", FileRef: "./attachments/Attachment_5_50.bin", Width: 320},
					{ID: 6, UniqueID: 60, ContentType: "image/jpeg", Quote: true},
				},
				Reactions: []models.Reaction{{Recipient: bob, What: "\U0001F44D", SentTime: day1 + 3000}}},
		},
	}
	return render.New(time.UTC, zerolog.Nop()).Conversation(th)
}

func TestJSONL_WritesOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONL(&buf)
	require.NoError(t, s.WriteConversation(context.Background(), testConversation(t)))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	for _, line := range lines {
		require.True(t, gjson.Valid(line), line)
		assert.Equal(t, int64(9), gjson.Get(line, "thread_id").Int())
		assert.Equal(t, "Bob <B>", gjson.Get(line, "thread").String())
	}

	assert.Equal(t, "date", gjson.Get(lines[0], "kind").String())
	assert.Equal(t, "Mon, Mar 14, 2022", gjson.Get(lines[0], "body").String())

	first := lines[1]
	assert.Equal(t, "sms-1", gjson.Get(first, "id").String())
	assert.Equal(t, "incoming", gjson.Get(first, "type").String())
	assert.Equal(t, `see <a href="http://example.com" target="_blank">example.com</a>`, gjson.Get(first, "body").String())
	assert.False(t, gjson.Get(first, "attachments").Exists())

	reply := lines[2]
	assert.True(t, gjson.Get(reply, "outgoing").Bool())
	assert.Equal(t, int64(1), gjson.Get(reply, "delivered").Int())
	assert.Equal(t, "./attachments/Attachment_5_50.bin", gjson.Get(reply, "attachments.0.file").String())
	assert.Equal(t, "Bob <B>", gjson.Get(reply, "quote.author").String())
	assert.Equal(t, "image/jpeg", gjson.Get(reply, "quote.attachments.0.content_type").String())
	assert.False(t, gjson.Get(reply, "quote.attachments.0.file").Exists())
	assert.Equal(t, "\U0001F44D", gjson.Get(reply, "reactions.0.emoji").String())

	assert.Equal(t, "event", gjson.Get(lines[4], "kind").String())
	assert.Equal(t, "Bob &lt;B&gt; called you", gjson.Get(lines[4], "body").String())
}

func TestCreateJSONL_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.jsonl")
	s, err := CreateJSONL(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteConversation(context.Background(), testConversation(t)))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "\n"))
}

func TestHTML_WritesPage(t *testing.T) {
	dir := t.TempDir()
	s := NewHTML(dir, zerolog.Nop())
	conv := testConversation(t)
	require.NoError(t, s.WriteConversation(context.Background(), conv))

	path := s.PagePath(conv)
	assert.Equal(t, filepath.Join(dir, conv.SaneName, conv.SaneName+".html"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "<title>Bob &lt;B&gt;</title>")
	assert.Contains(t, page, `<a href="http://example.com" target="_blank">example.com</a>`)
	assert.Contains(t, page, `<img src="./attachments/Attachment_5_50.bin" width="320" alt="image">`)
	assert.Contains(t, page, "Attachment unavailable (image/jpeg)")
	assert.Contains(t, page, ".msg-sender-0 {")
	assert.Contains(t, page, "Bob &lt;B&gt; called you")
	assert.Contains(t, page, "Tue, Mar 15, 2022")
	assert.NotContains(t, page, "sms-2")
}

func TestArchive_PersistsConversation(t *testing.T) {
	s, err := OpenArchive(":memory:")
	require.NoError(t, err)
	defer s.Close()

	conv := testConversation(t)
	require.NoError(t, s.WriteConversation(context.Background(), conv))
	// rewriting a conversation replaces rows instead of duplicating them
	require.NoError(t, s.WriteConversation(context.Background(), conv))

	stats, err := s.Store().GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ThreadCount)
	assert.Equal(t, int64(2), stats.ContactCount)
	assert.Equal(t, int64(3), stats.MessageCount, "joined records are not exported")
	assert.Equal(t, int64(2), stats.AttachmentCount)
	assert.Equal(t, int64(1), stats.ReactionCount)

	hits, err := s.Store().SearchMessages("example", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "sms-1", hits[0].ID)
	assert.Equal(t, "Bob <B>", hits[0].SenderName)
	assert.Contains(t, hits[0].HTML, "<a href=")

	threads, err := s.Store().ListThreads(10)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "+15550000002", threads[0].Subtitle)
	assert.Equal(t, int64(2), threads[0].MemberCount)
}

func TestArchive_CanceledContext(t *testing.T) {
	s, err := OpenArchive(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.WriteConversation(ctx, testConversation(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

type failingSink struct{ closed bool }

func (f *failingSink) WriteConversation(context.Context, *render.Conversation) error {
	return errors.New("disk full")
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestMulti_StopsAtFirstErrorAndClosesAll(t *testing.T) {
	var buf bytes.Buffer
	bad := &failingSink{}
	m := Multi{bad, NewJSONL(&buf)}

	err := m.WriteConversation(context.Background(), testConversation(t))
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, buf.Len())

	require.NoError(t, m.Close())
	assert.True(t, bad.closed)
}
