package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"signal2html/pkg/backup"
	"signal2html/pkg/colors"
	"signal2html/pkg/exportconfig"
	"signal2html/pkg/msgtype"
	"signal2html/pkg/signaltest"
)

func testConfig(t *testing.T, b *signaltest.Backup, formats ...string) *exportconfig.Config {
	t.Helper()
	cfg := exportconfig.Default()
	cfg.Input.BackupDir = b.Dir
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Formats = formats
	cfg.Output.Timezone = "UTC"
	cfg.Processing.Workers = 4
	require.NoError(t, cfg.Validate())
	return cfg
}

func runExport(t *testing.T, cfg *exportconfig.Config) (*Stats, *Sinks) {
	t.Helper()
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	opts.Colors = colors.FixedSource("teal")

	sinks, err := OpenSinks(cfg, zerolog.Nop())
	require.NoError(t, err)

	var calls int
	stats, err := Run(context.Background(), opts, sinks, zerolog.Nop(), func(done, total int) {
		calls++
		assert.LessOrEqual(t, done, total)
	})
	require.NoError(t, err)
	assert.Equal(t, stats.Threads+stats.SkippedThreads, calls)
	return stats, sinks
}

func TestRun_MissingFilesAreFatal(t *testing.T) {
	_, err := Run(context.Background(), Options{BackupDir: t.TempDir()}, nil, zerolog.Nop(), nil)
	assert.True(t, errors.Is(err, backup.ErrDatabaseNotFound), "got %v", err)
}

func TestRun_ModernBackup(t *testing.T) {
	b := signaltest.New(t, 89)
	me := strconv.FormatInt(b.AddRecipient(signaltest.Recipient{Phone: "+15550000000", SystemName: "Me"}), 10)
	alice := strconv.FormatInt(b.AddRecipient(signaltest.Recipient{Phone: "+15550000001", SystemName: "Alice", Color: "red"}), 10)
	bob := strconv.FormatInt(b.AddRecipient(signaltest.Recipient{Phone: "+15550000002", ProfileName: "Bob"}), 10)
	withAlice := b.AddThread(alice)
	b.AddThread(bob)

	b.AddSMS(signaltest.SMS{ThreadID: withAlice, Address: alice, DateSent: 1_600_000_000_000, Body: signaltest.Str("dinner at 8?"), Type: msgtype.BaseInbox})
	photo := b.AddMMS(signaltest.MMS{ThreadID: withAlice, Address: me, DateSent: 1_600_000_060_000, Body: signaltest.Str("sure & bring this"), Type: 23, Delivered: 1})
	part := b.AddPart(signaltest.Part{MessageID: photo, ContentType: "image/jpeg", UniqueID: 77, Width: 640, Height: 480})
	blob := b.AddBlob(part, 77, []byte("jpeg"))
	b.AddPart(signaltest.Part{MessageID: photo, ContentType: "image/png", UniqueID: 78})

	cfg := testConfig(t, b, exportconfig.FormatHTML, exportconfig.FormatJSONL, exportconfig.FormatArchive)
	stats, sinks := runExport(t, cfg)

	assert.Equal(t, 89, stats.Version.Version())
	assert.Equal(t, 1, stats.Threads)
	assert.Equal(t, 1, stats.SkippedThreads)
	assert.Equal(t, 1, stats.SMS)
	assert.Equal(t, 1, stats.MMS)
	assert.Equal(t, 2, stats.Attachments)
	assert.Equal(t, 1, stats.MissingAttachments)
	assert.Equal(t, 3, stats.Recipients)

	require.NoError(t, sinks.RecordProvenance(stats, cfg))
	version, err := sinks.Archive.Store().GetSyncMetadata("backup_version")
	require.NoError(t, err)
	assert.Equal(t, "89", version)
	hits, err := sinks.Archive.Store().SearchMessages("dinner", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Alice", hits[0].SenderName)
	require.NoError(t, sinks.Close())

	page, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Alice", "Alice.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "sure &amp; bring this")
	assert.Contains(t, string(page), "./attachments/"+blob)
	copied, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Alice", "attachments", blob))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(copied))
	assert.NoDirExists(t, filepath.Join(cfg.Output.Dir, "Bob"))

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "conversations.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2020-09-13T12:26:40Z", gjson.Get(lines[1], "timestamp").String())
	assert.Equal(t, "Alice", gjson.Get(lines[1], "sender").String())
	assert.Equal(t, "outgoing", gjson.Get(lines[2], "type").String())
	assert.Equal(t, int64(1), gjson.Get(lines[2], "delivered").Int())
}

func TestRun_LegacyBackupSynthesizesUnknownSenders(t *testing.T) {
	b := signaltest.New(t, 23)
	b.AddLegacyRecipient("+15550000001", "Alice", "", "blue")
	thread := b.AddThread("+15550000001")
	b.AddSMS(signaltest.SMS{ThreadID: thread, Address: "+15550000001", DateSent: 1000, Body: signaltest.Str("hello"), Type: msgtype.BaseInbox})
	b.AddSMS(signaltest.SMS{ThreadID: thread, Address: "+15550000099", DateSent: 2000, Body: signaltest.Str("who is this"), Type: msgtype.BaseInbox})

	cfg := testConfig(t, b, exportconfig.FormatJSONL)
	cfg.Output.CopyAttachments = false
	cfg.Processing.SkipEmptyThreads = false
	stats, sinks := runExport(t, cfg)
	require.NoError(t, sinks.Close())
	assert.Nil(t, sinks.Archive)
	assert.Equal(t, 1, stats.Threads)
	assert.Equal(t, 2, stats.SMS)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "conversations.jsonl"))
	require.NoError(t, err)
	var senders []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if gjson.Get(line, "kind").String() == "message" {
			senders = append(senders, gjson.Get(line, "sender").String())
		}
	}
	assert.Equal(t, []string{"Alice", "+15550000099"}, senders)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := exportconfig.Default()
	cfg.Output.Dir = "/out"
	cfg.Output.Timezone = "UTC"
	cfg.Colors.Seed = 7

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/out", opts.OutputDir)
	assert.Equal(t, "UTC", opts.Location.String())
	assert.NotNil(t, opts.Colors)

	cfg.Output.CopyAttachments = false
	cfg.Output.Timezone = "Mars/Olympus"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
