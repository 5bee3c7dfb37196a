package addressbook

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal2html/pkg/colors"
	"signal2html/pkg/signaldb"
	"signal2html/pkg/signaltest"
	"signal2html/pkg/versioninfo"
)

func load(t *testing.T, b *signaltest.Backup) Addressbook {
	t.Helper()
	vi := versioninfo.New(b.Version)
	ab, err := Load(context.Background(), signaldb.New(b.DB, vi), vi, colors.FixedSource("green"), zerolog.Nop())
	require.NoError(t, err)
	return ab
}

func TestLoadSelectsVariant(t *testing.T) {
	_, ok := load(t, signaltest.New(t, 23)).(*Legacy)
	assert.True(t, ok)
	_, ok = load(t, signaltest.New(t, 24)).(*Modern)
	assert.True(t, ok)
}

func TestLegacyBulkLoad(t *testing.T) {
	b := signaltest.New(t, 23)
	b.AddGroup("__textsecure_group__!abc", "Climbing")
	b.AddGroup("__textsecure_group__!untitled", "")
	b.AddLegacyRecipient("+15550000001", "Alice", "Al", "red")
	b.AddLegacyRecipient("+15550000002", "", "Bobby", "")
	b.AddLegacyRecipient("+15550000003", "", "", "")
	b.AddLegacyRecipient("__textsecure_group__!abc", "", "", "blue")
	b.AddLegacyRecipient("__textsecure_group__!untitled", "", "", "blue")

	ab := load(t, b)
	alice, ok := ab.GetRecipientByPhone("+15550000001")
	require.True(t, ok)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "red", alice.Color)

	bob := ab.GetRecipientByAddress("+15550000002")
	assert.Equal(t, "Bobby", bob.Name)
	assert.Equal(t, "green", bob.Color)

	assert.Equal(t, "+15550000003", ab.GetRecipientByAddress("+15550000003").Name)

	grp := ab.GetRecipientByAddress("__textsecure_group__!abc")
	assert.True(t, grp.IsGroup)
	assert.Equal(t, "Climbing", grp.Name)

	untitled := ab.GetRecipientByAddress("__textsecure_group__!untitled")
	assert.Equal(t, "Group 2", untitled.Name)

	title, ok := ab.GetGroupTitle("__textsecure_group__!abc")
	assert.True(t, ok)
	assert.Equal(t, "Climbing", title)
}

func TestLegacySynthesizesUnknownPhone(t *testing.T) {
	b := signaltest.New(t, 18)
	b.AddLegacyRecipient("+15550000001", "Alice", "", "red")
	ab := load(t, b)

	_, ok := ab.Lookup("+15551234567")
	assert.False(t, ok)

	r := ab.GetRecipientByAddress("+15551234567")
	assert.Equal(t, "+15551234567", r.Phone)
	assert.False(t, r.IsGroup)
	id, err := strconv.Atoi(r.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, 10000)

	again := ab.GetRecipientByAddress("+15551234567")
	assert.Equal(t, r.ID, again.ID)

	byPhone, ok := ab.GetRecipientByPhone("+15551234567")
	require.True(t, ok)
	assert.Same(t, r, byPhone)
}

func TestLegacySynthesizedIDsSkipTakenIDs(t *testing.T) {
	b := signaltest.New(t, 23)
	b.Exec(`INSERT INTO recipient_preferences (_id, recipient_ids) VALUES (10000, '+15550000010')`)
	ab := load(t, b)

	r := ab.GetRecipientByAddress("+15550000011")
	assert.Equal(t, "10001", r.ID)
	other := ab.GetRecipientByAddress("__signal_mms_group__!zzz")
	assert.Equal(t, "10002", other.ID)
	assert.True(t, other.IsGroup)
	assert.Equal(t, "", other.Name)
}

func TestModernBulkLoad(t *testing.T) {
	b := signaltest.New(t, 89)
	aliceID := b.AddRecipient(signaltest.Recipient{Phone: "+15550000001", UUID: "A1B2C3D4-0000-0000-0000-000000000001", SystemName: "Alice", ProfileName: "Al", Color: "C040"})
	bobID := b.AddRecipient(signaltest.Recipient{Phone: "+15550000002", ProfileName: "Bob"})
	carolID := b.AddRecipient(signaltest.Recipient{Phone: "+15550000003"})
	b.AddGroup("__signal_group__v2__!xyz", "Book club", strconv.FormatInt(aliceID, 10), strconv.FormatInt(bobID, 10))
	groupID := b.AddRecipient(signaltest.Recipient{GroupID: "__signal_group__v2__!xyz"})
	ab := load(t, b)

	alice := ab.GetRecipientByAddress(strconv.FormatInt(aliceID, 10))
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "C040", alice.Color)

	byUUID, ok := ab.GetRecipientByUUID("a1b2c3d4-0000-0000-0000-000000000001")
	require.True(t, ok)
	assert.Same(t, alice, byUUID)

	assert.Equal(t, "Bob", ab.GetRecipientByAddress(strconv.FormatInt(bobID, 10)).Name)
	assert.Equal(t, "+15550000003", ab.GetRecipientByAddress(strconv.FormatInt(carolID, 10)).Name)

	grp := ab.GetRecipientByAddress(strconv.FormatInt(groupID, 10))
	assert.True(t, grp.IsGroup)
	assert.Equal(t, "Book club", grp.Name)
	assert.Equal(t, []string{strconv.FormatInt(aliceID, 10), strconv.FormatInt(bobID, 10)}, ab.GetGroupMembers(grp.GroupID))

	_, ok = ab.GetRecipientByPhone("+19999999999")
	assert.False(t, ok)
	assert.Len(t, ab.Recipients(), 4)
}

func TestModernSynthesisIsStable(t *testing.T) {
	ab := load(t, signaltest.New(t, 110))
	r := ab.GetRecipientByAddress("77")
	assert.Equal(t, "77", r.ID)
	assert.Equal(t, "", r.Name)
	assert.Equal(t, "green", r.Color)
	assert.Same(t, r, ab.GetRecipientByAddress("77"))
}

func TestEmptyAddressResolvesToOneRecipient(t *testing.T) {
	for _, version := range []int{23, 110} {
		ab := load(t, signaltest.New(t, version))
		first := ab.GetRecipientByAddress("")
		second := ab.GetRecipientByAddress("")
		assert.Same(t, first, second, "version %d", version)
		assert.Equal(t, "10000", first.ID, "version %d", version)
		assert.Len(t, ab.Recipients(), 1, "version %d", version)

		found, ok := ab.Lookup("")
		require.True(t, ok, "version %d", version)
		assert.Same(t, first, found)
	}
}

func TestConcurrentResolution(t *testing.T) {
	ab := load(t, signaltest.New(t, 23))
	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = ab.GetRecipientByAddress("+15557777777").ID
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
