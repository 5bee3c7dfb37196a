package dbproto

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func reaction(emoji string, author, sent, received uint64) []byte {
	var b []byte
	b = appendString(b, 1, emoji)
	b = appendVarint(b, 2, author)
	b = appendVarint(b, 3, sent)
	return appendVarint(b, 4, received)
}

func TestDecodeReactions(t *testing.T) {
	var list []byte
	list = appendBytes(list, 1, reaction("👍", 5, 1000, 1001))
	list = appendBytes(list, 1, []byte{0x0a, 0x05, 'x'})
	list = appendBytes(list, 1, reaction("❤️", 7, 2000, 2002))

	got, err := DecodeReactions(list)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 2)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, Reaction{Emoji: "👍", Author: 5, SentTime: 1000, ReceivedTime: 1001}, got.Reactions[0])
	assert.Equal(t, uint64(7), got.Reactions[1].Author)
}

func TestDecodeReactionsMalformed(t *testing.T) {
	_, err := DecodeReactions([]byte{0x0a, 0x40, 0x01})
	var merr *MalformedPayloadError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "reaction list", merr.Kind)
}

func TestDecodeBodyRanges(t *testing.T) {
	var mention, style, list []byte
	mention = appendVarint(mention, 1, 3)
	mention = appendVarint(mention, 2, 1)
	mention = appendString(mention, 3, "0f0e0d0c-0b0a-0908-0706-050403020100")
	style = appendVarint(style, 1, 0)
	style = appendVarint(style, 2, 2)
	style = appendVarint(style, 4, 1)
	list = appendBytes(list, 1, mention)
	list = appendBytes(list, 1, style)

	got, err := DecodeBodyRanges(list)
	require.NoError(t, err)
	require.Len(t, got.Ranges, 2)
	mentions := got.Mentions()
	require.Len(t, mentions, 1)
	assert.Equal(t, 3, mentions[0].Start)
	assert.Equal(t, 1, mentions[0].Length)
}

func TestDecodeGroupCall(t *testing.T) {
	var b []byte
	b = appendString(b, 1, "era")
	b = appendString(b, 2, "aaaa-bbbb")
	b = appendVarint(b, 3, 1650000000000)
	b = appendString(b, 4, "aaaa-bbbb")
	b = appendString(b, 4, "cccc-dddd")

	gc, err := DecodeGroupCall(b)
	require.NoError(t, err)
	assert.Equal(t, "aaaa-bbbb", gc.StartedByUUID)
	assert.Equal(t, int64(1650000000000), gc.Timestamp)
	assert.Len(t, gc.InCallUUIDs, 2)
}

func TestGroupV1PhoneOnlyMember(t *testing.T) {
	var member, b []byte
	member = appendString(member, 1, "uuid-1")
	member = appendString(member, 2, "+15550000001")
	b = appendBytes(b, 1, []byte("group-id"))
	b = appendString(b, 3, "Friends")
	b = appendString(b, 4, "+15550000001")
	b = appendString(b, 4, "+15559999999")
	b = appendBytes(b, 6, member)

	gc, err := DecodeGroupV1(b)
	require.NoError(t, err)
	require.NotNil(t, gc.Name)
	assert.Equal(t, "Friends", *gc.Name)

	merged := gc.MergedMembers()
	require.Len(t, merged, 2)
	assert.Equal(t, MergedMember{Phone: "+15550000001", UUID: "uuid-1"}, merged[0])

	var matches []MergedMember
	for _, m := range merged {
		if m.Phone == "+15559999999" {
			matches = append(matches, m)
		}
	}
	require.Len(t, matches, 1)
	assert.True(t, matches[0].MatchFromPhone)
}

func TestGroupV1PrefersReferenceMatch(t *testing.T) {
	var phoneOnly, withUUID, b []byte
	phoneOnly = appendString(phoneOnly, 2, "+15550000002")
	withUUID = appendString(withUUID, 1, "uuid-2")
	withUUID = appendString(withUUID, 2, "+15550000002")
	b = appendBytes(b, 6, phoneOnly)
	b = appendBytes(b, 6, withUUID)

	gc, err := DecodeGroupV1(b)
	require.NoError(t, err)
	merged := gc.MergedMembers()
	require.Len(t, merged, 1)
	assert.Equal(t, "uuid-2", merged[0].UUID)
	assert.False(t, merged[0].MatchFromPhone)
}

func TestDecodeGroupV2(t *testing.T) {
	editor := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	added := uuid.MustParse("66666666-7777-8888-9999-000000000000")

	var newMember, title, change, state, b []byte
	newMember = appendBytes(newMember, 1, added[:])
	newMember = appendVarint(newMember, 2, RoleDefault)
	title = appendString(title, 1, "New title")
	change = appendBytes(change, 1, editor[:])
	change = appendVarint(change, 2, 4)
	change = appendBytes(change, 3, newMember)
	change = appendBytes(change, 4, editor[:])
	change = appendBytes(change, 10, title)

	var admin []byte
	admin = appendBytes(admin, 1, editor[:])
	admin = appendVarint(admin, 2, RoleAdministrator)
	state = appendString(state, 2, "New title")
	state = appendVarint(state, 6, 4)
	state = appendBytes(state, 7, admin)
	state = appendBytes(state, 7, newMember)

	b = appendBytes(b, 1, []byte{0x0a, 0x00})
	b = appendBytes(b, 2, change)
	b = appendBytes(b, 3, state)

	gc, err := DecodeGroupV2(b)
	require.NoError(t, err)
	require.NotNil(t, gc.Change)
	assert.Equal(t, editor.String(), gc.Change.EditorUUID)
	require.Len(t, gc.Change.NewMembers, 1)
	assert.Equal(t, added.String(), gc.Change.NewMembers[0].UUID)
	assert.Equal(t, []string{editor.String()}, gc.Change.DeleteMembers)
	require.NotNil(t, gc.Change.NewTitle)
	assert.Equal(t, "New title", *gc.Change.NewTitle)

	require.NotNil(t, gc.State)
	assert.Equal(t, uint32(4), gc.State.Revision)
	require.Len(t, gc.State.Members, 2)
	assert.True(t, gc.State.Members[0].IsAdmin())
	assert.False(t, gc.State.Members[1].IsAdmin())
}

func TestDecodeGroupV2BadIdentifier(t *testing.T) {
	var change, b []byte
	change = appendBytes(change, 4, []byte{1, 2, 3})
	b = appendBytes(b, 2, change)

	_, err := DecodeGroupV2(b)
	var merr *MalformedPayloadError
	require.ErrorAs(t, err, &merr)
	assert.ErrorIs(t, err, errIDLength)
}

func TestDecodeBase64(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	got, err := DecodeBase64("test", base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got, err = DecodeBase64("test", base64.RawStdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = DecodeBase64("test", "not base64!")
	var merr *MalformedPayloadError
	assert.ErrorAs(t, err, &merr)
}
