// Package versioninfo maps a Signal database schema version to the set of
// capabilities and column expressions that differ between schema revisions.
// Every version threshold used by the rest of the module lives here.
package versioninfo

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Schema versions at which the database layout changed.
const (
	// Recipients are referenced by numeric recipient id instead of phone
	// number or group string.
	RecipientIDsVersion = 24
	// The mms table carries a serialized ReactionList in "reactions".
	ReactionsVersion = 37
	// The mention table exists and mms carries "quote_mentions".
	MentionsVersion = 68
	// The mms table carries "viewed_receipt_count".
	ViewedReceiptsVersion = 83
	// The thread table renamed "recipient_ids" to "thread_recipient_id".
	ThreadRecipientIDVersion = 108
)

// testedVersions are the schema versions exports have been verified against.
var testedVersions = []int{18, 23, 65, 80, 89, 110}

// ParseError is returned when a version identifier is not integer-like.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid database version %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// VersionInfo is an immutable view of one schema version.
type VersionInfo struct {
	version int
}

// New wraps an already-parsed schema version.
func New(version int) VersionInfo {
	return VersionInfo{version: version}
}

// Parse converts a raw version identifier into a VersionInfo and logs the
// detected version. Untested versions are accepted with a warning.
func Parse(raw string, log zerolog.Logger) (VersionInfo, error) {
	trimmed := strings.TrimSpace(raw)
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return VersionInfo{}, &ParseError{Raw: raw, Err: err}
	}
	vi := New(v)
	log.Info().Int("version", v).Msg("Detected database version")
	if !vi.IsTestedVersion() {
		log.Warn().
			Int("version", v).
			Ints("tested_versions", testedVersions).
			Msg("Database version has not been tested, output may be incomplete")
	}
	return vi, nil
}

// ParseMarker parses the contents of a version marker file. The marker is
// colon-delimited and the version is the final field.
func ParseMarker(content string, log zerolog.Logger) (VersionInfo, error) {
	fields := strings.Split(content, ":")
	return Parse(fields[len(fields)-1], log)
}

// Version returns the raw schema version.
func (v VersionInfo) Version() int {
	return v.version
}

func (v VersionInfo) String() string {
	return strconv.Itoa(v.version)
}

// IsTestedVersion reports whether the version is in the verified list.
func (v VersionInfo) IsTestedVersion() bool {
	return slices.Contains(testedVersions, v.version)
}

// IsAddressbookUsingRIDs reports whether message rows address recipients by
// numeric recipient id.
func (v VersionInfo) IsAddressbookUsingRIDs() bool {
	return v.version >= RecipientIDsVersion
}

// AreReactionsSupported reports whether mms rows carry a reaction list.
func (v VersionInfo) AreReactionsSupported() bool {
	return v.version >= ReactionsVersion
}

// ReactionsQueryColumn is the select expression for the mms reaction blob.
func (v VersionInfo) ReactionsQueryColumn() string {
	if v.AreReactionsSupported() {
		return "reactions"
	}
	return "''"
}

// AreMentionsSupported reports whether the mention table and quote mention
// blobs exist.
func (v VersionInfo) AreMentionsSupported() bool {
	return v.version >= MentionsVersion
}

// QuoteMentionsQueryColumn is the select expression for the mms quote
// mention blob.
func (v VersionInfo) QuoteMentionsQueryColumn() string {
	if v.AreMentionsSupported() {
		return "quote_mentions"
	}
	return "''"
}

// ViewedReceiptCountColumn is the select expression for the mms viewed
// receipt count.
func (v VersionInfo) ViewedReceiptCountColumn() string {
	if v.version >= ViewedReceiptsVersion {
		return "viewed_receipt_count"
	}
	return "0"
}

// ThreadRecipientIDColumn is the name of the thread table's recipient column.
func (v VersionInfo) ThreadRecipientIDColumn() string {
	if v.version >= ThreadRecipientIDVersion {
		return "thread_recipient_id"
	}
	return "recipient_ids"
}
