// Package dbproto decodes the protobuf payloads Signal stores inside message
// rows. Decoding works directly on the wire format so that no generated code
// is needed and unknown fields are skipped.
package dbproto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// MalformedPayloadError is returned when a payload does not match the
// expected message shape.
type MalformedPayloadError struct {
	Kind string
	Err  error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Kind, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

var (
	errWireType = errors.New("unexpected wire type")
	errIDLength = errors.New("identifier is not 16 bytes")
)

func malformed(kind string, err error) error {
	return &MalformedPayloadError{Kind: kind, Err: err}
}

// DecodeBase64 decodes a payload stored as text. Both padded and unpadded
// standard encodings occur in backups.
func DecodeBase64(kind, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, malformed(kind, err)
	}
	return data, nil
}

// field is one decoded tag/value pair. Only the value matching typ is set.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// walk calls fn for every top-level field in b.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) uint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("field %d: %w", f.num, errWireType)
	}
	return f.varint, nil
}

func (f field) raw() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("field %d: %w", f.num, errWireType)
	}
	return f.bytes, nil
}

func (f field) str() (string, error) {
	b, err := f.raw()
	return string(b), err
}

// uuidString converts a 16-byte binary identifier to its canonical form.
func uuidString(b []byte) (string, error) {
	if len(b) != 16 {
		return "", fmt.Errorf("%w (got %d)", errIDLength, len(b))
	}
	return uuid.UUID(b).String(), nil
}
