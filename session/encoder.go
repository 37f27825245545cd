package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// CurrentSchemaVersion is the first byte of every encoded entry.
const CurrentSchemaVersion = 1

var (
	errFieldTooLong      = errors.New("session: field too long")
	errUnsupportedSchema = errors.New("session: unsupported entry schema version")
)

// Encode serializes e as: version, len(sid), sid, len(uid), uid, expiresAt.
func Encode(e Entry) ([]byte, error) {
	if len(e.SessionID) > 255 || len(e.AccountID) > 255 {
		return nil, errFieldTooLong
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(e.SessionID) + len(e.AccountID) + 9)

	buf.WriteByte(CurrentSchemaVersion)
	buf.WriteByte(byte(len(e.SessionID)))
	buf.WriteString(e.SessionID)
	buf.WriteByte(byte(len(e.AccountID)))
	buf.WriteString(e.AccountID)

	if err := binary.Write(&buf, binary.BigEndian, e.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses an entry produced by [Encode].
func Decode(data []byte) (Entry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Entry{}, err
	}
	if version != CurrentSchemaVersion {
		return Entry{}, fmt.Errorf("%w: %d", errUnsupportedSchema, version)
	}

	var e Entry
	if e.SessionID, err = readString(reader); err != nil {
		return Entry{}, err
	}
	if e.AccountID, err = readString(reader); err != nil {
		return Entry{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &e.ExpiresAt); err != nil {
		return Entry{}, err
	}
	if reader.Len() != 0 {
		return Entry{}, errors.New("session: trailing bytes in entry")
	}

	return e, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
