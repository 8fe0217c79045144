package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion = 1

// ErrInvalidEncoding is returned by Decode for blobs it cannot read.
var ErrInvalidEncoding = errors.New("invalid session encoding")

// Encode serializes s as:
//
//	version | len uid | uid | len account | account | role count | (len role | role)* | refresh hash (32) | created (8) | expires (8)
//
// Integers are big endian. Strings are limited to 255 bytes and at most
// 255 roles are stored.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersion)

	if err := writeShort(&buf, s.UserID); err != nil {
		return nil, errors.New("userID too long")
	}
	if err := writeShort(&buf, s.Account); err != nil {
		return nil, errors.New("account too long")
	}

	if len(s.Roles) > 255 {
		return nil, errors.New("too many roles")
	}
	buf.WriteByte(byte(len(s.Roles)))
	for _, r := range s.Roles {
		if err := writeShort(&buf, r); err != nil {
			return nil, errors.New("role too long")
		}
	}

	buf.Write(s.RefreshHash[:])

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(s.CreatedAt))
	binary.BigEndian.PutUint64(ts[8:], uint64(s.ExpiresAt))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. SessionID is not part of the
// blob and is left empty.
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil || version != sessionFormatVersion {
		return nil, ErrInvalidEncoding
	}

	s := &Session{}
	if s.UserID, err = readShort(r); err != nil {
		return nil, ErrInvalidEncoding
	}
	if s.Account, err = readShort(r); err != nil {
		return nil, ErrInvalidEncoding
	}

	count, err := r.ReadByte()
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if count > 0 {
		s.Roles = make([]string, 0, count)
	}
	for i := 0; i < int(count); i++ {
		role, err := readShort(r)
		if err != nil {
			return nil, ErrInvalidEncoding
		}
		s.Roles = append(s.Roles, role)
	}

	if _, err := io.ReadFull(r, s.RefreshHash[:]); err != nil {
		return nil, ErrInvalidEncoding
	}

	var ts [16]byte
	if _, err := io.ReadFull(r, ts[:]); err != nil {
		return nil, ErrInvalidEncoding
	}
	s.CreatedAt = int64(binary.BigEndian.Uint64(ts[:8]))
	s.ExpiresAt = int64(binary.BigEndian.Uint64(ts[8:]))

	if r.Len() != 0 {
		return nil, ErrInvalidEncoding
	}
	return s, nil
}

func writeShort(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("string too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readShort(r *bytes.Reader) (string, error) {
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
