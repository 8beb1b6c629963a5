// Package encoding serializes content-region snapshots kept alongside
// session history entries.
//
// Snapshots are msgpack-encoded and HMAC-signed. The markup inside a snapshot
// is written back into the live page on back/forward navigation, so a store
// that hands back tampered bytes must be rejected rather than trusted.
package encoding

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid snapshot format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
)

// Snapshot is the content region as it looked when a history entry was
// applied.
type Snapshot struct {
	EntryID uint64    `msgpack:"e"`
	URL     string    `msgpack:"u"`
	HTML    string    `msgpack:"h"`
	Seq     uint64    `msgpack:"s"`
	TakenAt time.Time `msgpack:"t"`
}

// Codec encodes and decodes snapshots.
type Codec struct {
	key []byte
}

// NewCodec creates a codec signing with key. Keys shorter than 32 bytes are
// stretched with SHA-256. A nil key generates a random one, which is fine
// for snapshots that never leave the process.
func NewCodec(key []byte) (*Codec, error) {
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("encoding: generate key: %w", err)
		}
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Codec{key: key}, nil
}

// Encode serializes s as base64(msgpack).signature.
func (c *Codec) Encode(s Snapshot) (string, error) {
	packed, err := msgpack.Marshal(&s)
	if err != nil {
		return "", err
	}
	return c.sign(packed), nil
}

// Decode verifies and deserializes an encoded snapshot.
func (c *Codec) Decode(encoded string) (Snapshot, error) {
	var s Snapshot
	packed, err := c.verify(encoded)
	if err != nil {
		return s, err
	}
	if err := msgpack.Unmarshal(packed, &s); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return s, nil
}

// sign creates a signed (but visible) encoding: base64.signature
func (c *Codec) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
	return b64 + "." + sig
}

// verify verifies and decodes a signed string
func (c *Codec) verify(encoded string) ([]byte, error) {
	parts := strings.SplitN(encoded, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	expected := mac.Sum(nil)[:16]

	if !hmac.Equal(sig, expected) {
		return nil, ErrSignatureInvalid
	}

	return data, nil
}
