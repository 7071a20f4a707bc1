package gatt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// A UUID is a 128-bit BLE UUID. 16-bit SIG numbers are expanded onto
// the Bluetooth base UUID, so every UUID compares and hashes the same
// way regardless of how it was written in a definition document.
type UUID uuid.UUID

// baseUUID is 00000000-0000-1000-8000-00805F9B34FB.
var baseUUID = UUID{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb,
}

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	u := baseUUID
	binary.BigEndian.PutUint16(u[2:], i)
	return u
}

// ParseUUID parses a standard-format UUID string, such
// as "1800" or "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func ParseUUID(s string) (UUID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid uuid %q: %v", s, err)
		}
		return UUID16(binary.BigEndian.Uint16(b)), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid uuid %q: %v", s, err)
	}
	return UUID(u), nil
}

// MustParseUUID parses a standard-format UUID string,
// like ParseUUID, but panics in case of error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Bytes returns the UUID in document (big-endian) order.
func (u UUID) Bytes() []byte {
	b := make([]byte, len(u))
	copy(b, u[:])
	return b
}

// Reverse returns the UUID in wire (little-endian) order.
func (u UUID) Reverse() []byte {
	return reverse(u[:])
}

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return u == v
}

// Is16Bit reports whether u is a SIG-assigned 16-bit UUID.
func (u UUID) Is16Bit() bool {
	v := u
	v[2], v[3] = 0, 0
	return v == baseUUID
}

// String hex-encodes a UUID.
func (u UUID) String() string {
	return strings.ToUpper(uuid.UUID(u).String())
}

// uuidFromWire decodes a 2- or 16-byte little-endian UUID.
func uuidFromWire(b []byte) (UUID, bool) {
	switch len(b) {
	case 2:
		return UUID16(binary.LittleEndian.Uint16(b)), true
	case 16:
		var u UUID
		copy(u[:], reverse(b))
		return u, true
	}
	return UUID{}, false
}

// reverse returns a reversed copy of u.
func reverse(u []byte) []byte {
	// Special-case 16 bit UUIDS for speed.
	l := len(u)
	if l == 2 {
		return []byte{u[1], u[0]}
	}
	b := make([]byte, l)
	for i := 0; i < (l+1)/2; i++ {
		b[i], b[l-i-1] = u[l-i-1], u[i]
	}
	return b
}
