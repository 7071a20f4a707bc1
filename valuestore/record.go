package valuestore

import (
	"bytes"
	"encoding/binary"
)

// A Record is one persisted attribute value.
type Record struct {
	Handle uint16
	Value  []byte
}

// MaxValueLen is the longest value a record can carry.
const MaxValueLen = 0xFF

// recordSep terminates every record. It is not an escape: values may
// contain it, since the length byte delimits the value.
const recordSep = '\n'

// Encode appends the encoding of r to b: the handle big-endian, one
// length byte, the value and a newline. It panics if the value is
// longer than MaxValueLen.
func Encode(b []byte, r Record) []byte {
	if len(r.Value) > MaxValueLen {
		panic("valuestore: value too long")
	}
	var h [2]byte
	binary.BigEndian.PutUint16(h[:], r.Handle)
	b = append(b, h[0], h[1], byte(len(r.Value)))
	b = append(b, r.Value...)
	return append(b, recordSep)
}

// Decode parses consecutive records from b. It stops at the first
// truncated or inconsistent record and returns what preceded it.
func Decode(b []byte) []Record {
	var rr []Record
	for len(b) >= 3 {
		n := int(b[2])
		if len(b) < 3+n+1 || b[3+n] != recordSep {
			break
		}
		rr = append(rr, Record{
			Handle: binary.BigEndian.Uint16(b),
			Value:  append([]byte{}, b[3:3+n]...),
		})
		b = b[3+n+1:]
	}
	return rr
}

// find returns the last record for h in b.
func find(b []byte, h uint16) ([]byte, bool) {
	var v []byte
	var ok bool
	for _, r := range Decode(b) {
		if r.Handle == h {
			v, ok = r.Value, true
		}
	}
	return v, ok
}

// replace returns b with the record for r.Handle replaced by r, or r
// appended if there is none. Records after a bad one are dropped.
func replace(b []byte, r Record) []byte {
	var out bytes.Buffer
	done := false
	for _, old := range Decode(b) {
		if old.Handle == r.Handle {
			if done {
				continue
			}
			old, done = r, true
		}
		out.Write(Encode(nil, old))
	}
	if !done {
		out.Write(Encode(nil, r))
	}
	return out.Bytes()
}
