package gatt

import "encoding/binary"

// includePayload encodes an included service declaration: the target
// service's handle range followed by its UUID. Unresolved targets
// report HandleNone for both ends.
func includePayload(a *Attribute) []byte {
	b := make([]byte, 4, 20)
	binary.LittleEndian.PutUint16(b[0:], a.StartHandle)
	binary.LittleEndian.PutUint16(b[2:], a.EndHandle)
	return append(b, a.UUID.Reverse()...)
}
