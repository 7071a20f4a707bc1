package gatt

// Do not re-order the bit flags below;
// they are organized to match the Bluetooth Core layout.

// A Property is the characteristic properties bitmask.
type Property uint8

// Characteristic property flags.
const (
	CharBroadcast   Property = 1 << iota // the characteristic may be broadcast
	CharRead                             // the characteristic may be read
	CharWriteNR                          // the characteristic may be written to, with no reply
	CharWrite                            // the characteristic may be written to, with a reply
	CharNotify                           // the characteristic supports notifications
	CharIndicate                         // the characteristic supports indications
	CharSignedWrite                      // the characteristic supports signed writes
	CharExtended                         // the characteristic has extended properties
)

// propNames maps definition flags to property bits. ReliableWrite and
// WritableAuxiliaries are accepted by the builder but set nothing.
var propNames = map[string]Property{
	"Broadcast":            CharBroadcast,
	"Read":                 CharRead,
	"WriteWithoutResponse": CharWriteNR,
	"Write":                CharWrite,
	"Notify":               CharNotify,
	"Indicate":             CharIndicate,
	"SignedWrite":          CharSignedWrite,
	"ExtendedProperties":   CharExtended,
	"ReliableWrite":        0,
	"WritableAuxiliaries":  0,
}

// characteristicOf returns the characteristic declaration owning a,
// which may be the declaration itself, its value or one of its descriptors.
func (s *Store) characteristicOf(a *Attribute) (*Attribute, bool) {
	for i := 0; i < 3 && a != nil; i++ {
		if a.Type == attrCharacteristicUUID {
			return a, true
		}
		if a.Ref == HandleNone {
			return nil, false
		}
		a, _ = s.At(a.Ref)
	}
	return nil, false
}

// declarationPayload encodes a characteristic declaration:
// properties, value handle and the characteristic UUID.
func declarationPayload(a *Attribute) []byte {
	vh := a.Handle + 1
	b := []byte{byte(a.Props), byte(vh), byte(vh >> 8)}
	return append(b, a.UUID.Reverse()...)
}
