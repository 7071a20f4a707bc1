package gatt

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// A Store is the attribute table of one server: a contiguous range of
// attributes plus an index from attribute type to handles.
type Store struct {
	attrs  []*Attribute
	base   uint16 // handle for first attr in attrs
	byH    map[uint16]int
	byType map[UUID][]uint16
}

// NewStore returns an empty store whose first handle will be base.
func NewStore(base uint16) *Store {
	return &Store{
		base:   base,
		byH:    make(map[uint16]int),
		byType: make(map[UUID][]uint16),
	}
}

// Base returns the handle of the first attribute.
func (s *Store) Base() uint16 { return s.base }

// Len returns the number of attributes.
func (s *Store) Len() int { return len(s.attrs) }

// Attributes returns the attributes in handle order.
func (s *Store) Attributes() []*Attribute { return s.attrs }

// next returns the handle the next added attribute must carry.
func (s *Store) next() int { return int(s.base) + len(s.attrs) }

func (s *Store) add(a *Attribute) {
	if int(a.Handle) != s.next() {
		panic(fmt.Sprintf("gatt: attribute handle 0x%04X out of sequence, want 0x%04X", a.Handle, s.next()))
	}
	s.byH[a.Handle] = len(s.attrs)
	s.attrs = append(s.attrs, a)
	s.byType[a.Type] = append(s.byType[a.Type], a.Handle)
}

// At returns the attribute with handle h.
func (s *Store) At(h uint16) (*Attribute, bool) {
	i, ok := s.byH[h]
	if !ok {
		return nil, false
	}
	return s.attrs[i], true
}

// HandlesOfType returns the handles whose type is t, in discovery order.
func (s *Store) HandlesOfType(t UUID) []uint16 {
	return s.byType[t]
}

// FindInRange returns the first attribute of type t, in discovery order,
// whose handle lies in [start, end].
func (s *Store) FindInRange(t UUID, start, end uint16) (*Attribute, bool) {
	for _, h := range s.byType[t] {
		if h >= start && h <= end {
			return s.At(h)
		}
	}
	return nil, false
}

const (
	tooSmall = -1
	tooLarge = -2
)

// idx returns the index into attrs corresponding to handle h.
// If h is too small, idx returns tooSmall (-1).
// If h is too large, idx returns tooLarge (-2).
func (s *Store) idx(h int) int {
	if h < int(s.base) {
		return tooSmall
	}
	if h >= s.next() {
		return tooLarge
	}
	return h - int(s.base)
}

// Subrange returns attributes in range [start, end]; it may return an
// empty slice. Subrange does not panic for out-of-range start or end.
func (s *Store) Subrange(start, end uint16) []*Attribute {
	startidx := s.idx(int(start))
	switch startidx {
	case tooSmall:
		startidx = 0
	case tooLarge:
		return []*Attribute{}
	}

	endidx := s.idx(int(end) + 1) // [start, end] includes its upper bound!
	switch endidx {
	case tooSmall:
		return []*Attribute{}
	case tooLarge:
		endidx = len(s.attrs)
	}
	if endidx < startidx {
		return []*Attribute{}
	}
	return s.attrs[startidx:endidx]
}

// Dump writes the attribute table to w, one attribute per line.
func (s *Store) Dump(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "handle\tend\tref\ttype\tprops\tperm\tname\tvalue")
	for _, a := range s.attrs {
		ref := "-"
		if a.Ref != HandleNone {
			ref = fmt.Sprintf("0x%04X", a.Ref)
		}
		fmt.Fprintf(tw, "0x%04X\t0x%04X\t%s\t%s\t0x%02X\t0x%02X\t%s\t[ % X ]\n",
			a.Handle, a.EndHandle, ref, s.typeName(a), a.Props, a.Perm, a.Name, a.Value)
	}
	return tw.Flush()
}

func (s *Store) typeName(a *Attribute) string {
	switch a.Type {
	case attrPrimaryServiceUUID:
		return "service " + a.UUID.String()
	case attrSecondaryServiceUUID:
		return "secondary " + a.UUID.String()
	case attrIncludeUUID:
		return "include " + a.UUID.String()
	case attrCharacteristicUUID:
		return "characteristic " + a.UUID.String()
	}
	if s.isValue(a) {
		return "value"
	}
	if n, ok := descNames[a.Type]; ok {
		return n
	}
	return "descriptor " + a.Type.String()
}

// isValue reports whether a is a characteristic value attribute.
func (s *Store) isValue(a *Attribute) bool {
	r, ok := s.At(a.Ref)
	return ok && r.Type == attrCharacteristicUUID && r.Handle+1 == a.Handle
}
