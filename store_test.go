package gatt

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

// testStore returns a store of n descriptors of type 0x2901 from base.
func testStore(base uint16, n int) *Store {
	s := NewStore(base)
	for i := 0; i < n; i++ {
		h := uint16(s.next())
		s.add(newAttribute(h, attrUserDescriptionUUID, attrUserDescriptionUUID, "d"))
	}
	return s
}

func TestStoreAt(t *testing.T) {
	s := testStore(4, 3)

	for _, h := range [...]uint16{0, 2, 3, 7, 8, 100} {
		if _, ok := s.At(h); ok {
			t.Errorf("At(%d) should return !ok", h)
		}
	}

	for _, h := range [...]uint16{4, 5, 6} {
		a, ok := s.At(h)
		if !ok {
			t.Errorf("At(%d) should return ok", h)
			continue
		}
		if a.Handle != h {
			t.Errorf("At(%d) returned wrong attr, got %d want %d", h, a.Handle, h)
		}
	}
}

func TestStoreSubrange(t *testing.T) {
	cases := []struct {
		start, end uint16
		base       uint16
		want       []int // indexes into the store
	}{
		{start: 0, end: 3, base: 4, want: []int{}},
		{start: 0, end: 4, base: 4, want: []int{0}},
		{start: 0, end: 5, base: 4, want: []int{0, 1}},
		{start: 4, end: 5, base: 4, want: []int{0, 1}},
		{start: 4, end: 6, base: 4, want: []int{0, 1, 2}},
		{start: 4, end: 100, base: 4, want: []int{0, 1, 2}},
		{start: 5, end: 100, base: 4, want: []int{1, 2}},
		{start: 5, end: 6, base: 4, want: []int{1, 2}},
		{start: 5, end: 5, base: 4, want: []int{1}},
		{start: 6, end: 6, base: 4, want: []int{2}},
		{start: 6, end: 100, base: 4, want: []int{2}},
		{start: 7, end: 100, base: 4, want: []int{}},
		{start: 100, end: 1000, base: 4, want: []int{}},
		{start: 1000, end: 100, base: 4, want: []int{}},
		{start: 5, end: 1, base: 4, want: []int{}},
		{start: 1, end: 65535, base: 4, want: []int{0, 1, 2}},
		{start: 1, end: 65535, base: 0, want: []int{1, 2}},
	}

	for _, tt := range cases {
		s := testStore(tt.base, 3)
		want := []*Attribute{}
		for _, i := range tt.want {
			want = append(want, s.attrs[i])
		}
		if got := s.Subrange(tt.start, tt.end); !reflect.DeepEqual(got, want) {
			t.Errorf("Subrange(%d, %d) base %d: got %d attrs want %d", tt.start, tt.end, tt.base, len(got), len(want))
		}
	}
}

func TestStoreFindInRangeFirstMatch(t *testing.T) {
	s := NewStore(0)
	for h := 0; h < 14; h++ {
		typ := attrUserDescriptionUUID
		switch h {
		case 5, 9, 12:
			typ = attrPrimaryServiceUUID
		}
		s.add(newAttribute(uint16(h), typ, UUID16(uint16(0x1800+h)), "a"))
	}

	cases := []struct {
		start, end uint16
		want       uint16
		ok         bool
	}{
		{start: 0, end: 0xFFFF, want: 5, ok: true},
		{start: 6, end: 13, want: 9, ok: true},
		{start: 9, end: 9, want: 9, ok: true},
		{start: 10, end: 12, want: 12, ok: true},
		{start: 6, end: 8, ok: false},
		{start: 13, end: 0xFFFF, ok: false},
	}
	for _, tt := range cases {
		a, ok := s.FindInRange(attrPrimaryServiceUUID, tt.start, tt.end)
		if ok != tt.ok {
			t.Errorf("FindInRange(%d, %d): got ok %t want %t", tt.start, tt.end, ok, tt.ok)
			continue
		}
		if ok && a.Handle != tt.want {
			t.Errorf("FindInRange(%d, %d): got %d want %d", tt.start, tt.end, a.Handle, tt.want)
		}
	}

	if got := s.HandlesOfType(attrPrimaryServiceUUID); !reflect.DeepEqual(got, []uint16{5, 9, 12}) {
		t.Errorf("HandlesOfType: got %v", got)
	}
}

func TestStoreAddOutOfSequence(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("add should panic on a handle gap")
		}
	}()
	s := NewStore(1)
	s.add(newAttribute(2, attrPrimaryServiceUUID, UUID16(0x180A), "gap"))
}

func TestStoreDump(t *testing.T) {
	st, err := Build(strings.NewReader(deviceInfoXML))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := st.Dump(&b); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != st.Len()+1 {
		t.Fatalf("Dump: got %d lines want %d", len(lines), st.Len()+1)
	}
	for i, want := range []string{"service 0000180A", "characteristic 00002A29", "value"} {
		if !strings.Contains(lines[i+1], want) {
			t.Errorf("Dump line %d: %q does not mention %q", i+1, lines[i+1], want)
		}
	}
}
