package gatt

import (
	"bytes"
	"encoding/hex"
	"reflect"
	"testing"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestDecodeRequest(t *testing.T) {
	cases := []struct {
		name string
		pdu  string
		want Request
	}{
		{name: "read by group", pdu: "1001000e000028", want: DiscoverPrimaryService{Start: 1, End: 14}},
		{name: "find by type", pdu: "060100ffff00280a18", want: DiscoverPrimaryServiceByUUID{Start: 1, End: 0xFFFF, UUID: UUID16(0x180A)}},
		{name: "read by type include", pdu: "080000ffff0228", want: FindIncludedService{Start: 0, End: 0xFFFF}},
		{name: "read by type characteristic", pdu: "080000ffff0328", want: DiscoverCharacteristic{Start: 0, End: 0xFFFF}},
		{name: "read by type value", pdu: "0800000200292a", want: ReadByType{Type: UUID16(0x2A29), Start: 0, End: 2, Session: "s", Auth: AuthAuthenticated}},
		{name: "find info", pdu: "0401000200", want: FindInformation{Start: 1, End: 2}},
		{name: "read", pdu: "0a0200", want: Read{Handle: 2, Session: "s", Auth: AuthAuthenticated}},
		{name: "write", pdu: "1202004142", want: WriteRequest{Handle: 2, Value: []byte{0x41, 0x42}, Session: "s", Auth: AuthAuthenticated}},
		{name: "write empty", pdu: "120200", want: WriteRequest{Handle: 2, Value: []byte{}, Session: "s", Auth: AuthAuthenticated}},
		{name: "write command", pdu: "52020041", want: WriteCommand{Handle: 2, Value: []byte{0x41}, Session: "s", Auth: AuthAuthenticated}},
	}
	for _, tt := range cases {
		got, err := DecodeRequest(mustHex(tt.pdu), "s", AuthAuthenticated)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v want %#v", tt.name, got, tt.want)
		}
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	cases := []struct {
		name string
		pdu  string
		want string // error response
	}{
		{name: "empty", pdu: "", want: "0100000004"},
		{name: "unsupported", pdu: "ff1234567890", want: "01ff000006"},
		{name: "prepare write", pdu: "160200000041", want: "0116000006"},
		{name: "short read", pdu: "0a02", want: "010a000004"},
		{name: "reversed range", pdu: "0405000100", want: "0104050001"},
		{name: "group of characteristics", pdu: "10010003000328", want: "0110010010"},
		{name: "find by type of characteristics", pdu: "0601000b0003280a18", want: "010601000a"},
		{name: "find by type odd uuid", pdu: "0601000b0000280a", want: "0106000004"},
	}
	for _, tt := range cases {
		_, err := DecodeRequest(mustHex(tt.pdu), "s", AuthNone)
		e, ok := err.(attErr)
		if !ok {
			t.Errorf("%s: got error %v", tt.name, err)
			continue
		}
		if got := hex.EncodeToString(e.Marshal()); got != tt.want {
			t.Errorf("%s: got %s want %s", tt.name, got, tt.want)
		}
	}
}

func TestEncodeResponse(t *testing.T) {
	u := UUID16(0x2A29).Reverse()
	custom := MustParseUUID("09fc95c0-c111-11e3-9904-0002a5d5c51b").Reverse()
	cases := []struct {
		name string
		req  Request
		rsp  Response
		mtu  int
		want []byte
	}{
		{
			name: "read by group",
			req:  DiscoverPrimaryService{},
			rsp:  success(0, cat([]byte{0, 0, 2, 0}, u)),
			want: cat([]byte{0x11, 20, 0, 0, 2, 0}, u),
		},
		{
			name: "find info 16-bit",
			req:  FindInformation{},
			rsp:  success(1, cat([]byte{1, 0}, u)),
			want: []byte{0x05, 0x01, 1, 0, 0x29, 0x2A},
		},
		{
			name: "find info 128-bit",
			req:  FindInformation{},
			rsp:  success(1, cat([]byte{1, 0}, custom)),
			want: cat([]byte{0x05, 0x02, 1, 0}, custom),
		},
		{
			name: "included 16-bit service at default mtu",
			req:  FindIncludedService{},
			rsp:  success(3, cat([]byte{3, 0, 8, 0, 10, 0}, UUID16(0x180F).Reverse())),
			mtu:  DefaultMTU,
			want: []byte{0x09, 8, 3, 0, 8, 0, 10, 0, 0x0F, 0x18},
		},
		{
			name: "included 128-bit service at default mtu",
			req:  FindIncludedService{},
			rsp:  success(3, cat([]byte{3, 0, 8, 0, 10, 0}, custom)),
			mtu:  DefaultMTU,
			want: []byte{0x09, 6, 3, 0, 8, 0, 10, 0},
		},
		{
			name: "characteristic at default mtu",
			req:  DiscoverCharacteristic{},
			rsp:  success(1, cat([]byte{1, 0, 0x02, 2, 0}, custom)),
			mtu:  DefaultMTU,
			want: cat([]byte{0x09, 21, 1, 0, 0x02, 2, 0}, custom),
		},
		{
			name: "entry larger than mtu",
			req:  DiscoverCharacteristic{},
			rsp:  success(1, bytes.Repeat([]byte{0xEE}, 30)),
			mtu:  DefaultMTU,
			want: []byte{0x01, 0x08, 1, 0, 0x0e},
		},
		{
			name: "read by type",
			req:  ReadByType{},
			rsp:  success(2, []byte{0x41, 0x42}),
			want: []byte{0x09, 4, 2, 0, 0x41, 0x42},
		},
		{
			name: "read by type truncated",
			req:  ReadByType{},
			rsp:  success(2, bytes.Repeat([]byte{0xEE}, 30)),
			want: cat([]byte{0x09, 21, 2, 0}, bytes.Repeat([]byte{0xEE}, 19)),
		},
		{
			name: "read truncated",
			req:  Read{},
			rsp:  success(2, bytes.Repeat([]byte{0xEE}, 30)),
			want: cat([]byte{0x0b}, bytes.Repeat([]byte{0xEE}, 22)),
		},
		{
			name: "read large mtu",
			req:  Read{},
			rsp:  success(2, bytes.Repeat([]byte{0xEE}, 30)),
			mtu:  64,
			want: cat([]byte{0x0b}, bytes.Repeat([]byte{0xEE}, 30)),
		},
		{
			name: "write",
			req:  WriteRequest{},
			rsp:  success(2, nil),
			want: []byte{0x13},
		},
		{
			name: "write command",
			req:  WriteCommand{},
			rsp:  success(2, nil),
		},
		{
			name: "write command failure",
			req:  WriteCommand{},
			rsp:  failure(2, ErrWriteNotPerm),
		},
		{
			name: "error",
			req:  ReadByType{},
			rsp:  failure(4, ErrAttrNotFound),
			want: []byte{0x01, 0x08, 4, 0, 0x0a},
		},
	}
	for _, tt := range cases {
		if got := EncodeResponse(tt.req, tt.rsp, tt.mtu); !bytes.Equal(got, tt.want) {
			t.Errorf("%s: got %x want %x", tt.name, got, tt.want)
		}
	}
}

func TestValuePDU(t *testing.T) {
	got := valuePDU(false, 3, bytes.Repeat([]byte{1}, 30), DefaultMTU)
	want := cat([]byte{0x1b, 3, 0}, bytes.Repeat([]byte{1}, 20))
	if !bytes.Equal(got, want) {
		t.Errorf("notification: got %x want %x", got, want)
	}
	if got := valuePDU(true, 3, []byte{9}, DefaultMTU); !bytes.Equal(got, []byte{0x1d, 3, 0, 9}) {
		t.Errorf("indication: got %x", got)
	}
}

func TestEncodeIncludedServiceDefaultMTU(t *testing.T) {
	srv, _ := newTestServer(t, thermometerXML)
	req := FindIncludedService{Start: 0, End: 0xFFFF}
	rsp := srv.Handle(req)
	if rsp.Status != ErrSuccess {
		t.Fatalf("FindIncludedService: got %s", rsp.Status)
	}
	pdu := EncodeResponse(req, rsp, DefaultMTU)
	if len(pdu) > DefaultMTU {
		t.Fatalf("pdu %x longer than %d", pdu, DefaultMTU)
	}
	if pdu[0] != 0x09 || int(pdu[1]) != len(pdu)-2 {
		t.Errorf("pdu %x: length byte %d, %d bytes follow", pdu, pdu[1], len(pdu)-2)
	}
	if want := []byte{0x0F, 0x18}; !bytes.Equal(pdu[len(pdu)-2:], want) {
		t.Errorf("pdu %x: want 16-bit uuid %x", pdu, want)
	}
}
