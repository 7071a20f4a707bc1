package gatt

import (
	"bytes"
	"encoding/binary"
)

// DecodeRequest parses an ATT request PDU received from session, whose
// link is at security level auth. MTU exchanges are left to the
// transport. A PDU that cannot be served yields an error whose
// Marshal method returns the ATT Error Response to send back.
func DecodeRequest(pdu []byte, session string, auth AuthLevel) (Request, error) {
	if len(pdu) == 0 {
		return nil, attErr{status: ErrInvalidPDU}
	}
	op, b := pdu[0], pdu[1:]
	invalid := attErr{opcode: op, status: ErrInvalidPDU}

	switch op {
	case attOpFindInfoReq:
		if len(b) != 4 {
			return nil, invalid
		}
		start, end, err := readHandleRange(op, b)
		if err != nil {
			return nil, err
		}
		return FindInformation{Start: start, End: end}, nil

	case attOpFindByTypeReq:
		if len(b) < 6 {
			return nil, invalid
		}
		start, end, err := readHandleRange(op, b)
		if err != nil {
			return nil, err
		}
		if binary.LittleEndian.Uint16(b[4:]) != 0x2800 {
			return nil, attErr{opcode: op, handle: start, status: ErrAttrNotFound}
		}
		u, ok := uuidFromWire(b[6:])
		if !ok {
			return nil, invalid
		}
		return DiscoverPrimaryServiceByUUID{Start: start, End: end, UUID: u}, nil

	case attOpReadByTypeReq:
		if len(b) != 6 && len(b) != 20 {
			return nil, invalid
		}
		start, end, err := readHandleRange(op, b)
		if err != nil {
			return nil, err
		}
		u, _ := uuidFromWire(b[4:])
		switch u {
		case attrIncludeUUID:
			return FindIncludedService{Start: start, End: end}, nil
		case attrCharacteristicUUID:
			return DiscoverCharacteristic{Start: start, End: end}, nil
		}
		return ReadByType{Type: u, Start: start, End: end, Session: session, Auth: auth}, nil

	case attOpReadReq:
		if len(b) != 2 {
			return nil, invalid
		}
		return Read{Handle: binary.LittleEndian.Uint16(b), Session: session, Auth: auth}, nil

	case attOpReadByGroupReq:
		if len(b) != 6 && len(b) != 20 {
			return nil, invalid
		}
		start, end, err := readHandleRange(op, b)
		if err != nil {
			return nil, err
		}
		if u, _ := uuidFromWire(b[4:]); u != attrPrimaryServiceUUID {
			return nil, attErr{opcode: op, handle: start, status: ErrUnsuppGrpType}
		}
		return DiscoverPrimaryService{Start: start, End: end}, nil

	case attOpWriteReq, attOpWriteCmd:
		if len(b) < 2 {
			return nil, invalid
		}
		h := binary.LittleEndian.Uint16(b)
		v := append([]byte{}, b[2:]...)
		if op == attOpWriteCmd {
			return WriteCommand{Handle: h, Value: v, Session: session, Auth: auth}, nil
		}
		return WriteRequest{Handle: h, Value: v, Session: session, Auth: auth}, nil
	}
	return nil, attErr{opcode: op, status: ErrReqNotSupp}
}

func readHandleRange(op byte, b []byte) (start, end uint16, err error) {
	start, end = binary.LittleEndian.Uint16(b), binary.LittleEndian.Uint16(b[2:])
	if start > end {
		return 0, 0, attErr{opcode: op, handle: start, status: ErrInvalidHandle}
	}
	return start, end, nil
}

// EncodeResponse frames rsp, the answer to req, as an ATT response PDU
// no longer than mtu. Write commands have no response; EncodeResponse
// returns nil for them.
func EncodeResponse(req Request, rsp Response, mtu int) []byte {
	op := req.opcode()
	if op == attOpWriteCmd {
		return nil
	}
	if rsp.Status != ErrSuccess {
		return attErrorResp(op, rsp.Handle, rsp.Status)
	}
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}

	w := newL2capWriter(uint16(mtu))
	p := rsp.Payload

	// entry writes one attribute data entry; an entry that overflows
	// the MTU fails the whole response.
	entry := func(e []byte) []byte {
		w.Chunk()
		w.WriteFit(e)
		if !w.Commit() {
			return attErrorResp(op, rsp.Handle, ErrUnlikely)
		}
		return w.Bytes()
	}

	switch req.(type) {
	case DiscoverPrimaryService:
		w.WriteByteFit(attOpReadByGroupResp)
		w.WriteByteFit(byte(len(p)))
		return entry(p)
	case DiscoverPrimaryServiceByUUID:
		w.WriteByteFit(attOpFindByTypeResp)
		return entry(p)
	case FindIncludedService:
		e := compactInclude(p)
		w.WriteByteFit(attOpReadByTypeResp)
		w.WriteByteFit(byte(len(e)))
		return entry(e)
	case DiscoverCharacteristic:
		w.WriteByteFit(attOpReadByTypeResp)
		w.WriteByteFit(byte(len(p)))
		return entry(p)
	case FindInformation:
		w.WriteByteFit(attOpFindInfoResp)
		if len(p) == 18 {
			if u, _ := uuidFromWire(p[2:]); u.Is16Bit() {
				w.WriteByteFit(0x01) // 16-bit UUIDs
				return entry(append(p[:2:2], shortUUID(u)...))
			}
		}
		w.WriteByteFit(0x02)
		return entry(p)
	case ReadByType:
		// The length byte counts the handle too.
		n := len(p)
		if room := mtu - 4; n > room {
			n = room
		}
		if n > 0xFF-2 {
			n = 0xFF - 2
		}
		w.WriteByteFit(attOpReadByTypeResp)
		w.WriteByteFit(byte(n + 2))
		w.WriteUint16Fit(rsp.Handle)
		w.WriteFit(p[:n])
	case Read:
		w.WriteByteFit(attOpReadResp)
		w.WriteFit(p)
	case WriteRequest, SetClientConfigDescriptor:
		w.WriteByteFit(attOpWriteResp)
	default:
		return attErrorResp(op, rsp.Handle, ErrReqNotSupp)
	}
	return w.Bytes()
}

// compactInclude shortens an included service entry (handle, range,
// 128-bit UUID) to its wire form. A SIG-assigned target keeps its 16-bit
// UUID; any other target is sent as handle and range only, and the
// client reads its UUID from the include declaration.
func compactInclude(p []byte) []byte {
	if len(p) != 22 {
		return p
	}
	e := append([]byte{}, p[:6]...)
	if u, _ := uuidFromWire(p[6:]); u.Is16Bit() {
		e = append(e, shortUUID(u)...)
	}
	return e
}

// shortUUID returns the 16-bit form of u in wire order.
func shortUUID(u UUID) []byte {
	return []byte{u[3], u[2]}
}

// valuePDU frames a Handle Value Notification or Indication,
// truncating data to fit mtu.
func valuePDU(indicate bool, h uint16, data []byte, mtu int) []byte {
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}
	w := newL2capWriter(uint16(mtu))
	if indicate {
		w.WriteByteFit(attOpHandleInd)
	} else {
		w.WriteByteFit(attOpHandleNotify)
	}
	w.WriteUint16Fit(h)
	w.WriteFit(data)
	return w.Bytes()
}

// l2capWriter builds a PDU that never exceeds the MTU.
//
// Writes between Chunk and Commit are kept only if all of them fit;
// otherwise Commit drops them and reports false.
type l2capWriter struct {
	mtu      int
	b        bytes.Buffer
	chunked  bool
	mark     int
	overflow bool
}

func newL2capWriter(mtu uint16) *l2capWriter {
	return &l2capWriter{mtu: int(mtu)}
}

// Chunk starts a chunk. It panics if a chunk is already open.
func (w *l2capWriter) Chunk() {
	if w.chunked {
		panic("l2capWriter: Chunk called twice without Commit")
	}
	w.chunked = true
	w.mark = w.b.Len()
	w.overflow = false
}

// Commit ends the open chunk, reporting whether it fit.
// It panics if no chunk is open.
func (w *l2capWriter) Commit() bool {
	if !w.chunked {
		panic("l2capWriter: Commit called without Chunk")
	}
	w.chunked = false
	if w.overflow {
		w.b.Truncate(w.mark)
		w.overflow = false
		return false
	}
	return true
}

// WriteByteFit writes b if it fits.
func (w *l2capWriter) WriteByteFit(b byte) bool {
	if w.b.Len()+1 > w.mtu {
		w.overflow = true
		return false
	}
	w.b.WriteByte(b)
	return true
}

// WriteUint16Fit writes v little-endian if both bytes fit.
func (w *l2capWriter) WriteUint16Fit(v uint16) bool {
	if w.b.Len()+2 > w.mtu {
		w.overflow = true
		return false
	}
	w.b.Write([]byte{byte(v), byte(v >> 8)})
	return true
}

// WriteFit writes as much of b as fits, reporting whether all of it did.
func (w *l2capWriter) WriteFit(b []byte) bool {
	n := w.mtu - w.b.Len()
	if n < 0 {
		n = 0
	}
	if len(b) <= n {
		w.b.Write(b)
		return true
	}
	w.b.Write(b[:n])
	w.overflow = true
	return false
}

// Bytes returns the PDU written so far.
func (w *l2capWriter) Bytes() []byte {
	return w.b.Bytes()
}
