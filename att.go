package gatt

import "fmt"

const (
	attOpError           = 0x01
	attOpMtuReq          = 0x02
	attOpMtuResp         = 0x03
	attOpFindInfoReq     = 0x04
	attOpFindInfoResp    = 0x05
	attOpFindByTypeReq   = 0x06
	attOpFindByTypeResp  = 0x07
	attOpReadByTypeReq   = 0x08
	attOpReadByTypeResp  = 0x09
	attOpReadReq         = 0x0a
	attOpReadResp        = 0x0b
	attOpReadByGroupReq  = 0x10
	attOpReadByGroupResp = 0x11
	attOpWriteReq        = 0x12
	attOpWriteResp       = 0x13
	attOpWriteCmd        = 0x52
	attOpHandleNotify    = 0x1b
	attOpHandleInd       = 0x1d
	attOpHandleCnf       = 0x1e
)

// AttError is an ATT status code, as carried by the Error Response
// of the Attribute Protocol [Vol 3, Part F, 3.4.1.1].
type AttError byte

// ATT status codes returned by the engine.
const (
	ErrSuccess           AttError = 0x00 // ErrSuccess means the operation is success.
	ErrInvalidHandle     AttError = 0x01 // ErrInvalidHandle means the attribute handle given was not valid on this server.
	ErrReadNotPerm       AttError = 0x02 // ErrReadNotPerm means the attribute cannot be read.
	ErrWriteNotPerm      AttError = 0x03 // ErrWriteNotPerm means the attribute cannot be written.
	ErrInvalidPDU        AttError = 0x04 // ErrInvalidPDU means the attribute PDU was invalid.
	ErrAuthentication    AttError = 0x05 // ErrAuthentication means the attribute requires authentication before it can be read or written.
	ErrReqNotSupp        AttError = 0x06 // ErrReqNotSupp means the attribute server does not support the request received from the client.
	ErrAuthorization     AttError = 0x08 // ErrAuthorization means the attribute requires authorization before it can be read or written.
	ErrAttrNotFound      AttError = 0x0a // ErrAttrNotFound means no attribute found within the given attribute handle range.
	ErrUnsuppGrpType     AttError = 0x10 // ErrUnsuppGrpType means the attribute type is not a supported grouping attribute.
	ErrInvalAttrValueLen AttError = 0x0d // ErrInvalAttrValueLen means the attribute value length is invalid for the operation.
	ErrUnlikely          AttError = 0x0e // ErrUnlikely means the request encountered an unlikely error.
	ErrApplication       AttError = 0x80 // ErrApplication means the value was rejected by the application.
)

func (a AttError) Error() string {
	if s, ok := errName[a]; ok {
		return s
	}
	switch i := int(a); {
	case i >= 0x80 && i <= 0x9F:
		return "application error"
	case i >= 0xE0:
		return "profile or service error"
	default:
		return "reserved error code"
	}
}

var errName = map[AttError]string{
	ErrSuccess:           "success",
	ErrInvalidHandle:     "invalid handle",
	ErrReadNotPerm:       "read not permitted",
	ErrWriteNotPerm:      "write not permitted",
	ErrInvalidPDU:        "invalid PDU",
	ErrAuthentication:    "insufficient authentication",
	ErrReqNotSupp:        "request not supported",
	ErrAuthorization:     "insufficient authorization",
	ErrAttrNotFound:      "attribute not found",
	ErrUnsuppGrpType:     "unsupported group type",
	ErrInvalAttrValueLen: "invalid attribute value length",
	ErrUnlikely:          "unlikely error",
	ErrApplication:       "application error",
}

func attErrorResp(op byte, h uint16, s AttError) []byte {
	return attErr{opcode: op, handle: h, status: s}.Marshal()
}

// attRespFor maps from att request
// codes to att response codes.
var attRespFor = map[byte]byte{
	attOpMtuReq:         attOpMtuResp,
	attOpFindInfoReq:    attOpFindInfoResp,
	attOpFindByTypeReq:  attOpFindByTypeResp,
	attOpReadByTypeReq:  attOpReadByTypeResp,
	attOpReadReq:        attOpReadResp,
	attOpReadByGroupReq: attOpReadByGroupResp,
	attOpWriteReq:       attOpWriteResp,
}

type attErr struct {
	opcode uint8
	handle uint16
	status AttError
}

func (e attErr) Error() string {
	return fmt.Sprintf("att: op 0x%02x handle 0x%04x: %v", e.opcode, e.handle, e.status)
}

func (e attErr) Marshal() []byte {
	// little-endian encoding for handle
	return []byte{attOpError, e.opcode, byte(e.handle), byte(e.handle >> 8), byte(e.status)}
}
