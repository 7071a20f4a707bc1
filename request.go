package gatt

// A Request is one ATT-level operation addressed to the server.
// It is one of the types below; see Server.Handle.
type Request interface {
	// opcode returns the ATT request opcode the operation answers to.
	opcode() byte
}

// DiscoverPrimaryService finds the first primary service in [Start, End].
type DiscoverPrimaryService struct {
	Start, End uint16
}

// DiscoverPrimaryServiceByUUID finds the first primary service in
// [Start, End] whose UUID is UUID.
type DiscoverPrimaryServiceByUUID struct {
	Start, End uint16
	UUID       UUID
}

// FindIncludedService finds the first included service in [Start, End].
type FindIncludedService struct {
	Start, End uint16
}

// FindInformation finds the first attribute of any type in [Start, End].
type FindInformation struct {
	Start, End uint16
}

// DiscoverCharacteristic finds the first characteristic declaration
// in [Start, End].
type DiscoverCharacteristic struct {
	Start, End uint16
}

// ReadByType reads the first attribute of type Type in [Start, End].
type ReadByType struct {
	Type       UUID
	Start, End uint16
	Session    string
	Auth       AuthLevel
}

// Read reads the attribute with handle Handle.
type Read struct {
	Handle  uint16
	Session string
	Auth    AuthLevel
}

// WriteRequest writes Value to the attribute with handle Handle;
// the client expects a response.
type WriteRequest struct {
	Handle  uint16
	Value   []byte
	Session string
	Auth    AuthLevel
}

// WriteCommand is a WriteRequest without response.
type WriteCommand struct {
	Handle  uint16
	Value   []byte
	Session string
	Auth    AuthLevel
}

// SetClientConfigDescriptor updates the subscription of Session on the
// Client Characteristic Configuration descriptor Handle directly.
type SetClientConfigDescriptor struct {
	Handle  uint16
	Value   []byte
	Session string
}

func (DiscoverPrimaryService) opcode() byte       { return attOpReadByGroupReq }
func (DiscoverPrimaryServiceByUUID) opcode() byte { return attOpFindByTypeReq }
func (FindIncludedService) opcode() byte          { return attOpReadByTypeReq }
func (FindInformation) opcode() byte              { return attOpFindInfoReq }
func (DiscoverCharacteristic) opcode() byte       { return attOpReadByTypeReq }
func (ReadByType) opcode() byte                   { return attOpReadByTypeReq }
func (Read) opcode() byte                         { return attOpReadReq }
func (WriteRequest) opcode() byte                 { return attOpWriteReq }
func (WriteCommand) opcode() byte                 { return attOpWriteCmd }
func (SetClientConfigDescriptor) opcode() byte    { return attOpWriteReq }

// A Response is the result of a Request.
//
// On success Payload holds the reply, little-endian with UUIDs in wire
// order; Handle is the attribute the reply is about. On failure Status
// is the ATT error and Handle the handle to report it against.
type Response struct {
	Status  AttError
	Handle  uint16
	Payload []byte
}

func failure(h uint16, s AttError) Response {
	return Response{Status: s, Handle: h}
}

func success(h uint16, payload []byte) Response {
	return Response{Status: ErrSuccess, Handle: h, Payload: payload}
}
