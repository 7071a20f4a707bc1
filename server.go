package gatt

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// A ValueStore persists attribute values across restarts.
// See package valuestore for the file-backed implementation.
type ValueStore interface {
	// Load calls fn for every persisted value.
	Load(fn func(h uint16, v []byte)) error
	// Get returns the persisted value of handle h.
	Get(h uint16) (v []byte, ok bool, err error)
	// Put persists v as the value of handle h.
	Put(h uint16, v []byte) error
}

// A Server answers ATT requests against one attribute table.
//
// All requests, writes and notification ticks are serialized on the
// server's lock; a Server is safe for concurrent use.
type Server struct {
	mu sync.Mutex
	st *Store

	values    ValueStore
	notifier  Notifier
	log       logrus.FieldLogger
	now       func() time.Time
	interval  time.Duration
	persisted func(err error)

	alarm *alarm
}

// NewServer creates a Server over st with the specified options.
// See also Server.Option.
func NewServer(st *Store, opts ...Option) *Server {
	s := &Server{
		st:       st,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		interval: DefaultNotifyInterval,
	}
	s.Option(opts...)
	s.alarm = newAlarm(s.interval, s.tick)
	return s
}

// Store returns the server's attribute table. Callers must not
// modify it while the server is handling requests.
func (s *Server) Store() *Store { return s.st }

// LoadValues applies every persisted value to the matching attribute.
// Values for unknown handles are ignored. A load failure leaves the
// attributes as built and is returned for reporting only.
func (s *Server) LoadValues() error {
	if s.values == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	err := s.values.Load(func(h uint16, v []byte) {
		if a, ok := s.st.At(h); ok {
			a.Value = v
			n++
		}
	})
	if err != nil {
		s.persistFailed(err, HandleNone)
		return err
	}
	s.log.WithField("count", n).Debug("persisted values loaded")
	return nil
}

// Handle performs req and returns its response.
func (s *Server) Handle(req Request) Response {
	s.mu.Lock()
	rsp, dd := s.handle(req)
	s.mu.Unlock()
	s.deliver(dd)
	if rsp.Status != ErrSuccess {
		s.log.WithFields(logrus.Fields{
			"op":     opName(req),
			"handle": rsp.Handle,
			"status": rsp.Status.Error(),
		}).Debug("request failed")
	}
	return rsp
}

// Disconnect drops every subscription held by session.
func (s *Server) Disconnect(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.st.HandlesOfType(attrClientCharacteristicConfigUUID) {
		if a, ok := s.st.At(h); ok {
			a.setSubscription(session, CCCNone)
		}
	}
	s.alarm.set(s.anySubscribed())
	s.log.WithField("session", session).Debug("session disconnected")
}

// Close disarms the notification alarm. The server keeps answering
// requests, but no further periodic deliveries happen.
func (s *Server) Close() error {
	s.alarm.set(false)
	return nil
}

func (s *Server) handle(req Request) (Response, []delivery) {
	switch r := req.(type) {
	case DiscoverPrimaryService:
		return s.discoverPrimaryService(r), nil
	case DiscoverPrimaryServiceByUUID:
		return s.discoverPrimaryServiceByUUID(r), nil
	case FindIncludedService:
		return s.findIncludedService(r), nil
	case FindInformation:
		return s.findInformation(r), nil
	case DiscoverCharacteristic:
		return s.discoverCharacteristic(r), nil
	case ReadByType:
		a, ok := s.st.FindInRange(r.Type, r.Start, r.End)
		if !ok {
			return failure(r.Start, ErrAttrNotFound), nil
		}
		return s.read(a, r.Session, r.Auth), nil
	case Read:
		a, ok := s.st.At(r.Handle)
		if !ok {
			return failure(r.Handle, ErrAttrNotFound), nil
		}
		return s.read(a, r.Session, r.Auth), nil
	case WriteRequest:
		return s.write(r.Handle, r.Value, r.Session, r.Auth, false)
	case WriteCommand:
		return s.write(r.Handle, r.Value, r.Session, r.Auth, true)
	case SetClientConfigDescriptor:
		a, ok := s.st.At(r.Handle)
		if !ok {
			return failure(r.Handle, ErrAttrNotFound), nil
		}
		if a.Type != attrClientCharacteristicConfigUUID {
			return failure(r.Handle, ErrInvalidHandle), nil
		}
		return s.setClientConfig(a, r.Value, r.Session)
	}
	return failure(0, ErrReqNotSupp), nil
}

func (s *Server) discoverPrimaryService(r DiscoverPrimaryService) Response {
	a, ok := s.st.FindInRange(attrPrimaryServiceUUID, r.Start, r.End)
	if !ok {
		return failure(r.Start, ErrAttrNotFound)
	}
	b := make([]byte, 4, 20)
	binary.LittleEndian.PutUint16(b[0:], a.StartHandle)
	binary.LittleEndian.PutUint16(b[2:], a.EndHandle)
	return success(a.Handle, append(b, a.UUID.Reverse()...))
}

func (s *Server) discoverPrimaryServiceByUUID(r DiscoverPrimaryServiceByUUID) Response {
	for _, h := range s.st.HandlesOfType(attrPrimaryServiceUUID) {
		if h < r.Start || h > r.End {
			continue
		}
		a, ok := s.st.At(h)
		if !ok || a.UUID != r.UUID {
			continue
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint16(b[0:], a.StartHandle)
		binary.LittleEndian.PutUint16(b[2:], a.EndHandle)
		return success(a.Handle, b)
	}
	return failure(r.Start, ErrAttrNotFound)
}

func (s *Server) findIncludedService(r FindIncludedService) Response {
	a, ok := s.st.FindInRange(attrIncludeUUID, r.Start, r.End)
	if !ok {
		return failure(r.Start, ErrAttrNotFound)
	}
	b := make([]byte, 2, 22)
	binary.LittleEndian.PutUint16(b, a.Handle)
	return success(a.Handle, append(b, includePayload(a)...))
}

func (s *Server) findInformation(r FindInformation) Response {
	aa := s.st.Subrange(r.Start, r.End)
	if len(aa) == 0 {
		return failure(r.Start, ErrAttrNotFound)
	}
	a := aa[0]
	b := make([]byte, 2, 18)
	binary.LittleEndian.PutUint16(b, a.Handle)
	return success(a.Handle, append(b, a.Type.Reverse()...))
}

func (s *Server) discoverCharacteristic(r DiscoverCharacteristic) Response {
	a, ok := s.st.FindInRange(attrCharacteristicUUID, r.Start, r.End)
	if !ok {
		return failure(r.Start, ErrAttrNotFound)
	}
	b := make([]byte, 2, 21)
	binary.LittleEndian.PutUint16(b, a.Handle)
	return success(a.Handle, append(b, declarationPayload(a)...))
}

// read serves Read and ReadByType once the attribute is located.
func (s *Server) read(a *Attribute, session string, auth AuthLevel) Response {
	if v := EvaluateRead(a.Perm, auth); v != Allowed {
		return failure(a.Handle, v.Err())
	}
	if !a.isStructural() && a.Type != attrClientCharacteristicConfigUUID && a.Props&CharRead == 0 {
		return failure(a.Handle, ErrReadNotPerm)
	}
	return success(a.Handle, s.readPayload(a, session))
}

func (s *Server) readPayload(a *Attribute, session string) []byte {
	switch {
	case a.isGroup():
		return a.UUID.Reverse()
	case a.Type == attrIncludeUUID:
		return includePayload(a)
	case a.Type == attrCharacteristicUUID:
		return declarationPayload(a)
	case a.Type == attrClientCharacteristicConfigUUID:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(a.Subscription(session)))
		return b
	case a.Type == attrAggregateFormatUUID:
		return s.aggregatePayload(a)
	}
	s.refresh(a)
	return append([]byte{}, a.Value...)
}

// write serves WriteRequest and WriteCommand.
func (s *Server) write(h uint16, v []byte, session string, auth AuthLevel, cmd bool) (Response, []delivery) {
	a, ok := s.st.At(h)
	if !ok {
		return failure(h, ErrAttrNotFound), nil
	}
	if verdict := EvaluateWrite(a.Perm, auth); verdict != Allowed {
		return failure(h, verdict.Err()), nil
	}

	switch {
	case a.Type == attrClientCharacteristicConfigUUID:
		return s.setClientConfig(a, v, session)
	case a.isStructural():
		return failure(h, ErrWriteNotPerm), nil
	case s.st.isValue(a):
		need := CharWrite
		if cmd {
			need |= CharWriteNR
		}
		if a.Props&need == 0 {
			return failure(h, ErrWriteNotPerm), nil
		}
	case a.Type == attrUserDescriptionUUID:
		if !s.userDescriptionWritable(a) {
			return failure(h, ErrWriteNotPerm), nil
		}
	default:
		if a.Props&CharWrite == 0 {
			return failure(h, ErrWriteNotPerm), nil
		}
	}

	if len(v) > maxValueLen {
		return failure(h, ErrInvalAttrValueLen), nil
	}
	a.Value = append([]byte{}, v...)
	s.persist(h, a.Value)
	return success(h, nil), nil
}

// maxValueLen is the longest value a persisted record can carry.
const maxValueLen = 0xFF

// setClientConfig records the subscription session wrote to the CCC
// descriptor a and re-evaluates the notification alarm.
func (s *Server) setClientConfig(a *Attribute, v []byte, session string) (Response, []delivery) {
	if len(v) == 0 || v[0] > byte(CCCIndicate) || (len(v) > 1 && v[1] != 0) {
		return failure(a.Handle, ErrApplication), nil
	}
	decl, ok := s.st.characteristicOf(a)
	if !ok {
		return failure(a.Handle, ErrUnlikely), nil
	}
	m := CCCMode(v[0])
	switch {
	case m == CCCNotify && decl.Props&CharNotify == 0,
		m == CCCIndicate && decl.Props&CharIndicate == 0:
		return failure(a.Handle, ErrWriteNotPerm), nil
	}

	a.setSubscription(session, m)
	s.alarm.set(s.anySubscribed())
	s.log.WithFields(logrus.Fields{
		"handle":  a.Handle,
		"session": session,
		"mode":    m.String(),
	}).Info("subscription changed")

	if m == CCCNone {
		return success(a.Handle, nil), nil
	}
	return success(a.Handle, nil), s.collect(session)
}

func (s *Server) anySubscribed() bool {
	for _, h := range s.st.HandlesOfType(attrClientCharacteristicConfigUUID) {
		if a, ok := s.st.At(h); ok && len(a.subs) > 0 {
			return true
		}
	}
	return false
}

// refresh reloads the persisted value of a, if there is one.
func (s *Server) refresh(a *Attribute) {
	if s.values == nil {
		return
	}
	v, ok, err := s.values.Get(a.Handle)
	if err != nil {
		s.persistFailed(err, a.Handle)
		return
	}
	if ok {
		a.Value = v
	}
}

func (s *Server) persist(h uint16, v []byte) {
	if s.values == nil {
		return
	}
	if err := s.values.Put(h, v); err != nil {
		s.persistFailed(err, h)
	}
}

// persistFailed reports a value store failure. The ATT caller never
// sees it: a lost write or load looks like a value never written.
func (s *Server) persistFailed(err error, h uint16) {
	l := s.log.WithError(err)
	if h != HandleNone {
		l = l.WithField("handle", h)
	}
	l.Warn("value store failure")
	if s.persisted != nil {
		s.persisted(err)
	}
}

func opName(req Request) string {
	switch req.(type) {
	case DiscoverPrimaryService:
		return "DiscoverPrimaryService"
	case DiscoverPrimaryServiceByUUID:
		return "DiscoverPrimaryServiceByUUID"
	case FindIncludedService:
		return "FindIncludedService"
	case FindInformation:
		return "FindInformation"
	case DiscoverCharacteristic:
		return "DiscoverCharacteristic"
	case ReadByType:
		return "ReadByType"
	case Read:
		return "Read"
	case WriteRequest:
		return "WriteRequest"
	case WriteCommand:
		return "WriteCommand"
	case SetClientConfigDescriptor:
		return "SetClientConfigDescriptor"
	}
	return "Unknown"
}
