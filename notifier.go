package gatt

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// A Notifier delivers unsolicited values to subscribed sessions.
// The transport serving the sessions usually implements it.
type Notifier interface {
	// Notify sends an unacknowledged Handle Value Notification.
	Notify(session string, h uint16, data []byte) error
	// Indicate sends an acknowledged Handle Value Indication.
	Indicate(session string, h uint16, data []byte) error
}

type delivery struct {
	session  string
	handle   uint16
	data     []byte
	indicate bool
}

// tick is the periodic delivery to every subscribed session.
func (s *Server) tick() {
	s.mu.Lock()
	dd := s.collect("")
	s.mu.Unlock()
	s.deliver(dd)
}

// collect builds the pending deliveries of session, or of every
// session if session is "". The caller holds s.mu.
func (s *Server) collect(session string) []delivery {
	var dd []delivery
	ts := timestamp(s.now())
	for _, h := range s.st.HandlesOfType(attrClientCharacteristicConfigUUID) {
		a, ok := s.st.At(h)
		if !ok || len(a.subs) == 0 {
			continue
		}
		decl, ok := s.st.characteristicOf(a)
		if !ok {
			continue
		}
		val, ok := s.st.At(decl.Handle + 1)
		if !ok {
			continue
		}
		for _, sess := range a.Sessions() {
			if session != "" && sess != session {
				continue
			}
			m := a.subs[sess]
			switch {
			case m == CCCNotify && decl.Props&CharNotify != 0:
			case m == CCCIndicate && decl.Props&CharIndicate != 0:
			default:
				continue
			}
			s.refresh(val)
			data := make([]byte, 0, len(val.Value)+len(ts))
			data = append(append(data, val.Value...), ts...)
			dd = append(dd, delivery{
				session:  sess,
				handle:   val.Handle,
				data:     data,
				indicate: m == CCCIndicate,
			})
		}
	}
	return dd
}

// deliver sends dd through the notifier. It must be called without s.mu.
func (s *Server) deliver(dd []delivery) {
	if s.notifier == nil {
		return
	}
	for _, d := range dd {
		var err error
		if d.indicate {
			err = s.notifier.Indicate(d.session, d.handle, d.data)
		} else {
			err = s.notifier.Notify(d.session, d.handle, d.data)
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"session": d.session,
				"handle":  d.handle,
			}).Warn("delivery failed")
		}
	}
}

// timestamp encodes t as day, month, two-digit year, hour, minute, second.
func timestamp(t time.Time) []byte {
	return []byte{
		byte(t.Day()),
		byte(t.Month()),
		byte(t.Year() % 100),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
	}
}

// An alarm fires periodically while it is armed.
type alarm struct {
	mu       sync.Mutex
	interval time.Duration
	fire     func()
	timer    *time.Timer
	gen      int
}

func newAlarm(d time.Duration, fire func()) *alarm {
	return &alarm{interval: d, fire: fire}
}

// set arms or disarms the alarm. Setting the current state is a no-op.
func (a *alarm) set(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if on == (a.timer != nil) {
		return
	}
	if !on {
		a.timer.Stop()
		a.timer = nil
		return
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.interval, func() { a.ring(gen) })
}

func (a *alarm) armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

func (a *alarm) ring(gen int) {
	a.mu.Lock()
	live := a.timer != nil && a.gen == gen
	a.mu.Unlock()
	if !live {
		return
	}
	a.fire()
	a.mu.Lock()
	if a.timer != nil && a.gen == gen {
		a.timer.Reset(a.interval)
	}
	a.mu.Unlock()
}
