package gatt

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Conn serves a Server to the clients behind a line-oriented link,
// usually a Shim. It reads
//
//	accept <session>
//	security <session> None|Authenticated|Authorized
//	data <session> <hex PDU>
//	disconnect <session>
//
// and writes "data <session> <hex PDU>" for responses, notifications
// and indications. A Conn is the server's Notifier.
type Conn struct {
	srv *Server
	rw  io.ReadWriter
	mtu int // server receive MTU
	log logrus.FieldLogger

	sendmu sync.Mutex // serializes writes to rw
	ss     sessions
}

// NewConn returns a Conn serving srv over rw. mtu is the largest PDU
// the server accepts; it is clamped to [DefaultMTU, MaxMTU].
func NewConn(srv *Server, rw io.ReadWriter, mtu int) *Conn {
	switch {
	case mtu < DefaultMTU:
		mtu = DefaultMTU
	case mtu > MaxMTU:
		mtu = MaxMTU
	}
	return &Conn{srv: srv, rw: rw, mtu: mtu, log: srv.log}
}

// Serve processes link events until the link is closed or ctx is done.
// It returns nil at end of input.
func (c *Conn) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		r := bufio.NewReader(c.rw)
		for {
			s, err := r.ReadString('\n')
			if s != "" {
				select {
				case lines <- s:
				case <-done:
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "read link")
		case s := <-lines:
			c.dispatch(s)
		}
	}
}

func (c *Conn) dispatch(line string) {
	f := strings.Fields(line)
	if len(f) < 2 {
		return
	}
	l := c.log.WithField("session", f[1])
	switch f[0] {
	case "accept":
		c.ss.get(f[1])
		l.Info("session accepted")
	case "disconnect":
		c.ss.drop(f[1])
		c.srv.Disconnect(f[1])
		l.Info("session closed")
	case "security":
		// A missing or unknown level drops the session to AuthNone.
		lvl := AuthNone
		switch {
		case len(f) < 3:
			l.Warn("security event without level")
		case ParseAuthLevel(f[2]) == AuthNone && f[2] != "None":
			l.WithField("level", f[2]).Warn("unexpected security level")
		default:
			lvl = ParseAuthLevel(f[2])
		}
		s := c.ss.get(f[1])
		c.ss.mu.Lock()
		s.auth = lvl
		c.ss.mu.Unlock()
		l.WithField("level", lvl).Debug("security changed")
	case "data":
		if len(f) < 3 {
			return
		}
		b, err := hex.DecodeString(f[2])
		if err != nil {
			l.WithError(err).Warn("bad PDU encoding")
			return
		}
		c.handleReq(c.ss.get(f[1]), b)
	default:
		l.WithField("event", f[0]).Debug("ignoring link event")
	}
}

// handleReq answers one request PDU from s.
func (c *Conn) handleReq(s *session, b []byte) {
	if len(b) == 0 {
		return
	}
	var rsp []byte
	switch b[0] {
	case attOpMtuReq:
		rsp = c.handleMTU(s, b[1:])
	case attOpHandleCnf:
		return
	default:
		c.ss.mu.Lock()
		s.busy = true
		auth, mtu := s.auth, s.mtu
		c.ss.mu.Unlock()

		req, err := DecodeRequest(b, s.id, auth)
		switch e := err.(type) {
		case nil:
			rsp = EncodeResponse(req, c.srv.Handle(req), mtu)
		case attErr:
			rsp = e.Marshal()
		default:
			rsp = attErrorResp(b[0], 0, ErrUnlikely)
		}
	}
	if rsp != nil {
		if err := c.send(s.id, rsp); err != nil {
			c.log.WithError(err).WithField("session", s.id).Warn("send failed")
		}
	}
	c.release(s)
}

func (c *Conn) handleMTU(s *session, b []byte) []byte {
	if len(b) != 2 {
		return attErrorResp(attOpMtuReq, 0, ErrInvalidPDU)
	}
	mtu := int(binary.LittleEndian.Uint16(b))
	if mtu > c.mtu {
		mtu = c.mtu
	}
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}
	c.ss.mu.Lock()
	s.mtu = mtu
	c.ss.mu.Unlock()
	return []byte{attOpMtuResp, byte(c.mtu), byte(c.mtu >> 8)}
}

// release sends the deliveries held while a request of s was in flight.
func (c *Conn) release(s *session) {
	c.ss.mu.Lock()
	held := s.held
	s.held, s.busy = nil, false
	c.ss.mu.Unlock()
	for _, b := range held {
		if err := c.send(s.id, b); err != nil {
			c.log.WithError(err).WithField("session", s.id).Warn("send failed")
		}
	}
}

// Notify implements Notifier.
func (c *Conn) Notify(session string, h uint16, data []byte) error {
	return c.deliver(session, false, h, data)
}

// Indicate implements Notifier. Confirmations are not awaited.
func (c *Conn) Indicate(session string, h uint16, data []byte) error {
	return c.deliver(session, true, h, data)
}

func (c *Conn) deliver(id string, indicate bool, h uint16, data []byte) error {
	c.ss.mu.Lock()
	s, ok := c.ss.m[id]
	if !ok {
		c.ss.mu.Unlock()
		return errors.Errorf("session %s not connected", id)
	}
	b := valuePDU(indicate, h, data, s.mtu)
	if s.busy {
		s.held = append(s.held, b)
		c.ss.mu.Unlock()
		return nil
	}
	c.ss.mu.Unlock()
	return c.send(id, b)
}

func (c *Conn) send(id string, b []byte) error {
	c.sendmu.Lock()
	defer c.sendmu.Unlock()
	_, err := fmt.Fprintf(c.rw, "data %s %x\n", id, b)
	return err
}
