package gatt

import "sync"

// A session is one connected client as seen by a Conn.
type session struct {
	id   string
	auth AuthLevel
	mtu  int

	// Set while a request from this session is in flight; deliveries
	// are held here so that they follow the response on the link.
	held [][]byte
	busy bool
}

func newSession(id string) *session {
	return &session{id: id, mtu: DefaultMTU}
}

// sessions is the set of sessions a Conn knows about.
type sessions struct {
	mu sync.Mutex
	m  map[string]*session
}

// get returns the session id, creating it if needed.
func (ss *sessions) get(id string) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.m == nil {
		ss.m = make(map[string]*session)
	}
	s, ok := ss.m[id]
	if !ok {
		s = newSession(id)
		ss.m[id] = s
	}
	return s
}

func (ss *sessions) drop(id string) {
	ss.mu.Lock()
	delete(ss.m, id)
	ss.mu.Unlock()
}
