package gatt

import (
	"time"

	"github.com/sirupsen/logrus"
)

// An Option is a self-referential function, which sets a Server
// option and returns an Option that restores the previous value.
type Option func(*Server) Option

// Option sets the options specified and returns an option to restore
// the last option set.
func (s *Server) Option(opts ...Option) (prev Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, opt := range opts {
		prev = opt(s)
	}
	return prev
}

// Values sets the store that attribute values are persisted to and
// refreshed from. Without one, values live in memory only.
func Values(v ValueStore) Option {
	return func(s *Server) Option {
		prev := s.values
		s.values = v
		return Values(prev)
	}
}

// Deliver sets the notifier used for notifications and indications.
func Deliver(n Notifier) Option {
	return func(s *Server) Option {
		prev := s.notifier
		s.notifier = n
		return Deliver(prev)
	}
}

// Logger sets the logger. The default is the logrus standard logger.
func Logger(l logrus.FieldLogger) Option {
	return func(s *Server) Option {
		prev := s.log
		s.log = l
		return Logger(prev)
	}
}

// NotifyInterval sets the period of notification ticks. It only takes
// effect when passed to NewServer.
func NotifyInterval(d time.Duration) Option {
	return func(s *Server) Option {
		prev := s.interval
		s.interval = d
		return NotifyInterval(prev)
	}
}

// Clock sets the time source for notification timestamps.
func Clock(now func() time.Time) Option {
	return func(s *Server) Option {
		prev := s.now
		s.now = now
		return Clock(prev)
	}
}

// PersistenceError sets a function called with every value store
// failure, after it has been logged.
func PersistenceError(fn func(error)) Option {
	return func(s *Server) Option {
		prev := s.persisted
		s.persisted = fn
		return PersistenceError(prev)
	}
}
