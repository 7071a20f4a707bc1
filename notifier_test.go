package gatt

import (
	"bytes"
	"testing"
	"time"
)

func TestTimestamp(t *testing.T) {
	got := timestamp(time.Date(2009, time.November, 10, 23, 0, 59, 0, time.UTC))
	if want := []byte{10, 11, 9, 23, 0, 59}; !bytes.Equal(got, want) {
		t.Errorf("timestamp: got %v want %v", got, want)
	}
}

func TestAlarm(t *testing.T) {
	fired := make(chan struct{}, 8)
	a := newAlarm(time.Millisecond, func() { fired <- struct{}{} })

	a.set(false)
	if a.armed() {
		t.Fatalf("alarm armed by set(false)")
	}
	a.set(true)
	a.set(true) // level-triggered: no second timer
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("alarm did not fire")
		}
	}
	a.set(false)
	if a.armed() {
		t.Fatalf("alarm still armed")
	}
	// Drain a tick that may have raced with set(false).
	time.Sleep(5 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	time.Sleep(10 * time.Millisecond)
	if len(fired) != 0 {
		t.Errorf("disarmed alarm fired")
	}
}
