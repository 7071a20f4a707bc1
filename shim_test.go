package gatt

import (
	"bufio"
	"io"
	"testing"
	"time"
)

func TestShimEcho(t *testing.T) {
	sh, err := StartShim("cat")
	if err != nil {
		t.Skipf("cat unavailable: %v", err)
	}
	if _, err := io.WriteString(sh, "data c1 0a0200\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(sh).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "data c1 0a0200\n" {
		t.Errorf("echo: got %q", line)
	}
	if !StopShim(sh, time.Second) {
		t.Errorf("StopShim(cat): killed, want exit on SIGTERM")
	}
	if err := sh.Wait(); err == nil {
		t.Errorf("Wait after StopShim: got nil, want already reaped")
	}
}

func TestStopShimKills(t *testing.T) {
	sh, err := StartShim("sh", "-c", "trap '' TERM; read x")
	if err != nil {
		t.Skipf("sh unavailable: %v", err)
	}
	// Let the shell install its trap.
	time.Sleep(100 * time.Millisecond)
	if StopShim(sh, 100*time.Millisecond) {
		t.Errorf("StopShim: exited on SIGTERM, want killed")
	}
	if err := sh.Wait(); err == nil {
		t.Errorf("Wait after StopShim: got nil, want already reaped")
	}
}
