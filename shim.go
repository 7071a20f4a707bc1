package gatt

import (
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// A Shim is a bridge process that relays ATT traffic between a radio
// stack and a Conn over its standard input and output.
type Shim interface {
	io.ReadWriteCloser
	Signal(os.Signal) error
	Wait() error
}

// cshim provides access to the bridge via an external executable.
type cshim struct {
	cmd *exec.Cmd
	io.Reader
	io.Writer
}

// StartShim starts the bridge named file using the provided args.
func StartShim(file string, arg ...string) (Shim, error) {
	c := new(cshim)
	var err error
	if file, err = exec.LookPath(file); err != nil {
		return nil, errors.Wrap(err, "shim")
	}
	c.cmd = exec.Command(file, arg...)
	c.cmd.Stderr = os.Stderr
	if c.Writer, err = c.cmd.StdinPipe(); err != nil {
		return nil, errors.Wrap(err, "shim stdin")
	}
	if c.Reader, err = c.cmd.StdoutPipe(); err != nil {
		return nil, errors.Wrap(err, "shim stdout")
	}
	if err = c.cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start shim %s", file)
	}
	return c, nil
}

func (c *cshim) Wait() error                { return c.cmd.Wait() }
func (c *cshim) Signal(sig os.Signal) error { return c.cmd.Process.Signal(sig) }

// Close kills the bridge. Wait must still be called to reap it.
func (c *cshim) Close() error { return c.cmd.Process.Kill() }

// StopShim asks sh to terminate and reaps it, killing it if it has not
// exited after grace. It reports whether sh exited on its own.
func StopShim(sh Shim, grace time.Duration) bool {
	done := make(chan error, 1)
	go func() { done <- sh.Wait() }()
	sh.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return true
	case <-time.After(grace):
	}
	sh.Close()
	<-done
	return false
}
