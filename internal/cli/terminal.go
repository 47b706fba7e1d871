package cli

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// fdOf returns the file descriptor behind v when it is a terminal.
func fdOf(v any) (int, bool) {
	f, ok := v.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// terminalSize reports the size of out, or 0x0 when out is not a terminal.
func terminalSize(out io.Writer) (width, height int) {
	fd, ok := fdOf(out)
	if !ok {
		return 0, 0
	}
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 0, 0
	}
	return w, h
}

// waitForKey blocks until one byte arrives on in or ctx is done. A terminal
// is switched to raw mode for the read so any key counts.
func waitForKey(ctx context.Context, in io.Reader) error {
	if fd, ok := fdOf(in); ok {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
	}

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := in.Read(buf)
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// keyControls reads single key presses from a raw terminal while a demo
// plays. Call restore when playback ends.
type keyControls struct {
	fd    int
	state *term.State
	keys  chan byte
	done  chan struct{}
	once  sync.Once
}

func newKeyControls() *keyControls {
	return &keyControls{keys: make(chan byte, 8), done: make(chan struct{})}
}

func startKeyControls(in io.Reader) (*keyControls, bool) {
	fd, ok := fdOf(in)
	if !ok {
		return nil, false
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, false
	}
	kc := newKeyControls()
	kc.fd, kc.state = fd, state
	go kc.readKeys(in)
	return kc, true
}

// readKeys forwards bytes from in until it fails or restore is called. A
// read already blocked when restore runs ends with the next key press, which
// is dropped.
func (kc *keyControls) readKeys(in io.Reader) {
	defer close(kc.keys)
	buf := make([]byte, 1)
	for {
		select {
		case <-kc.done:
			return
		default:
		}
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n != 1 {
			continue
		}
		select {
		case kc.keys <- buf[0]:
		case <-kc.done:
			return
		}
	}
}

func (kc *keyControls) restore() {
	kc.once.Do(func() {
		close(kc.done)
		if kc.state != nil {
			_ = term.Restore(kc.fd, kc.state)
		}
	})
}
