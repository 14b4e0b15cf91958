// Package interrupt turns SIGINT, SIGTERM and the Escape key into context
// cancellation for long-running commands.
package interrupt

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// raw is set while the terminal is in raw mode
var raw atomic.Bool

// Context returns a context cancelled on SIGINT or SIGTERM. When stdin is
// a terminal it is also cancelled by a lone Escape or Ctrl+C keypress.
// stop releases the signal handler and restores the terminal. The stdin
// reader stays blocked after stop until the next keypress arrives, then
// returns without acting on it. Write terminal output through Writer while
// the context is live.
func Context(parent context.Context, logger zerolog.Logger) (ctx context.Context, stop func()) {
	ctx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)

	restore := func() {}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			logger.Debug().Err(err).Msg("raw mode unavailable, escape key disabled")
		} else {
			raw.Store(true)
			restore = func() {
				raw.Store(false)
				_ = term.Restore(fd, state)
			}
			go func() {
				if WatchKeys(ctx, os.Stdin) {
					logger.Info().Msg("interrupt requested, finishing in-flight work")
					cancel()
				}
			}()
		}
	}

	var once sync.Once
	stop = func() {
		once.Do(func() {
			restore()
			cancel()
			stopSignals()
		})
	}
	return ctx, stop
}

// WatchKeys reads r until it sees a lone Escape or a Ctrl+C, returning
// true, or until r ends or ctx is done, returning false. Escape sequences
// such as arrow keys arrive as one multi-byte read and are ignored.
func WatchKeys(ctx context.Context, r io.Reader) bool {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		if ctx.Err() != nil {
			return false
		}
		if n > 0 {
			chunk := buf[:n]
			if bytes.IndexByte(chunk, keyCtrlC) >= 0 {
				return true
			}
			if n == 1 && chunk[0] == keyEscape {
				return true
			}
		}
		if err != nil {
			return false
		}
	}
}

// Writer wraps w so that line feeds become CRLF while the terminal is in
// raw mode
func Writer(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if !raw.Load() || bytes.IndexByte(p, '\n') < 0 {
		return c.w.Write(p)
	}
	out := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
