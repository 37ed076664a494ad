package mixserial

import (
	"context"
	"io"
	"iter"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// decodeLine converts raw inbound bytes to text. Invalid UTF-8 sequences are
// dropped and reported with ErrDecode; trailing whitespace is trimmed.
func decodeLine(raw []byte) (string, error) {
	var err error
	s := string(raw)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
		err = errors.Wrapf(ErrDecode, "%d bytes", len(raw))
	}
	return strings.TrimRightFunc(s, unicode.IsSpace), err
}

// readLoop performs bounded-timeout reads and hands complete lines to the
// bridge loop. It returns when ctx is done or the port fails.
func (b *Bridge) readLoop(ctx context.Context) {
	defer b.wg.Done()

	buf := make([]byte, 256)
	var line []byte

	emit := func() bool {
		payload := append([]byte(nil), line...)
		line = line[:0]
		select {
		case b.rx <- payload:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := b.port.Read(buf)
		for i := 0; i < n; i++ {
			c := buf[i]
			if c == '\n' {
				if !emit() {
					return
				}
				continue
			}
			line = append(line, c)
			if len(line) >= b.cfg.MaxLine {
				if !emit() {
					return
				}
			}
		}

		if err != nil && err != io.EOF {
			select {
			case b.readErr <- errors.Wrap(err, "serial read"):
			default:
			}
			return
		}
	}
}

// Lines exposes the inbound queue as a lazy, infinite sequence of lines.
// The sequence can be ranged over once; later calls yield nothing. It ends
// when ctx is done or the consumer stops.
func (b *Bridge) Lines(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !b.linesTaken.CompareAndSwap(false, true) {
			return
		}
		poll := time.NewTicker(b.cfg.IdleInterval)
		defer poll.Stop()
		for {
			if line, ok := b.in.TryDequeue(); ok {
				if !yield(line) {
					return
				}
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-poll.C:
			}
		}
	}
}
