package mixserial

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

var (
	// ErrDeviceUnavailable is returned when the serial path cannot be opened
	ErrDeviceUnavailable = errors.New("serial device unavailable")

	// ErrDecode marks an inbound line that carried invalid UTF-8
	ErrDecode = errors.New("invalid UTF-8 on inbound line")
)

const (
	DefaultPath         = "/dev/ttyGS0"
	DefaultBaud         = 9600
	DefaultReadTimeout  = 100 * time.Millisecond
	DefaultIdleInterval = 10 * time.Millisecond
	DefaultMaxLine      = 4096
)

// Port is the byte stream the bridge owns.
// Read must return within a bounded time even when no data arrives; a
// timeout is reported as (0, nil) or (0, io.EOF).
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the port described by cfg
type Opener func(cfg Config) (Port, error)

// OpenSerial opens a real serial device using the configured read timeout
func OpenSerial(cfg Config) (Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Path,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
