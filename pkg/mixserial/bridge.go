// Package mixserial owns the serial device. Its loop runs in its own
// goroutines so serial latency never reaches the control loop; the only
// shared state is the pair of message queues.
package mixserial

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixmetrics"
	"github.com/txn2/pimixer/pkg/mixqueue"
)

// Config describes the serial link
type Config struct {
	Path         string
	Baud         int
	ReadTimeout  time.Duration // bound on a single read, also bounds stop latency
	IdleInterval time.Duration // sleep when neither direction had work
	MaxLine      int           // longest inbound line before it is split
	Greeting     string        // optional message sent once after opening
	Opener       Opener
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = DefaultIdleInterval
	}
	if c.MaxLine <= 0 {
		c.MaxLine = DefaultMaxLine
	}
	if c.Opener == nil {
		c.Opener = OpenSerial
	}
	return c
}

// Bridge moves messages between the queues and the serial port
type Bridge struct {
	cfg  Config
	port Port
	out  *mixqueue.Queue[string]
	in   *mixqueue.Queue[string]

	rx      chan []byte
	readErr chan error
	wg      sync.WaitGroup

	cancel   context.CancelFunc
	doneChan chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	mu  sync.Mutex
	err error

	linesTaken atomic.Bool
}

// Open opens the configured port. Failure wraps ErrDeviceUnavailable.
func Open(cfg Config) (*Bridge, error) {
	cfg = cfg.withDefaults()

	port, err := cfg.Opener(cfg)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open %s: %v", cfg.Path, err)
	}

	log.Infof("Serial port %s opened at %d bps", cfg.Path, cfg.Baud)

	b := &Bridge{
		cfg:      cfg,
		port:     port,
		out:      mixqueue.New[string](),
		in:       mixqueue.New[string](),
		rx:       make(chan []byte, 64),
		readErr:  make(chan error, 1),
		doneChan: make(chan struct{}),
	}
	if cfg.Greeting != "" {
		b.out.Enqueue(cfg.Greeting)
	}
	return b, nil
}

// Outbound is the queue the control loop writes frames to
func (b *Bridge) Outbound() *mixqueue.Queue[string] {
	return b.out
}

// Inbound is the queue device lines are delivered to
func (b *Bridge) Inbound() *mixqueue.Queue[string] {
	return b.in
}

// Path returns the device path
func (b *Bridge) Path() string {
	return b.cfg.Path
}

// Start runs the bridge loop in the background until ctx is done, Stop is
// called or an I/O error occurs.
func (b *Bridge) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.readLoop(ctx)

	go func() {
		mixmetrics.BridgeUp.Set(1)
		err := b.run(ctx)
		b.cancel()
		b.wg.Wait()

		if cerr := b.port.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "serial close")
		}
		if err != nil {
			log.Errorf("Serial bridge error: %s", err)
		}
		log.Infof("Serial connection %s closed", b.cfg.Path)

		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		mixmetrics.BridgeUp.Set(0)
		close(b.doneChan)
	}()
}

// run is the poll loop: one outbound write and one inbound line per pass,
// sleeping only when neither side had work.
func (b *Bridge) run(ctx context.Context) error {
	idle := time.NewTimer(b.cfg.IdleInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		worked := false

		if msg, ok := b.out.TryDequeue(); ok {
			n, err := io.WriteString(b.port, msg)
			if err != nil {
				return errors.Wrap(err, "serial write")
			}
			mixmetrics.MessagesWritten.Inc()
			mixmetrics.BytesWritten.Add(float64(n))
			log.Tracef("Sent: %q", msg)
			worked = true
		}
		mixmetrics.OutboundQueueDepth.Set(float64(b.out.Len()))

		select {
		case raw := <-b.rx:
			line, err := decodeLine(raw)
			if err != nil {
				mixmetrics.DecodeErrors.Inc()
				log.Debugf("Dropped malformed bytes from device: %s", err)
			}
			if line != "" {
				b.in.Enqueue(line)
				mixmetrics.LinesReceived.Inc()
				log.Debugf("Received: %s", line)
			}
			worked = true
		case err := <-b.readErr:
			return err
		default:
		}

		if !worked {
			idle.Reset(b.cfg.IdleInterval)
			select {
			case <-ctx.Done():
				return nil
			case <-idle.C:
			}
		}
	}
}

// Stop signals the loop to exit. It does not wait; use Wait or Done.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
			return
		}
		// Never started: release the port here
		if err := b.port.Close(); err != nil {
			log.Debugf("Serial close: %s", err)
		}
		close(b.doneChan)
	})
}

// Wait blocks until the loop has terminated or max elapses.
// It returns false on timeout.
func (b *Bridge) Wait(max time.Duration) bool {
	select {
	case <-b.doneChan:
		return true
	case <-time.After(max):
		return false
	}
}

// Done returns a channel that closes when the loop has terminated
func (b *Bridge) Done() <-chan struct{} {
	return b.doneChan
}

// Err returns the error that ended the loop, if any
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
