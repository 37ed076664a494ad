// Package mixbright boosts the display backlight on touch and reverts it
// after a fixed delay.
package mixbright

import (
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixmetrics"
)

// DefaultDuration is how long a touch keeps the display boosted
const DefaultDuration = time.Second

// State of a brightness session
type State int

const (
	Off State = iota
	Boosted
)

func (s State) String() string {
	if s == Boosted {
		return "boosted"
	}
	return "off"
}

// Policy decides what overlapping revert timers do
type Policy int

const (
	// FirstTimerWins schedules an independent revert per touch and cancels
	// none, so the earliest pending revert ends the boost
	FirstTimerWins Policy = iota

	// LastTouchWins keeps only the most recent touch's revert
	LastTouchWins
)

func (p Policy) String() string {
	if p == LastTouchWins {
		return "last-touch"
	}
	return "first-timer"
}

// ParsePolicy accepts "first-timer" or "last-touch"; empty means the default
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-timer", "first":
		return FirstTimerWins, nil
	case "last-touch", "last":
		return LastTouchWins, nil
	}
	return FirstTimerWins, fmt.Errorf("unknown revert policy %q", s)
}

// Config for a Timer
type Config struct {
	Device   Device
	Duration time.Duration
	Policy   Policy

	// Post hands a callback back to the goroutine that owns the Timer.
	// Reverts always run through it, never on a timer goroutine.
	Post func(f func())

	// AfterFunc schedules f after d; defaults to time.AfterFunc
	AfterFunc func(d time.Duration, f func())

	// OnChange is called from the owning goroutine after every transition
	OnChange func(State)
}

// Timer is the OFF/BOOSTED state machine. It is not safe for concurrent
// use; all methods run on the owning goroutine.
type Timer struct {
	cfg       Config
	state     State
	debounced func(f func())
}

// NewTimer creates a Timer in the Off state
func NewTimer(cfg Config) *Timer {
	if cfg.Device == nil {
		cfg.Device = NoopDevice{}
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Post == nil {
		cfg.Post = func(f func()) { f() }
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}

	t := &Timer{cfg: cfg, state: Off}
	if cfg.Policy == LastTouchWins {
		t.debounced = debounce.New(cfg.Duration)
	}
	return t
}

// State returns the current session state
func (t *Timer) State() State {
	return t.state
}

// Policy returns the configured revert policy
func (t *Timer) Policy() Policy {
	return t.cfg.Policy
}

// Touch boosts to full brightness and schedules the revert
func (t *Timer) Touch() {
	prev := t.state
	t.state = Boosted
	t.write(100)
	if prev != Boosted {
		mixmetrics.BrightnessBoosts.Inc()
		t.changed()
	}

	post := func() { t.cfg.Post(t.revert) }
	if t.debounced != nil {
		t.debounced(post)
		return
	}
	t.cfg.AfterFunc(t.cfg.Duration, post)
}

// revert ends the session unconditionally
func (t *Timer) revert() {
	prev := t.state
	t.state = Off
	t.write(0)
	if prev != Off {
		mixmetrics.BrightnessReverts.Inc()
		t.changed()
	}
}

func (t *Timer) write(percent float64) {
	level := Level(percent, t.cfg.Device.MaxLevel())
	if err := t.cfg.Device.SetLevel(level); err != nil {
		log.Warnf("Brightness write failed: %s", err)
	}
}

func (t *Timer) changed() {
	log.Debugf("Brightness %s", t.state)
	if t.cfg.OnChange != nil {
		t.cfg.OnChange(t.state)
	}
}
