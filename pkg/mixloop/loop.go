// Package mixloop is the single goroutine that owns the control state and
// runs every scheduled callback: broadcast, persistence and brightness
// revert. Surfaces talk to it through non-blocking hand-offs.
package mixloop

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixbcast"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixmetrics"
	"github.com/txn2/pimixer/pkg/mixpersist"
	"github.com/txn2/pimixer/pkg/mixstate"
)

var (
	// ErrBusy is returned when the command buffer is full
	ErrBusy = errors.New("control loop busy")

	// ErrStopped is returned once the loop has exited
	ErrStopped = errors.New("control loop stopped")
)

const (
	DefaultCommandBuffer = 256
	DefaultRecentLines   = 200
)

// Config wires the loop to its collaborators
type Config struct {
	Initial mixstate.Snapshot
	Labels  []string

	// Sink receives serial frames; nil disables broadcasting
	Sink  mixbcast.Sink
	Store mixpersist.Store

	BroadcastInterval time.Duration
	PersistInterval   time.Duration

	Brightness mixbright.Config

	// Bus is optional
	Bus *mixevents.Bus

	CommandBuffer int
	RecentLines   int
}

// Op is a channel mutation
type Op int

const (
	OpSet Op = iota
	OpAdjust
	OpMute
	OpUnmute
	OpToggleMute
)

// Command asks the loop to mutate one channel. Value is the target for
// OpSet and the delta for OpAdjust.
type Command struct {
	Op    Op
	ID    int
	Value int
}

// Result is the outcome of an applied Command
type Result struct {
	Channel mixstate.Channel
	Err     error
}

type request struct {
	cmd   *Command
	touch bool
	line  *string
	down  *bridgeDown
	reply chan Result
}

type bridgeDown struct {
	err error
}

// view is the read-only copy surfaces see
type view struct {
	channels   []mixstate.Channel
	snapshot   mixstate.Snapshot
	brightness mixbright.State
	bridgeUp   bool
}

// Loop owns the control state. Only Run's goroutine touches state,
// broadcaster, debouncer and timer.
type Loop struct {
	cfg Config

	state     *mixstate.State
	broadcast *mixbcast.Scheduler
	debounce  *mixpersist.Debouncer
	timer     *mixbright.Timer

	requests chan request
	reverts  chan func()
	stopped  chan struct{}
	running  atomic.Bool

	published atomic.Pointer[view]
	lines     *lineRing
}

// New builds a Loop from cfg. Nothing runs until Run is called.
func New(cfg Config) *Loop {
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = mixbcast.DefaultPeriod
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = mixpersist.DefaultPeriod
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultCommandBuffer
	}
	if cfg.RecentLines <= 0 {
		cfg.RecentLines = DefaultRecentLines
	}
	if cfg.Store == nil {
		cfg.Store = mixpersist.StoreFunc(func(mixstate.Snapshot) error { return nil })
	}

	l := &Loop{
		cfg:       cfg,
		state:     mixstate.New(cfg.Initial),
		broadcast: mixbcast.New(cfg.Sink),
		debounce:  mixpersist.New(cfg.Store, cfg.Initial),
		requests:  make(chan request, cfg.CommandBuffer),
		reverts:   make(chan func(), 16),
		stopped:   make(chan struct{}),
		lines:     newLineRing(cfg.RecentLines),
	}
	l.state.SetLabels(cfg.Labels)

	bc := cfg.Brightness
	bc.Post = l.postRevert
	onChange := bc.OnChange
	bc.OnChange = func(s mixbright.State) {
		l.publish(mixevents.NewBrightnessEvent(s.String()))
		if onChange != nil {
			onChange(s)
		}
	}
	l.timer = mixbright.NewTimer(bc)

	l.refresh()
	return l
}

// Run drives the loop until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("control loop already running")
	}
	defer close(l.stopped)

	bcast := time.NewTicker(l.cfg.BroadcastInterval)
	defer bcast.Stop()
	persist := time.NewTicker(l.cfg.PersistInterval)
	defer persist.Stop()

	log.Debugf("Control loop started: broadcast every %s, persist every %s",
		l.cfg.BroadcastInterval, l.cfg.PersistInterval)

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Control loop stopped after %d frames", l.broadcast.Frames())
			return nil
		case <-bcast.C:
			l.broadcast.Tick(l.state.Snapshot())
		case <-persist.C:
			l.persist()
		case f := <-l.reverts:
			f()
			l.refresh()
		case req := <-l.requests:
			l.handle(req)
		}
	}
}

func (l *Loop) handle(req request) {
	switch {
	case req.cmd != nil:
		res := l.apply(*req.cmd)
		if req.reply != nil {
			req.reply <- res
		}
	case req.touch:
		l.timer.Touch()
		l.refresh()
	case req.line != nil:
		l.lines.add(*req.line)
		l.publish(mixevents.NewDeviceLineEvent(*req.line))
	case req.down != nil:
		if l.broadcast.Active() {
			l.broadcast.Detach()
			l.publish(mixevents.NewBridgeStoppedEvent(req.down.err))
			l.refresh()
		}
	}
}

func (l *Loop) apply(cmd Command) Result {
	before, err := l.state.Channel(cmd.ID)
	if err != nil {
		return Result{Err: err}
	}

	switch cmd.Op {
	case OpSet:
		_, err = l.state.SetValue(cmd.ID, cmd.Value)
	case OpAdjust:
		_, err = l.state.Adjust(cmd.ID, cmd.Value)
	case OpMute:
		_, err = l.state.Mute(cmd.ID)
	case OpUnmute:
		_, err = l.state.Unmute(cmd.ID)
	case OpToggleMute:
		_, err = l.state.ToggleMute(cmd.ID)
	default:
		err = errors.Errorf("unknown op %d", cmd.Op)
	}
	if err != nil {
		return Result{Err: err}
	}

	after, _ := l.state.Channel(cmd.ID)
	if after.Muted != before.Muted {
		l.publish(mixevents.NewChannelEvent(mixevents.MuteChanged, after))
	}
	if after.Value != before.Value {
		l.publish(mixevents.NewChannelEvent(mixevents.ChannelChanged, after))
	}
	l.refresh()
	return Result{Channel: after}
}

func (l *Loop) persist() {
	snap := l.state.Snapshot()
	wrote, err := l.debounce.Tick(snap)
	if err != nil {
		log.Warnf("Config write failed, retrying next tick: %s", err)
		return
	}
	if wrote {
		l.publish(mixevents.NewConfigSavedEvent(snap))
	}
}

// Flush performs the final persistence write. Call it only after Run has
// returned and the bridge has been joined.
func (l *Loop) Flush() (bool, error) {
	if l.running.Load() {
		select {
		case <-l.stopped:
		default:
			return false, errors.New("flush while control loop is running")
		}
	}
	return l.debounce.Flush(l.state.Snapshot())
}

// refresh republishes the read-only view after a mutation
func (l *Loop) refresh() {
	channels := l.state.Channels()
	for _, c := range channels {
		mixmetrics.ChannelValue.WithLabelValues(strconv.Itoa(c.ID)).Set(float64(c.Value))
	}
	l.published.Store(&view{
		channels:   channels,
		snapshot:   l.state.Snapshot(),
		brightness: l.timer.State(),
		bridgeUp:   l.broadcast.Active(),
	})
}

func (l *Loop) publish(e mixevents.Event) {
	if l.cfg.Bus != nil {
		l.cfg.Bus.Publish(e)
	}
}

// postRevert runs on a timer goroutine and hands the revert to the loop
func (l *Loop) postRevert(f func()) {
	select {
	case l.reverts <- f:
	case <-l.stopped:
	}
}

func (l *Loop) send(req request) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.requests <- req:
		return nil
	default:
		return ErrBusy
	}
}

// Submit hands cmd to the loop without waiting for it to be applied
func (l *Loop) Submit(cmd Command) error {
	if !mixstate.ValidID(cmd.ID) {
		return errors.Errorf("channel %d out of range", cmd.ID)
	}
	return l.send(request{cmd: &cmd})
}

// Apply hands cmd to the loop and waits for the result
func (l *Loop) Apply(ctx context.Context, cmd Command) (mixstate.Channel, error) {
	if !mixstate.ValidID(cmd.ID) {
		return mixstate.Channel{}, errors.Errorf("channel %d out of range", cmd.ID)
	}
	reply := make(chan Result, 1)
	if err := l.send(request{cmd: &cmd, reply: reply}); err != nil {
		return mixstate.Channel{}, err
	}
	select {
	case res := <-reply:
		return res.Channel, res.Err
	case <-l.stopped:
		return mixstate.Channel{}, ErrStopped
	case <-ctx.Done():
		return mixstate.Channel{}, ctx.Err()
	}
}

func (l *Loop) SetValue(id, value int) error {
	return l.Submit(Command{Op: OpSet, ID: id, Value: value})
}

func (l *Loop) Adjust(id, delta int) error {
	return l.Submit(Command{Op: OpAdjust, ID: id, Value: delta})
}

func (l *Loop) Mute(id int) error {
	return l.Submit(Command{Op: OpMute, ID: id})
}

func (l *Loop) Unmute(id int) error {
	return l.Submit(Command{Op: OpUnmute, ID: id})
}

func (l *Loop) ToggleMute(id int) error {
	return l.Submit(Command{Op: OpToggleMute, ID: id})
}

// Touch reports a pointer-down anywhere on a control surface
func (l *Loop) Touch() error {
	return l.send(request{touch: true})
}

// DeviceLine records a line received from the device
func (l *Loop) DeviceLine(line string) error {
	return l.send(request{line: &line})
}

// BridgeStopped tells the loop the serial bridge is gone so broadcasting
// stops instead of growing a queue nobody drains
func (l *Loop) BridgeStopped(err error) {
	if sendErr := l.send(request{down: &bridgeDown{err: err}}); sendErr != nil {
		log.Debugf("Bridge stop notification dropped: %s", sendErr)
	}
}

// Snapshot returns the latest published value list
func (l *Loop) Snapshot() mixstate.Snapshot {
	return l.published.Load().snapshot
}

// Channels returns a copy of the latest published channels
func (l *Loop) Channels() []mixstate.Channel {
	v := l.published.Load()
	out := make([]mixstate.Channel, len(v.channels))
	copy(out, v.channels)
	return out
}

// Channel returns the latest published copy of one channel
func (l *Loop) Channel(id int) (mixstate.Channel, error) {
	if !mixstate.ValidID(id) {
		return mixstate.Channel{}, errors.Errorf("channel %d out of range", id)
	}
	return l.published.Load().channels[id], nil
}

// Brightness returns the latest published brightness session state
func (l *Loop) Brightness() mixbright.State {
	return l.published.Load().brightness
}

// Broadcasting reports whether frames are still being produced
func (l *Loop) Broadcasting() bool {
	return l.published.Load().bridgeUp
}

// RecentLines returns up to n of the most recent device lines, oldest first
func (l *Loop) RecentLines(n int) []string {
	return l.lines.last(n)
}

// Done closes when Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

// lineRing keeps the most recent device lines. The loop writes, surfaces read.
type lineRing struct {
	mu    sync.RWMutex
	lines []string
	size  int
	head  int
	count int
}

func newLineRing(size int) *lineRing {
	return &lineRing{lines: make([]string, size), size: size}
}

func (r *lineRing) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *lineRing) last(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]string, n)
	start := (r.head - n + r.size) % r.size
	for i := 0; i < n; i++ {
		out[i] = r.lines[(start+i)%r.size]
	}
	return out
}
