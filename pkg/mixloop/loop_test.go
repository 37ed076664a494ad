package mixloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixcfg"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixqueue"
	"github.com/txn2/pimixer/pkg/mixstate"
)

type memStore struct {
	mu    sync.Mutex
	saved []mixstate.Snapshot
	fail  bool
}

func (m *memStore) Save(snap mixstate.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("read-only filesystem")
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startLoop(t *testing.T, cfg Config) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestNew_InitialState(t *testing.T) {
	l := New(Config{
		Initial: mixstate.Snapshot{10, 20, 30, 40, 50},
		Labels:  []string{"Game", "", "Music"},
	})

	if l.Snapshot() != (mixstate.Snapshot{10, 20, 30, 40, 50}) {
		t.Errorf("Unexpected snapshot %v", l.Snapshot())
	}
	chs := l.Channels()
	if chs[0].Label != "Game" || chs[1].Label != "App2" || chs[4].Label != "Master" {
		t.Errorf("Unexpected labels %+v", chs)
	}
	if l.Brightness() != mixbright.Off {
		t.Errorf("Expected brightness off, got %s", l.Brightness())
	}
}

func TestApply(t *testing.T) {
	l, _ := startLoop(t, Config{Initial: mixstate.DefaultSnapshot(), BroadcastInterval: time.Hour})
	ctx := context.Background()

	ch, err := l.Apply(ctx, Command{Op: OpSet, ID: 2, Value: 500})
	if err != nil || ch.Value != 500 {
		t.Fatalf("Expected 500, got %+v err=%v", ch, err)
	}

	ch, _ = l.Apply(ctx, Command{Op: OpAdjust, ID: 2, Value: 600})
	if ch.Value != mixstate.MaxValue {
		t.Errorf("Expected clamp to %d, got %d", mixstate.MaxValue, ch.Value)
	}

	ch, _ = l.Apply(ctx, Command{Op: OpMute, ID: 2})
	if !ch.Muted || ch.Value != 0 {
		t.Errorf("Expected muted at 0, got %+v", ch)
	}
	ch, _ = l.Apply(ctx, Command{Op: OpUnmute, ID: 2})
	if ch.Muted || ch.Value != mixstate.MaxValue {
		t.Errorf("Expected pre-mute value restored, got %+v", ch)
	}

	ch, _ = l.Apply(ctx, Command{Op: OpToggleMute, ID: 0})
	if !ch.Muted {
		t.Error("Expected toggle to mute")
	}

	if got, _ := l.Channel(2); got.Value != mixstate.MaxValue {
		t.Errorf("Published copy out of date: %+v", got)
	}

	if _, err := l.Apply(ctx, Command{Op: OpSet, ID: 7}); err == nil {
		t.Error("Expected out of range error")
	}
	if _, err := l.Apply(ctx, Command{Op: Op(42), ID: 1}); err == nil {
		t.Error("Expected unknown op error")
	}
}

func TestSubmit_NonBlocking(t *testing.T) {
	l := New(Config{CommandBuffer: 2})

	// Loop not running: the buffer fills and further submits fail fast
	if err := l.SetValue(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.Mute(1); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- l.ToggleMute(2) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrBusy) {
			t.Errorf("Expected ErrBusy, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full buffer")
	}

	if err := l.Adjust(9, 1); err == nil {
		t.Error("Expected validation error for bad id")
	}
}

func TestBroadcast_FramesFollowState(t *testing.T) {
	q := mixqueue.New[string]()
	l, _ := startLoop(t, Config{
		Initial:           mixstate.DefaultSnapshot(),
		Sink:              q,
		BroadcastInterval: 5 * time.Millisecond,
	})

	waitFor(t, func() bool { return q.Len() >= 3 }, "Expected frames while idle")

	if _, err := l.Apply(context.Background(), Command{Op: OpSet, ID: 2, Value: 500}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		for {
			f, ok := q.TryDequeue()
			if !ok {
				return false
			}
			if f == "1023|1023|500|1023|1023\r\n" {
				return true
			}
		}
	}, "Expected a frame carrying the new value")
}

func TestBridgeStopped_StopsBroadcast(t *testing.T) {
	q := mixqueue.New[string]()
	bus := mixevents.NewBus(100)
	var stoppedEvents int
	var mu sync.Mutex
	bus.Subscribe(mixevents.BridgeStopped, func(mixevents.Event) {
		mu.Lock()
		stoppedEvents++
		mu.Unlock()
	})
	bus.Start()

	l, _ := startLoop(t, Config{Sink: q, BroadcastInterval: 2 * time.Millisecond, Bus: bus})
	waitFor(t, func() bool { return q.Len() > 0 }, "Expected frames before stop")

	l.BridgeStopped(fmt.Errorf("unplugged"))
	l.BridgeStopped(nil)
	waitFor(t, func() bool { return !l.Broadcasting() }, "Expected broadcasting to stop")

	n := q.Len()
	time.Sleep(20 * time.Millisecond)
	if q.Len() != n {
		t.Errorf("Frames kept growing after bridge stop: %d -> %d", n, q.Len())
	}

	bus.Stop()
	mu.Lock()
	defer mu.Unlock()
	if stoppedEvents != 1 {
		t.Errorf("Expected one BridgeStopped event, got %d", stoppedEvents)
	}
}

func TestPersist_OnlyOnChange(t *testing.T) {
	store := &memStore{}
	l, _ := startLoop(t, Config{
		Initial:           mixstate.DefaultSnapshot(),
		Store:             store,
		PersistInterval:   5 * time.Millisecond,
		BroadcastInterval: time.Hour,
	})

	time.Sleep(30 * time.Millisecond)
	if store.count() != 0 {
		t.Fatalf("Expected no writes for an unchanged boot, got %d", store.count())
	}

	if _, err := l.Apply(context.Background(), Command{Op: OpSet, ID: 1, Value: 1}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return store.count() == 1 }, "Expected one write after change")

	time.Sleep(30 * time.Millisecond)
	if store.count() != 1 {
		t.Errorf("Expected exactly one write, got %d", store.count())
	}
}

func TestPersist_ErrorRetried(t *testing.T) {
	store := &memStore{fail: true}
	l, _ := startLoop(t, Config{Store: store, PersistInterval: 5 * time.Millisecond, BroadcastInterval: time.Hour})

	if _, err := l.Apply(context.Background(), Command{Op: OpSet, ID: 0, Value: 7}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()

	waitFor(t, func() bool { return store.count() == 1 }, "Expected write once the store recovers")
}

func TestTouch_BrightnessRevertsThroughLoop(t *testing.T) {
	l, _ := startLoop(t, Config{
		BroadcastInterval: time.Hour,
		Brightness:        mixbright.Config{Duration: 30 * time.Millisecond},
	})

	if err := l.Touch(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return l.Brightness() == mixbright.Boosted }, "Expected boost on touch")
	waitFor(t, func() bool { return l.Brightness() == mixbright.Off }, "Expected revert after duration")
}

func TestDeviceLines(t *testing.T) {
	l, _ := startLoop(t, Config{BroadcastInterval: time.Hour, RecentLines: 3})

	for _, line := range []string{"a", "b", "c", "d"} {
		if err := l.DeviceLine(line); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return len(l.RecentLines(0)) == 3 }, "Expected ring to fill")

	waitFor(t, func() bool {
		return slices.Equal(l.RecentLines(0), []string{"b", "c", "d"})
	}, fmt.Sprintf("Unexpected ring contents %v", l.RecentLines(0)))
	if got := l.RecentLines(2); !slices.Equal(got, []string{"c", "d"}) {
		t.Errorf("Expected last two lines, got %v", got)
	}
}

func TestStopped(t *testing.T) {
	l, cancel := startLoop(t, Config{BroadcastInterval: time.Hour})
	cancel()
	<-l.Done()

	if err := l.SetValue(0, 1); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if _, err := l.Apply(context.Background(), Command{Op: OpMute, ID: 0}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped from Apply, got %v", err)
	}
	if err := l.Run(context.Background()); err == nil {
		t.Error("Expected second Run to fail")
	}
}

func TestFlush(t *testing.T) {
	store := &memStore{}
	l := New(Config{Store: store, BroadcastInterval: time.Hour, PersistInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()

	if _, err := l.Apply(ctx, Command{Op: OpSet, ID: 4, Value: 99}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Flush(); err == nil {
		t.Error("Expected Flush to refuse while running")
	}

	cancel()
	<-l.Done()

	wrote, err := l.Flush()
	if err != nil || !wrote {
		t.Fatalf("Expected final write, got wrote=%v err=%v", wrote, err)
	}
	if wrote, _ := l.Flush(); wrote {
		t.Error("Second flush should see no change")
	}
}

func TestEvents(t *testing.T) {
	bus := mixevents.NewBus(100)
	var mu sync.Mutex
	var got []mixevents.EventType
	bus.SubscribeAll(func(e mixevents.Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	bus.Start()

	l, cancel := startLoop(t, Config{Bus: bus, BroadcastInterval: time.Hour, PersistInterval: 5 * time.Millisecond})
	ctx := context.Background()

	_, _ = l.Apply(ctx, Command{Op: OpSet, ID: 0, Value: 10})
	_, _ = l.Apply(ctx, Command{Op: OpMute, ID: 0})
	_, _ = l.Apply(ctx, Command{Op: OpMute, ID: 0})
	_ = l.DeviceLine("hello")
	waitFor(t, func() bool { return len(l.RecentLines(0)) == 1 }, "line not recorded")
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-l.Done()
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	count := map[mixevents.EventType]int{}
	for _, et := range got {
		count[et]++
	}
	// Muting changes both the value and the mute flag; a repeated mute is silent
	if count[mixevents.ChannelChanged] != 2 || count[mixevents.MuteChanged] != 1 {
		t.Errorf("Unexpected channel events %v", count)
	}
	if count[mixevents.DeviceLine] != 1 || count[mixevents.ConfigSaved] < 1 {
		t.Errorf("Unexpected events %v", count)
	}
}

// No file, defaults, channel 2 to 500, one debounce tick, exact file contents
func TestEndToEnd_PersistsToConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pimixer", "mixer.conf")
	initial, err := mixcfg.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	l, _ := startLoop(t, Config{
		Initial:           initial,
		Store:             mixcfg.FileStore(path),
		PersistInterval:   10 * time.Millisecond,
		BroadcastInterval: time.Hour,
	})
	if err := l.SetValue(2, 500); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "1023|1023|500|1023|1023\n"
	}, "Expected 1023|1023|500|1023|1023 on disk")
}

func TestLineRing(t *testing.T) {
	r := newLineRing(2)
	if len(r.last(5)) != 0 {
		t.Error("Expected empty ring")
	}
	r.add("x")
	if got := r.last(5); !slices.Equal(got, []string{"x"}) {
		t.Errorf("Unexpected %v", got)
	}
	r.add("y")
	r.add("z")
	if got := r.last(0); !slices.Equal(got, []string{"y", "z"}) {
		t.Errorf("Unexpected %v", got)
	}
}
