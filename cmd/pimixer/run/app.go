package run

import (
	"context"
	"iter"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixapi"
	"github.com/txn2/pimixer/pkg/mixbcast"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixcfg"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixserial"
	"github.com/txn2/pimixer/pkg/mixstate"
	"github.com/txn2/pimixer/pkg/mixtui"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

// opener is replaced in tests
var opener mixserial.Opener = mixserial.OpenSerial

// app is one pimixer process: the bridge, the control loop and the surfaces
type app struct {
	opts            options
	triggerShutdown func()

	bus    *mixevents.Bus
	bridge *mixserial.Bridge // nil when the device could not be opened
	loop   *mixloop.Loop

	api *mixapi.Manager
	tui *mixtui.Manager
}

// newApp loads the saved snapshot and opens the devices. Only a required
// backlight that cannot be opened is fatal.
func newApp(opts options, triggerShutdown func()) (*app, error) {
	snap, err := mixcfg.Load(opts.ConfigPath)
	if err != nil {
		var perr *mixstate.ParseError
		if errors.As(err, &perr) {
			log.Warnf("Config %s: %s", opts.ConfigPath, perr)
		} else {
			log.Warnf("Config %s unreadable, using defaults: %s", opts.ConfigPath, err)
		}
	}

	dev, err := openBacklight(opts)
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:            opts,
		triggerShutdown: triggerShutdown,
		bus:             mixevents.NewBus(mixevents.DefaultBufferSize),
	}

	// An untyped nil keeps the broadcaster disabled
	var sink mixbcast.Sink
	a.bridge, err = mixserial.Open(mixserial.Config{
		Path:         opts.Device,
		Baud:         opts.Baud,
		ReadTimeout:  opts.ReadTimeout,
		IdleInterval: opts.IdleInterval,
		Greeting:     opts.Greeting,
		Opener:       opener,
	})
	if err != nil {
		log.Errorf("%s; running without broadcast", err)
		a.bridge = nil
	} else {
		sink = a.bridge.Outbound()
	}

	a.loop = mixloop.New(mixloop.Config{
		Initial:           snap,
		Labels:            opts.Labels,
		Sink:              sink,
		Store:             mixcfg.FileStore(opts.ConfigPath),
		BroadcastInterval: opts.BroadcastInterval,
		PersistInterval:   opts.PersistInterval,
		Brightness: mixbright.Config{
			Device:   dev,
			Duration: opts.BoostDuration,
			Policy:   opts.RevertPolicy,
		},
		Bus: a.bus,
	})

	return a, nil
}

// openBacklight falls back to a no-op device unless one is required
func openBacklight(opts options) (mixbright.Device, error) {
	var (
		dev *mixbright.SysfsDevice
		err error
	)
	if opts.Backlight != "" {
		dev, err = mixbright.OpenSysfs(opts.Backlight)
	} else {
		dev, err = mixbright.Discover(opts.BacklightRoot)
	}
	if err != nil {
		if opts.RequireBacklight {
			return nil, err
		}
		log.Warnf("%s; brightness control disabled", err)
		return mixbright.NoopDevice{}, nil
	}
	log.Infof("Backlight %s (max %d)", dev.Dir(), dev.MaxLevel())
	return dev, nil
}

// run starts everything and blocks until ctx is done, then shuts down
func (a *app) run(ctx context.Context) {
	a.bus.Start()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		if err := a.loop.Run(loopCtx); err != nil {
			log.Errorf("Control loop error: %s", err)
		}
	}()

	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	if a.bridge != nil {
		a.bridge.Start(bridgeCtx)
		go pumpLines(a.bridge.Lines(bridgeCtx), a.loop)
		go func() {
			<-a.bridge.Done()
			a.loop.BridgeStopped(a.bridge.Err())
		}()
	}

	if a.opts.API {
		a.api = mixapi.NewManager(mixapi.Config{
			Addr:       a.opts.APIAddr,
			Version:    Version,
			Device:     a.opts.Device,
			ConfigPath: a.opts.ConfigPath,
			TUIEnabled: a.opts.TUI,
			Mixer:      a.loop,
			Bus:        a.bus,
			LogBuffer:  mixapi.InstallLogBuffer(mixapi.DefaultLogBufferSize),
		})
		go func() {
			if err := a.api.Run(); err != nil {
				log.Errorf("API server error: %s", err)
			}
		}()
		log.Infof("API server on http://%s/api", a.opts.APIAddr)
	}

	if a.opts.TUI {
		styles.SetDarkTheme(!a.opts.Light)
		a.tui = mixtui.New(mixtui.Config{
			Mixer:   a.loop,
			Bus:     a.bus,
			Version: Version,
			Device:  a.opts.Device,
			OnQuit:  a.triggerShutdown,
		})
		go func() {
			<-ctx.Done()
			a.tui.Stop()
		}()
		if err := a.tui.Run(); err != nil {
			log.Errorf("TUI error: %s", err)
		}
	} else {
		log.Infof("Press [Ctrl-C] to stop.")
	}

	<-ctx.Done()
	a.shutdown(stopBridge, stopLoop)
}

// shutdown stops the bridge before the loop so no frame is lost mid-write,
// then writes the final snapshot.
func (a *app) shutdown(stopBridge, stopLoop context.CancelFunc) {
	a.bus.Publish(mixevents.Event{Type: mixevents.ShutdownStarted, Timestamp: time.Now()})

	if a.bridge != nil {
		a.bridge.Stop()
		stopBridge()
		if !a.bridge.Wait(a.opts.JoinTimeout) {
			log.Warnf("Serial bridge did not stop within %s", a.opts.JoinTimeout)
		}
	}

	stopLoop()
	select {
	case <-a.loop.Done():
	case <-time.After(a.opts.JoinTimeout):
		log.Warnf("Control loop did not stop within %s", a.opts.JoinTimeout)
	}

	if wrote, err := a.loop.Flush(); err != nil {
		log.Errorf("Final config write failed: %s", err)
	} else if wrote {
		log.Infof("Saved %s", a.opts.ConfigPath)
	}

	if a.api != nil {
		a.api.Stop()
		select {
		case <-a.api.Done():
		case <-time.After(time.Second):
			log.Debugf("API server shutdown timed out")
		}
	}

	if a.tui != nil {
		a.tui.Stop()
		select {
		case <-a.tui.Done():
		case <-time.After(time.Second):
		}
	}

	a.bus.Stop()
	log.Infof("Clean exit")
}

type lineSink interface {
	DeviceLine(line string) error
}

// pumpLines hands every device line to the control loop until the
// sequence ends
func pumpLines(lines iter.Seq[string], sink lineSink) {
	for line := range lines {
		if err := sink.DeviceLine(line); err != nil {
			log.Debugf("Device line dropped: %s", err)
		}
	}
}
