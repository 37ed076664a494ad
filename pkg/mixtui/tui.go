// Package mixtui is the terminal control surface: five bars, a channel
// table and a device log. Every mouse press anywhere is a touch event.
package mixtui

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixstate"
	"github.com/txn2/pimixer/pkg/mixtui/components"
)

// Mixer is the part of the control loop the TUI drives. Every call must
// return without waiting on the loop.
type Mixer interface {
	Channels() []mixstate.Channel
	Snapshot() mixstate.Snapshot
	Submit(cmd mixloop.Command) error
	Touch() error
	Brightness() mixbright.State
	Broadcasting() bool
}

var _ Mixer = (*mixloop.Loop)(nil)

// Config wires the TUI
type Config struct {
	Mixer   Mixer
	Bus     *mixevents.Bus
	Version string
	Device  string

	// ColorProfile forces the bar color profile when set
	ColorProfile *termenv.Profile

	// OnQuit runs after the program exits on its own (q, ctrl+c)
	OnQuit func()
}

// Manager manages the TUI lifecycle
type Manager struct {
	program     *tea.Program
	model       *RootModel
	unsubscribe mixevents.UnsubscribeFunc
	eventCh     chan mixevents.Event
	logCh       chan LogEntryMsg
	stopChan    chan struct{}
	doneChan    chan struct{}
	stopOnce    sync.Once
	originalOut io.Writer
	onQuit      func()
}

// New builds the TUI. Nothing is drawn until Run.
func New(cfg Config) *Manager {
	eventCh := make(chan mixevents.Event, 100)
	logCh := make(chan LogEntryMsg, 100)

	m := &Manager{
		eventCh:  eventCh,
		logCh:    logCh,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		onQuit:   cfg.OnQuit,
	}

	if cfg.Bus != nil {
		m.unsubscribe = cfg.Bus.SubscribeAll(func(e mixevents.Event) {
			select {
			case eventCh <- e:
			default:
				// Buffer full, the periodic refresh catches up
			}
		})
	}

	m.model = newRootModel(cfg, eventCh, logCh, m.stopChan)
	return m
}

// Run starts the TUI application and blocks until it exits
func (m *Manager) Run() error {
	if os.Getenv("TERM") == "" {
		_ = os.Setenv("TERM", "xterm-256color")
	}

	// Suppress terminal output and capture logs
	m.originalOut = log.StandardLogger().Out
	log.SetOutput(io.Discard)
	log.AddHook(&logHook{logCh: m.logCh, stopCh: m.stopChan})

	m.program = tea.NewProgram(
		m.model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := m.program.Run()

	log.SetOutput(m.originalOut)

	if m.onQuit != nil {
		m.onQuit()
	}
	close(m.doneChan)

	return err
}

// Stop stops the TUI application
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		if m.originalOut != nil {
			log.SetOutput(m.originalOut)
		}
		if m.program != nil {
			m.program.Quit()
		}
	})
}

// Done returns a channel that closes when the TUI has exited
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

func newRootModel(cfg Config, eventCh <-chan mixevents.Event, logCh <-chan LogEntryMsg, stopCh <-chan struct{}) *RootModel {
	m := &RootModel{
		mixer:     cfg.Mixer,
		header:    components.NewHeaderModel(cfg.Version, cfg.Device),
		bars:      components.NewBarsModel(cfg.ColorProfile),
		channels:  components.NewChannelsModel(),
		logs:      components.NewLogsModel(),
		statusBar: components.NewStatusBarModel(),
		eventCh:   eventCh,
		logCh:     logCh,
		stopCh:    stopCh,
	}
	m.refresh()
	return m
}
