// Package mixapi serves the REST control surface: channel reads and
// mutations, touch, device lines, logs, events and Prometheus metrics.
package mixapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixevents"
)

// DefaultAddr keeps the API on loopback
const DefaultAddr = "127.0.0.1:8080"

// Config for the API manager
type Config struct {
	Addr       string
	Version    string
	Device     string
	ConfigPath string
	TUIEnabled bool

	Mixer     types.MixerController
	Bus       *mixevents.Bus
	LogBuffer *LogBuffer
}

// Manager owns the HTTP server lifecycle
type Manager struct {
	cfg       Config
	server    *http.Server
	streamer  types.EventStreamer
	startTime time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	doneChan chan struct{}

	mu   sync.RWMutex
	addr net.Addr
}

// NewManager creates a manager; nothing listens until Run
func NewManager(cfg Config) *Manager {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	m := &Manager{
		cfg:       cfg,
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	if cfg.Bus != nil {
		m.streamer = NewEventStreamer(cfg.Bus)
	}
	return m
}

func (m *Manager) logBufferProvider() types.LogBufferProvider {
	if m.cfg.LogBuffer == nil {
		return nil
	}
	return m.cfg.LogBuffer
}

// Run serves until Stop is called. It returns early if the address
// cannot be bound or the server fails.
func (m *Manager) Run() error {
	defer close(m.doneChan)

	if m.cfg.Mixer == nil {
		return errors.New("mixer controller not configured")
	}

	gin.SetMode(gin.ReleaseMode)

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", m.cfg.Addr)
	}
	m.mu.Lock()
	m.addr = ln.Addr()
	m.mu.Unlock()

	m.server = &http.Server{
		Handler:     m.setupRouter(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Infof("API listening on http://%s/api", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-m.stopChan:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "api server")
	}
}

// Stop asks the server to shut down
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// Done closes once Run has returned
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Addr is the bound address, nil before Run has listened
func (m *Manager) Addr() net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addr
}

func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Manager) StartTime() time.Time {
	return m.startTime
}

func (m *Manager) Version() string {
	return m.cfg.Version
}

func (m *Manager) Device() string {
	return m.cfg.Device
}

func (m *Manager) ConfigPath() string {
	return m.cfg.ConfigPath
}

func (m *Manager) TUIEnabled() bool {
	return m.cfg.TUIEnabled
}

var _ types.ManagerInfo = (*Manager)(nil)
