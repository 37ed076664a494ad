package types

import (
	"context"
	"time"

	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// MixerController reads and mutates the control set.
// *mixloop.Loop implements it.
type MixerController interface {
	Channels() []mixstate.Channel
	Channel(id int) (mixstate.Channel, error)
	Snapshot() mixstate.Snapshot
	Apply(ctx context.Context, cmd mixloop.Command) (mixstate.Channel, error)
	Touch() error
	Brightness() mixbright.State
	Broadcasting() bool
	RecentLines(n int) []string
}

// EventStreamer provides access to real-time events via channels
type EventStreamer interface {
	// Subscribe returns a channel that receives all events
	Subscribe() (<-chan mixevents.Event, func())

	// SubscribeType returns a channel that receives events of a specific type
	SubscribeType(eventType mixevents.EventType) (<-chan mixevents.Event, func())
}

// LogBufferProvider exposes captured log lines
type LogBufferProvider interface {
	GetLast(n int) []LogBufferEntry
	Count() int
	Clear()
}

// ManagerInfo provides read-only access to manager configuration
type ManagerInfo interface {
	Version() string
	Uptime() time.Duration
	StartTime() time.Time
	Device() string
	ConfigPath() string
	TUIEnabled() bool
}

var _ MixerController = (*mixloop.Loop)(nil)
