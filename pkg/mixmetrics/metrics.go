// Package mixmetrics holds the Prometheus collectors shared by the bridge,
// the control loop and the brightness timer.
package mixmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Wire protocol
	FramesEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_frames_enqueued_total",
			Help: "Total number of frames placed on the outbound queue",
		},
	)

	MessagesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_serial_messages_written_total",
			Help: "Total number of outbound messages written to the serial device",
		},
	)

	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_serial_bytes_written_total",
			Help: "Total number of bytes written to the serial device",
		},
	)

	LinesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_serial_lines_received_total",
			Help: "Total number of inbound lines read from the serial device",
		},
	)

	DecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_serial_decode_errors_total",
			Help: "Total number of inbound lines that contained invalid UTF-8",
		},
	)

	OutboundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pimixer_outbound_queue_depth",
			Help: "Number of messages waiting on the outbound queue",
		},
	)

	BridgeUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pimixer_serial_bridge_up",
			Help: "1 while the serial bridge loop is running",
		},
	)

	// Persistence
	ConfigWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_config_writes_total",
			Help: "Total number of snapshot writes to the config file",
		},
	)

	ConfigWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_config_write_errors_total",
			Help: "Total number of failed snapshot writes",
		},
	)

	// Brightness
	BrightnessBoosts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_brightness_boosts_total",
			Help: "Total number of touch events that boosted brightness",
		},
	)

	BrightnessReverts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pimixer_brightness_reverts_total",
			Help: "Total number of brightness reverts to off",
		},
	)

	// Channels
	ChannelValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pimixer_channel_value",
			Help: "Current value of each control channel",
		},
		[]string{"channel"},
	)
)
