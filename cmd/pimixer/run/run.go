// Package run is the main pimixer command: it owns the serial bridge, the
// control loop and the optional API and TUI surfaces.
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/txn2/pimixer/pkg/mixapi"
	"github.com/txn2/pimixer/pkg/mixbcast"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixcfg"
	"github.com/txn2/pimixer/pkg/mixpersist"
	"github.com/txn2/pimixer/pkg/mixserial"
)

// cmdline arguments
var device string
var baud int
var greeting string
var readTimeout time.Duration
var idleInterval time.Duration
var broadcastInterval time.Duration
var persistInterval time.Duration
var boostDuration time.Duration
var revertPolicy string
var backlight string
var requireBacklight bool
var joinTimeout time.Duration
var apiAddr string
var apiMode bool
var tuiMode bool
var lightTheme bool
var labels []string
var configPath string
var settingsPath string
var verbose bool

// Version is set by the main package
var Version string

func init() {
	addFlags(Cmd.Flags())
}

func addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&device, "device", "d", mixserial.DefaultPath, "Serial device path.")
	fs.IntVarP(&baud, "baud", "b", mixserial.DefaultBaud, "Serial line speed.")
	fs.StringVar(&greeting, "greeting", "", "Message sent once to the device after the port opens.")
	fs.DurationVar(&readTimeout, "read-timeout", mixserial.DefaultReadTimeout, "Bound on a single serial read; also bounds shutdown latency.")
	fs.DurationVar(&idleInterval, "idle-interval", mixserial.DefaultIdleInterval, "Serial loop sleep when there is nothing to send or receive.")
	fs.DurationVar(&broadcastInterval, "broadcast-interval", mixbcast.DefaultPeriod, "Interval between frames sent to the device.")
	fs.DurationVar(&persistInterval, "persist-interval", mixpersist.DefaultPeriod, "Interval between config file checks; the file is only written on change.")
	fs.DurationVar(&boostDuration, "boost", mixbright.DefaultDuration, "How long the backlight stays on after a touch.")
	fs.StringVar(&revertPolicy, "revert-policy", "first-timer", "Overlapping touches: first-timer (first revert wins) or last-touch (extend on every touch).")
	fs.StringVar(&backlight, "backlight", "", "Backlight sysfs directory (default: first entry under "+mixbright.DefaultRoot+").")
	fs.BoolVar(&requireBacklight, "require-backlight", false, "Fail at startup if no backlight can be opened.")
	fs.DurationVar(&joinTimeout, "join-timeout", 2*time.Second, "How long shutdown waits for the serial bridge and control loop.")
	fs.StringVar(&apiAddr, "api-addr", mixapi.DefaultAddr, "REST API listen address.")
	fs.BoolVar(&apiMode, "api", true, "Enable the REST API.")
	fs.BoolVar(&tuiMode, "tui", false, "Enable the terminal control surface.")
	fs.BoolVar(&lightTheme, "light", false, "Use the light TUI palette.")
	fs.StringSliceVar(&labels, "label", []string{}, "Channel display labels in order. Specify multiple labels by duplicating this argument.")
	fs.StringVarP(&configPath, "config", "c", mixcfg.DefaultPath(), "Snapshot file.")
	fs.StringVar(&settingsPath, "settings", mixcfg.DefaultSettingsPath(), "YAML settings file; flags override it.")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Verbose output.")
}

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mixer bridge",
	Long: `Run the mixer bridge.

The last saved channel values are loaded from the snapshot file (all
channels at 1023 when it is missing). A frame is sent to the serial device
every broadcast interval and the snapshot file is rewritten only when the
values change. If the serial device cannot be opened pimixer keeps running
without broadcasting so the surfaces stay usable.`,
	Example: "  pimixer run                              # Serial on /dev/ttyGS0, API on 127.0.0.1:8080\n" +
		"  pimixer run --tui                        # With the terminal control surface\n" +
		"  pimixer run -d /dev/ttyUSB0 -b 115200\n" +
		"  pimixer run --boost 3s --revert-policy last-touch\n" +
		"  pimixer run --api=false --tui",
	Run: runCmd,
}

func runCmd(cmd *cobra.Command, _ []string) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	settings, err := mixcfg.LoadSettings(settingsPath)
	if err != nil {
		log.Warnf("Ignoring settings file: %s", err)
	}

	opts, err := resolveOptions(cmd.Flags(), settings)
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	ctx, triggerShutdown := context.WithCancel(context.Background())
	defer triggerShutdown()
	setupSignalHandler(triggerShutdown)

	a, err := newApp(opts, triggerShutdown)
	if err != nil {
		log.Fatalf("Startup failed: %s", err)
	}
	a.run(ctx)
}

// setupSignalHandler sets up graceful shutdown on signals
func setupSignalHandler(triggerShutdown func()) {
	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		<-sigChan
		log.Infof("Shutting down... (press Ctrl+C again to force)")
		triggerShutdown()

		<-sigChan
		log.Warnf("Forced shutdown")
		os.Exit(1)
	}()
}
