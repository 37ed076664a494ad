package run

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixcfg"
)

// options is the resolved run configuration: built-in defaults, then the
// settings file, then any flag the operator set explicitly.
type options struct {
	Device            string
	Baud              int
	Greeting          string
	ReadTimeout       time.Duration
	IdleInterval      time.Duration
	BroadcastInterval time.Duration
	PersistInterval   time.Duration
	BoostDuration     time.Duration
	RevertPolicy      mixbright.Policy
	Backlight         string
	BacklightRoot     string
	RequireBacklight  bool
	JoinTimeout       time.Duration
	APIAddr           string
	API               bool
	TUI               bool
	Light             bool
	Labels            []string
	ConfigPath        string
}

func resolveOptions(flags *pflag.FlagSet, s *mixcfg.Settings) (options, error) {
	if s == nil {
		s = &mixcfg.Settings{}
	}

	o := options{
		Device:            device,
		Baud:              baud,
		Greeting:          greeting,
		ReadTimeout:       readTimeout,
		IdleInterval:      idleInterval,
		BroadcastInterval: broadcastInterval,
		PersistInterval:   persistInterval,
		BoostDuration:     boostDuration,
		Backlight:         backlight,
		BacklightRoot:     mixbright.DefaultRoot,
		RequireBacklight:  requireBacklight,
		JoinTimeout:       joinTimeout,
		APIAddr:           apiAddr,
		API:               apiMode,
		TUI:               tuiMode,
		Light:             lightTheme,
		Labels:            labels,
		ConfigPath:        configPath,
	}
	policy := revertPolicy

	useString(flags, "device", &o.Device, s.Device)
	useString(flags, "greeting", &o.Greeting, s.Greeting)
	useString(flags, "backlight", &o.Backlight, s.Backlight)
	useString(flags, "api-addr", &o.APIAddr, s.APIAddr)
	useString(flags, "revert-policy", &policy, s.RevertPolicy)

	if s.Baud > 0 && !flags.Changed("baud") {
		o.Baud = s.Baud
	}
	if s.RequireBacklight && !flags.Changed("require-backlight") {
		o.RequireBacklight = true
	}
	if len(s.Labels) > 0 && !flags.Changed("label") {
		o.Labels = s.Labels
	}

	useDuration(flags, "read-timeout", &o.ReadTimeout, s.ReadTimeout)
	useDuration(flags, "idle-interval", &o.IdleInterval, s.IdleInterval)
	useDuration(flags, "broadcast-interval", &o.BroadcastInterval, s.BroadcastInterval)
	useDuration(flags, "persist-interval", &o.PersistInterval, s.PersistInterval)
	useDuration(flags, "boost", &o.BoostDuration, s.BoostDuration)
	useDuration(flags, "join-timeout", &o.JoinTimeout, s.JoinTimeout)

	p, err := mixbright.ParsePolicy(policy)
	if err != nil {
		return o, err
	}
	o.RevertPolicy = p
	return o, nil
}

// useString applies a settings value unless the flag was given
func useString(flags *pflag.FlagSet, name string, dst *string, setting string) {
	if setting != "" && !flags.Changed(name) {
		*dst = setting
	}
}

func useDuration(flags *pflag.FlagSet, name string, dst *time.Duration, setting time.Duration) {
	if setting > 0 && !flags.Changed(name) {
		*dst = setting
	}
}
