package mixcfg

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// SettingsFile is the optional YAML settings file name
const SettingsFile = "settings.yaml"

// Settings are the operator-tunable knobs. Zero values mean "use the
// built-in default"; CLI flags override anything set here.
type Settings struct {
	Device            string        `yaml:"device"`
	Baud              int           `yaml:"baud"`
	Greeting          string        `yaml:"greeting"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	IdleInterval      time.Duration `yaml:"idleInterval"`
	BroadcastInterval time.Duration `yaml:"broadcastInterval"`
	PersistInterval   time.Duration `yaml:"persistInterval"`
	BoostDuration     time.Duration `yaml:"boostDuration"`
	RevertPolicy      string        `yaml:"revertPolicy"`
	Backlight         string        `yaml:"backlight"`
	RequireBacklight  bool          `yaml:"requireBacklight"`
	JoinTimeout       time.Duration `yaml:"joinTimeout"`
	APIAddr           string        `yaml:"apiAddr"`
	Labels            []string      `yaml:"labels"`
}

// DefaultSettingsPath is where settings are looked for when no path is given
func DefaultSettingsPath() string {
	return filepath.Join(HomeDir(), Dir, SettingsFile)
}

// LoadSettings reads YAML settings from path. A missing file is not an
// error and yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{}

	dat, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, errors.Wrapf(err, "read settings %s", path)
	}

	if err := yaml.Unmarshal(dat, s); err != nil {
		return &Settings{}, errors.Wrapf(err, "parse settings %s", path)
	}
	return s, nil
}
