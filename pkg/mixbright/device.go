package mixbright

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultRoot is where the kernel exposes backlight devices
const DefaultRoot = "/sys/class/backlight"

// ErrDeviceUnavailable is returned when no usable backlight is found
var ErrDeviceUnavailable = errors.New("brightness device unavailable")

// Device is a display backlight
type Device interface {
	MaxLevel() int
	SetLevel(level int) error
}

// Level scales percent (0..100) to a device level
func Level(percent float64, max int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(math.Round(percent / 100 * float64(max)))
}

// SysfsDevice drives a backlight directory holding max_brightness and
// brightness endpoints
type SysfsDevice struct {
	dir string
	max int
}

// OpenSysfs reads max_brightness once from dir
func OpenSysfs(dir string) (*SysfsDevice, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "read max_brightness in %s: %v", dir, err)
	}
	max, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || max <= 0 {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "bad max_brightness %q in %s", strings.TrimSpace(string(raw)), dir)
	}
	return &SysfsDevice{dir: dir, max: max}, nil
}

// Discover opens the first backlight found under root
func Discover(root string) (*SysfsDevice, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "list %s: %v", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "no backlight under %s", root)
	}
	return OpenSysfs(filepath.Join(root, names[0]))
}

// Dir returns the backlight directory
func (d *SysfsDevice) Dir() string {
	return d.dir
}

// MaxLevel returns the cached max_brightness
func (d *SysfsDevice) MaxLevel() int {
	return d.max
}

// SetLevel writes level to the brightness endpoint
func (d *SysfsDevice) SetLevel(level int) error {
	path := filepath.Join(d.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(level)), 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// NoopDevice stands in when no backlight is present
type NoopDevice struct{}

func (NoopDevice) MaxLevel() int        { return 100 }
func (NoopDevice) SetLevel(_ int) error { return nil }
