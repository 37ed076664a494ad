// Package mixcfg reads and writes the persisted channel snapshot and the
// optional YAML settings file.
package mixcfg

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixstate"
)

const (
	// Dir is the per-user directory under the home directory
	Dir = ".pimixer"

	// SnapshotFile holds the one-line channel snapshot
	SnapshotFile = "mixer.conf"
)

// HomeDir returns the current user's home directory
func HomeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return os.Getenv("USERPROFILE") // windows
}

// DefaultPath is the fixed per-user snapshot location
func DefaultPath() string {
	return filepath.Join(HomeDir(), Dir, SnapshotFile)
}

// Load reads the snapshot at path. A missing file yields all channels at
// the maximum value and no error. A malformed line yields a usable snapshot
// together with a *mixstate.ParseError describing what was skipped.
func Load(path string) (mixstate.Snapshot, error) {
	defaults := mixstate.DefaultSnapshot()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Debugf("No config at %s, using defaults", path)
		return defaults, nil
	}
	if err != nil {
		return defaults, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	line := ""
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		line = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return defaults, errors.Wrapf(err, "read config %s", path)
	}

	return mixstate.ParseSnapshot(line, defaults)
}

// Save overwrites path in place with snap followed by a newline. The
// directory is created if needed and the write holds an advisory lock so
// two instances never interleave.
func Save(path string, snap mixstate.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return errors.Wrapf(err, "lock config %s", path)
	}
	defer func() {
		if err := unlockFile(f); err != nil {
			log.Debugf("Unlock %s: %s", path, err)
		}
	}()

	// Truncate only once the lock is held
	if err := f.Truncate(0); err != nil {
		return errors.Wrapf(err, "truncate config %s", path)
	}
	if _, err := f.WriteString(snap.String() + "\n"); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// FileStore persists snapshots to path. It satisfies mixpersist.Store.
type FileStore string

// Save writes snap to the file
func (p FileStore) Save(snap mixstate.Snapshot) error {
	return Save(string(p), snap)
}
