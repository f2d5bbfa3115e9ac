// Package manifest handles flick.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a flick.toml runtime configuration.
type Manifest struct {
	Player  Player  `toml:"player"`
	Limits  Limits  `toml:"limits"`
	Storage Storage `toml:"storage"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the flick.toml file (set at load time).
	Dir string `toml:"-"`
}

// Player configures movie playback.
type Player struct {
	Movie     string  `toml:"movie"`
	Frames    int     `toml:"frames"`
	FrameRate float64 `toml:"frame-rate"` // 0 means use the movie header's rate
}

// Limits bounds script execution.
type Limits struct {
	InstructionBudget int `toml:"instruction-budget"`
	CallDepth         int `toml:"call-depth"`
}

// Storage configures the saved-data database.
type Storage struct {
	Path string `toml:"path"`
}

// Log configures logging output.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses a flick.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "flick.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a flick.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "flick.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges. Zero values mean "use the default"
// throughout, so only actively harmful settings are rejected.
func (m *Manifest) Validate() error {
	if m.Player.Frames < 0 {
		return fmt.Errorf("player.frames must not be negative")
	}
	if m.Player.FrameRate < 0 {
		return fmt.Errorf("player.frame-rate must not be negative")
	}
	if m.Limits.InstructionBudget < 0 {
		return fmt.Errorf("limits.instruction-budget must not be negative")
	}
	if m.Limits.CallDepth < 0 {
		return fmt.Errorf("limits.call-depth must not be negative")
	}
	return nil
}

// MoviePath returns the absolute path of the configured movie file, or ""
// when none is configured.
func (m *Manifest) MoviePath() string {
	if m.Player.Movie == "" {
		return ""
	}
	if filepath.IsAbs(m.Player.Movie) {
		return m.Player.Movie
	}
	return filepath.Join(m.Dir, m.Player.Movie)
}

// StoragePath returns the absolute path of the saved-data database, or ""
// when persistence is disabled.
func (m *Manifest) StoragePath() string {
	if m.Storage.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Storage.Path) {
		return m.Storage.Path
	}
	return filepath.Join(m.Dir, m.Storage.Path)
}
