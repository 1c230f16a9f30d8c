package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the ~/.medstudy directory structure.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths returns Paths rooted at the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.medstudy
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.medstudy/config.yaml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// SnapshotDir returns ~/.medstudy/snapshots, the export target used when
// no context names one.
func (p *Paths) SnapshotDir() string {
	return filepath.Join(p.BaseDir(), "snapshots")
}
