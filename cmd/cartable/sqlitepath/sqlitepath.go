// Package sqlitepath resolves the on-disk location of the sqlite-vec index.
package sqlitepath

import (
	"path/filepath"

	"github.com/cartableai/cartable/pkg/dotdir"
)

// indexFile is the default database file name inside the .cartable/ dir.
const indexFile = "cartable.db"

// Resolve returns the sqlite-vec database path. A configured path always
// wins; otherwise the index lives next to the config file in the resolved
// .cartable/ directory, so the sqlite provider works without any setup.
func Resolve(configured, configDir string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(target, indexFile), nil
}
