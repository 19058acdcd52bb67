// Package session resolves and resets the on-disk coordination session
// directory shared by every writer and reader.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/swarmlog/internal/checkpoint"
	"github.com/louisbranch/swarmlog/internal/store"
)

// DefaultDirName is the session directory used when nothing else is
// configured, relative to the working directory.
const DefaultDirName = ".swarmlog"

// EnvDir is the environment variable naming the session directory.
const EnvDir = "SWARMLOG_DIR"

// Resolve picks the session directory: an explicit override wins, then
// EnvDir, then DefaultDirName under the working directory.
func Resolve(override string) string {
	if dir := strings.TrimSpace(override); dir != "" {
		return dir
	}
	if dir := strings.TrimSpace(os.Getenv(EnvDir)); dir != "" {
		return dir
	}
	return DefaultDirName
}

// Reset removes the session's journal, lock and checkpoint files so the next
// append starts a fresh log at sequence zero. Resetting a session that was
// never started is not an error. The directory itself is kept.
func Reset(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return errors.New("session directory is required")
	}

	names := []string{
		store.JournalFileName,
		store.LockFileName,
		checkpoint.SidecarFileName,
		checkpoint.SidecarFileName + "-wal",
		checkpoint.SidecarFileName + "-shm",
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
