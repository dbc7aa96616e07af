// Package workspace provides the filesystem-facing helpers an archive
// needs around its own files: resolving CLI-supplied paths against a
// configurable root directory, and durable, atomic writes so a crash
// mid-commit never leaves a half written ARH behind.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace resolves the archive paths arhtool's commands take on the
// command line against a root directory: relative names live under the
// root, absolute ones are used as given. An empty root leaves relative
// names untouched, so paths resolve against the process's current
// directory the way a plain CLI tool would, until a workspace directory
// is actually configured.
type Workspace struct {
	root string
}

// New returns a Workspace rooted at root.
func New(root string) *Workspace {
	return &Workspace{root: root}
}

// RootDir returns the workspace's root directory, or "" if none is set.
func (w *Workspace) RootDir() string {
	return w.root
}

// Resolve returns name unchanged if it's absolute or no root is
// configured, otherwise joins it onto the workspace root.
func (w *Workspace) Resolve(name string) string {
	if w.root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.root, name)
}

// EnsureDir creates dir and any missing parents.
func (w *Workspace) EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// FileExists reports whether filename exists.
func (w *Workspace) FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// FileSize returns the size of filename, or 0 if it doesn't exist.
func (w *Workspace) FileSize(filename string) int64 {
	info, err := os.Stat(filename)
	if err != nil {
		return 0
	}
	return info.Size()
}

// AtomicWrite writes data to a temp file beside path and renames it into
// place, so concurrent readers and a process crash mid-write only ever
// see the old or the fully written new contents, never a partial one.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("workspace: create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("workspace: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("workspace: sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workspace: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workspace: rename temp file into place: %w", err)
	}
	return nil
}
