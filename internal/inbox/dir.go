// Package inbox turns message files dropped into a directory into draft
// time entries.
package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Archive subdirectories.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// File is a pending message file.
type File struct {
	Name    string
	ModTime time.Time
}

// Dir is an inbox directory. Pending files live at the top level; handled
// files are moved into ProcessedDir or FailedDir.
type Dir struct {
	root string // absolute path
}

// NewDir opens the inbox at root, creating it and its archive directories.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve root: %w", err)
	}
	for _, dir := range []string{abs, filepath.Join(abs, ProcessedDir), filepath.Join(abs, FailedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("inbox: mkdir: %w", err)
		}
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute inbox path.
func (d *Dir) Root() string { return d.root }

// eligible reports whether name is a message file the inbox picks up.
// Hidden files cover editor swap files and in-flight atomic writes.
func eligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// safePath resolves a top-level file name and rejects anything that is
// not a plain name inside the inbox.
func (d *Dir) safePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("inbox: invalid file name: %q", name)
	}
	return filepath.Join(d.root, name), nil
}

// Pending lists message files waiting at the top level, oldest first.
func (d *Dir) Pending() ([]File, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("inbox: list: %w", err)
	}
	var out []File
	for _, e := range entries {
		if !e.Type().IsRegular() || !eligible(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, File{Name: e.Name(), ModTime: info.ModTime()})
	}
	slices.SortFunc(out, func(a, b File) int {
		if c := a.ModTime.Compare(b.ModTime); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Read returns the contents of a pending file.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically drops a message file into the inbox: tmp file, fsync, rename.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.safePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".ticktock-tmp-*")
	if err != nil {
		return fmt.Errorf("inbox: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("inbox: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("inbox: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("inbox: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("inbox: rename: %w", err)
	}
	success = true
	return nil
}

// Archive moves a pending file into sub (ProcessedDir or FailedDir) and
// returns its new path relative to the inbox. An existing file of the same
// name is never overwritten.
func (d *Dir) Archive(name, sub string) (string, error) {
	if sub != ProcessedDir && sub != FailedDir {
		return "", fmt.Errorf("inbox: unknown archive %q", sub)
	}
	src, err := d.safePath(name)
	if err != nil {
		return "", err
	}

	target := name
	if _, err := os.Stat(filepath.Join(d.root, sub, target)); err == nil {
		ext := filepath.Ext(name)
		target = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext)
	}
	rel := filepath.Join(sub, target)
	if err := os.Rename(src, filepath.Join(d.root, rel)); err != nil {
		return "", fmt.Errorf("inbox: archive %s: %w", name, err)
	}
	return rel, nil
}
