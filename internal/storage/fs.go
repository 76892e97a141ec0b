package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// tmpPrefix marks files being written. They never carry the .md suffix, so
// List does not report them.
const tmpPrefix = ".journal-tmp-"

// Dir implements Provider on a local directory. Every access goes through
// an os.Root, so no path can reach outside the directory, symlinks included.
type Dir struct {
	path string
	root *os.Root
}

var _ Provider = (*Dir)(nil)

// OpenDir opens the existing directory at dir.
func OpenDir(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %s is not a directory", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	return &Dir{path: abs, root: root}, nil
}

// Path returns the absolute path of the directory.
func (d *Dir) Path() string { return d.path }

// Close releases the directory handle.
func (d *Dir) Close() error { return d.root.Close() }

// clean validates a slash-separated relative name. Absolute names and names
// with ".." elements are rejected before the root sees them.
func clean(name string) (string, error) {
	if name == "" {
		return ".", nil
	}
	c := path.Clean(filepath.ToSlash(name))
	if !fs.ValidPath(c) {
		return "", fmt.Errorf("storage: invalid path %q", name)
	}
	return c, nil
}

func (d *Dir) List(dir string) ([]File, error) {
	start, err := clean(dir)
	if err != nil {
		return nil, err
	}
	fsys := d.root.FS()
	var out []File
	err = fs.WalkDir(fsys, start, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		out = append(out, File{Path: p, Checksum: Checksum(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", start, err)
	}
	slices.SortFunc(out, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (d *Dir) Read(name string) ([]byte, error) {
	c, err := clean(name)
	if err != nil {
		return nil, err
	}
	data, err := d.root.ReadFile(c)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", c, err)
	}
	return data, nil
}

// Write replaces name with content through a synced temporary file and a
// rename, creating parent directories as needed.
func (d *Dir) Write(name string, content []byte) error {
	c, err := clean(name)
	if err != nil {
		return err
	}
	if c == "." {
		return fmt.Errorf("storage: invalid path %q", name)
	}
	parent := path.Dir(c)
	if parent != "." {
		if err := d.root.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("storage: mkdir %s: %w", parent, err)
		}
	}

	tmpName := path.Join(parent, tmpPrefix+uuid.NewString())
	tmp, err := d.root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", c, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = d.root.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", c, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync %s: %w", c, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", c, err)
	}
	if err := d.root.Rename(tmpName, c); err != nil {
		return fmt.Errorf("storage: replace %s: %w", c, err)
	}
	committed = true
	return nil
}

func (d *Dir) Delete(name string) error {
	c, err := clean(name)
	if err != nil {
		return err
	}
	if err := d.root.Remove(c); err != nil {
		return fmt.Errorf("storage: delete %s: %w", c, err)
	}
	return nil
}

// Checksum returns the hex SHA-256 digest of data, as reported by List.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
