// Package store is the device filesystem: a host directory presented to
// clients as a rooted tree of slash separated paths.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

var (
	ErrOutsideRoot = errors.New("path escapes filesystem root")
	ErrNotMounted  = errors.New("filesystem not mounted")
)

// Store manages the files a device exposes through fsbr, fetch and upload
type Store struct {
	root    string
	depth   int
	mounted bool
}

// Entry is one line of a directory listing
type Entry struct {
	Path string // device path, directories end with '/'
	Size int64
	Dir  bool
}

// DefaultPath returns the default filesystem root (~/.gyverhub/fs).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gyverhub", "fs"), nil
}

// Open mounts the directory at root, creating it when missing. depth limits
// how far List descends.
func Open(root string, depth int) (*Store, error) {
	if root == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		root = p
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve filesystem root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create filesystem root: %w", err)
	}
	return &Store{root: abs, depth: depth, mounted: true}, nil
}

// Mounted reports whether the store is usable
func (s *Store) Mounted() bool {
	return s != nil && s.mounted
}

// Root is the host directory behind the store
func (s *Store) Root() string {
	return s.root
}

// Abs maps a device path onto the host filesystem
func (s *Store) Abs(p string) (string, error) {
	if !s.Mounted() {
		return "", ErrNotMounted
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p))), nil
}

// List walks the tree below / up to the configured depth. Directories are
// listed before their contents, entries within a directory by name.
func (s *Store) List() ([]Entry, error) {
	if !s.Mounted() {
		return nil, ErrNotMounted
	}
	var out []Entry
	if err := s.list("/", s.depth, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) list(dir string, levels int, out *[]Entry) error {
	abs, _ := s.Abs(dir)
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			*out = append(*out, Entry{Path: p + "/", Dir: true})
			if levels > 0 {
				if err := s.list(p, levels-1, out); err != nil {
					return err
				}
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		*out = append(*out, Entry{Path: p, Size: info.Size()})
	}
	return nil
}

// Usage reports the capacity of the underlying volume and the bytes held
// by the store
func (s *Store) Usage() (total, used uint64, err error) {
	if !s.Mounted() {
		return 0, 0, ErrNotMounted
	}
	st, err := disk.Usage(s.root)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read volume usage: %w", err)
	}
	err = filepath.WalkDir(s.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, ierr := d.Info(); ierr == nil {
			used += uint64(info.Size())
		}
		return nil
	})
	return st.Total, used, err
}

// Open opens a file for reading and returns its size
func (s *Store) Open(p string) (*os.File, int64, error) {
	abs, err := s.Abs(p)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		if err == nil {
			err = fmt.Errorf("%s is a directory", p)
		}
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Create truncates or creates p for writing, making parent directories
func (s *Store) Create(p string) (io.WriteCloser, error) {
	abs, err := s.Abs(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes p and then every parent directory left empty
func (s *Store) Remove(p string) error {
	abs, err := s.Abs(p)
	if err != nil {
		return err
	}
	if abs == s.root {
		return fmt.Errorf("refusing to remove filesystem root")
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.pruneParents(abs)
	return nil
}

// pruneParents removes empty directories from dir's parent up to the root.
// os.Remove fails on non-empty directories, which ends the climb.
func (s *Store) pruneParents(abs string) {
	for dir := filepath.Dir(abs); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			return
		}
	}
}

// Rename moves from to to, making parent directories of to
func (s *Store) Rename(from, to string) error {
	src, err := s.Abs(from)
	if err != nil {
		return err
	}
	dst, err := s.Abs(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	s.pruneParents(src)
	return nil
}

// Format erases everything below the root
func (s *Store) Format() error {
	if !s.Mounted() {
		return ErrNotMounted
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.mounted = false
		return fmt.Errorf("failed to read filesystem root: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("failed to erase %s: %w", e.Name(), err)
		}
	}
	return nil
}
