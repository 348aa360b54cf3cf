// Package objectstore provides rooted read access to the content directories:
// mezzanine sources and encoder output trees. All paths are relative to the
// store root and confined to it.
package objectstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound marks objects absent from the store.
var ErrNotFound = errors.New("object not found")

// ErrEscapesRoot marks relative paths that resolve outside the store root.
var ErrEscapesRoot = errors.New("path escapes store root")

// Info describes one stored object.
type Info struct {
	Path string
	Size int64
}

// Store is read access rooted at one directory.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory does not need to exist
// yet; lookups against a missing root report ErrNotFound.
func New(dir string) *Store {
	return &Store{root: filepath.Clean(dir)}
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

// resolve joins rel onto the root and rejects traversal outside it.
func (s *Store) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || cleaned == "" {
		return s.root, nil
	}
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Open returns a reader over the object at rel.
func (s *Store) Open(rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("open object %s: %w", rel, err)
	}
	return f, nil
}

// ReadFile returns the full contents of the object at rel.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("read object %s: %w", rel, err)
	}
	return data, nil
}

// Stat reports size information for the object at rel.
func (s *Store) Stat(rel string) (Info, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return Info{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return Info{}, fmt.Errorf("stat object %s: %w", rel, err)
	}
	if info.IsDir() {
		return Info{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, rel)
	}
	return Info{Path: rel, Size: info.Size()}, nil
}

// List returns the relative paths of all objects under prefix, sorted. A
// missing prefix directory yields an empty list, not an error: encoder output
// that never landed is a validation finding, not an I/O failure.
func (s *Store) List(prefix string) ([]string, error) {
	full, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var paths []string
	walkErr := filepath.WalkDir(full, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("list objects under %s: %w", prefix, walkErr)
	}
	sort.Strings(paths)
	return paths, nil
}
