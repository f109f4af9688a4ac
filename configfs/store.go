// Package configfs is the access layer for the USB gadget composition
// filesystem: a tree of directories, plain-text attribute files, and
// symbolic links that the kernel interprets. It converts typed attribute
// values to and from their on-disk text form and wraps the directory and
// symlink primitives behind a billy.Filesystem, so the store can be the
// real configfs mount (osfs) or an in-memory fixture (memfs).
package configfs

import (
	"io"
	"log/slog"
	"os"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Store wraps a billy.Filesystem with the text-attribute codec and the
// sorted directory enumeration the tree model depends on.
type Store struct {
	fs  billy.Filesystem
	log *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostic sink for best-effort writes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore returns a Store over fsys.
func NewStore(fsys billy.Filesystem, opts ...Option) *Store {
	s := &Store{fs: fsys, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filesystem exposes the underlying filesystem.
func (s *Store) Filesystem() billy.Filesystem { return s.fs }

// Logger exposes the diagnostic sink.
func (s *Store) Logger() *slog.Logger { return s.log }

// Join joins path elements with the store's separator. Empty elements are
// dropped, matching the path/name/file triplets used by the codec where
// the middle component may be blank.
func (s *Store) Join(elem ...string) string {
	parts := elem[:0:0]
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return s.fs.Join(parts...)
}

// DirExists reports whether p exists and is a directory.
func (s *Store) DirExists(p string) bool {
	fi, err := s.fs.Stat(p)
	return err == nil && fi.IsDir()
}

// StatDir verifies that p is an existing directory and classifies the
// failure otherwise.
func (s *Store) StatDir(p string) error {
	fi, err := s.fs.Stat(p)
	if err != nil {
		return Classify(err)
	}
	if !fi.IsDir() {
		return Classify(os.ErrNotExist)
	}
	return nil
}

// ListDir enumerates the entries of p in ascending lexicographic order.
// Dot entries never appear.
func (s *Store) ListDir(p string) ([]string, error) {
	infos, err := s.fs.ReadDir(p)
	if err != nil {
		return nil, Classify(err)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.Name() == "." || fi.Name() == ".." {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListLinks enumerates only the symbolic-link entries of p, sorted. This is
// how config bindings are distinguished from the attribute files and
// strings directory that share the config directory.
func (s *Store) ListLinks(p string) ([]string, error) {
	infos, err := s.fs.ReadDir(p)
	if err != nil {
		return nil, Classify(err)
	}
	var names []string
	for _, fi := range infos {
		li, err := s.fs.Lstat(s.fs.Join(p, fi.Name()))
		if err != nil {
			return nil, Classify(err)
		}
		if li.Mode()&os.ModeSymlink != 0 {
			names = append(names, fi.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Readlink returns the target recorded in the symlink at p, without
// resolving it.
func (s *Store) Readlink(p string) (string, error) {
	target, err := s.fs.Readlink(p)
	if err != nil {
		return "", Classify(err)
	}
	return target, nil
}

// Mkdir creates the directory p. The kernel populates new gadget, function
// and config directories with their attribute files as a side effect.
func (s *Store) Mkdir(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return Classify(err)
	}
	return nil
}

// Symlink records target as the content of a new link at linkPath.
func (s *Store) Symlink(target, linkPath string) error {
	if err := ValidatePath(linkPath); err != nil {
		return err
	}
	if err := s.fs.Symlink(target, linkPath); err != nil {
		return Classify(err)
	}
	return nil
}

// readFile reads the whole attribute file. Attribute files are single
// short lines, so no size cap is needed.
func (s *Store) readFile(p string) ([]byte, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, Classify(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, Classify(err)
	}
	return data, nil
}

// writeFile replaces the content of the attribute file at p.
func (s *Store) writeFile(p string, data []byte) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	if err := util.WriteFile(s.fs, p, data, 0o644); err != nil {
		return Classify(err)
	}
	return nil
}
