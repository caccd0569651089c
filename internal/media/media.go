// Package media stores sticker and audio files under kind-specific
// directories and hands out relative references such as /stickers/<id>.webp.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects the directory and extension for a file.
type Kind string

const (
	Sticker Kind = "sticker"
	Audio   Kind = "audio"
)

const favoritePrefix = "saved-"

var layout = map[Kind]struct{ dir, ext string }{
	Sticker: {"stickers", ".webp"},
	Audio:   {"audios", ".ogg"},
}

// ErrBadRef is returned for references outside the media tree.
var ErrBadRef = errors.New("invalid media reference")

// Store writes media files below a root directory.
type Store struct {
	root string
}

// Favorite is a saved sticker available for reuse.
type Favorite struct {
	Ref     string
	Name    string
	ModTime time.Time
}

// New creates the kind directories under root.
func New(root string) (*Store, error) {
	for _, l := range layout {
		if err := os.MkdirAll(filepath.Join(root, l.dir), 0700); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store writes to.
func (s *Store) Root() string { return s.root }

// RefFor returns the reference a file for kind and id is stored under.
func RefFor(kind Kind, id string) string {
	l := layout[kind]
	return "/" + path.Join(l.dir, safeName(id)+l.ext)
}

// Save writes data for the message id and returns its reference. The write
// goes through a temp file and rename so readers never see partial content.
func (s *Store) Save(kind Kind, id string, data []byte) (string, error) {
	if _, ok := layout[kind]; !ok {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	ref := RefFor(kind, id)
	if err := s.writeAtomic(ref, data); err != nil {
		return "", err
	}
	return ref, nil
}

// Rename moves the file of fromID to toID and returns the new reference.
func (s *Store) Rename(kind Kind, fromID, toID string) (string, error) {
	from, err := s.Path(RefFor(kind, fromID))
	if err != nil {
		return "", err
	}
	ref := RefFor(kind, toID)
	to, err := s.Path(ref)
	if err != nil {
		return "", err
	}
	if err := os.Rename(from, to); err != nil {
		return "", fmt.Errorf("rename media: %w", err)
	}
	return ref, nil
}

// Path resolves a reference to a filesystem path inside the store.
func (s *Store) Path(ref string) (string, error) {
	dir, file, ok := strings.Cut(strings.TrimPrefix(ref, "/"), "/")
	if !ok || file == "" || file == "." || file == ".." || strings.ContainsAny(file, `/\`) {
		return "", ErrBadRef
	}
	for _, l := range layout {
		if l.dir == dir {
			return filepath.Join(s.root, dir, file), nil
		}
	}
	return "", ErrBadRef
}

// Open opens the file behind ref for reading.
func (s *Store) Open(ref string) (io.ReadCloser, error) {
	p, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Remove deletes the file behind ref. Missing files are not an error.
func (s *Store) Remove(ref string) error {
	p, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveFavorite stores a sticker under a fresh saved-<uuid> name.
func (s *Store) SaveFavorite(data []byte) (string, error) {
	return s.Save(Sticker, favoritePrefix+uuid.NewString(), data)
}

// ListFavorites returns saved stickers, newest first.
func (s *Store) ListFavorites() ([]Favorite, error) {
	dir := filepath.Join(s.root, layout[Sticker].dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var favs []Favorite
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, favoritePrefix) || !strings.HasSuffix(name, ".webp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		favs = append(favs, Favorite{
			Ref:     "/" + path.Join(layout[Sticker].dir, name),
			Name:    name,
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(favs, func(a, b Favorite) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return favs, nil
}

func (s *Store) writeAtomic(ref string, data []byte) error {
	p, err := s.Path(ref)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit media: %w", err)
	}
	return nil
}

// safeName keeps ids usable as file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
}
