package memstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// OpenFile returns a Store backed by a JSON file. A missing file starts an
// empty catalog; every commit rewrites the file through a temp file and rename.
func OpenFile(path string) (*Store, error) {
	s := &Store{st: newState(), path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	st := newState()
	if err := codec.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if st.Books == nil {
		st.Books = map[string]library.Book{}
	}
	if st.Loans == nil {
		st.Loans = map[string]library.Loan{}
	}
	s.st = st
	return s, nil
}

func (s *Store) persist(st *state) error {
	if s.path == "" {
		return nil
	}
	raw, err := codec.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
