package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// BackupSuffix is appended to a record's file name for its one-time backup.
const BackupSuffix = ".bak"

// ErrOutsideRoot is returned for references that escape the store root.
var ErrOutsideRoot = errors.New("reference escapes store root")

// FileStore loads and saves workflow records stored as JSON files below a
// root directory. References are slash separated paths relative to the root.
type FileStore struct {
	root   string
	backup bool
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithBackup makes Save write a one-time "<file>.bak" copy of the original
// document before the first modification.
func WithBackup(enabled bool) StoreOption {
	return func(s *FileStore) {
		s.backup = enabled
	}
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, opts ...StoreOption) *FileStore {
	s := &FileStore{root: filepath.Clean(dir)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the store root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path resolves a reference to a file path inside the root.
func (s *FileStore) Path(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return filepath.Join(s.root, clean), nil
}

// List returns the references of every "*.json" file below the root, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	var refs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows in %s: %w", s.root, err)
	}
	sort.Strings(refs)
	return refs, nil
}

// Read returns the raw document bytes for ref.
func (s *FileStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", ref, err)
	}
	return data, nil
}

// Load reads and parses the record for ref. Undecodable documents yield a
// *ParseError; read failures are returned as plain errors.
func (s *FileStore) Load(ctx context.Context, ref string) (*Record, error) {
	data, err := s.Read(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Parse(ref, data)
}

// Save rewrites the record for ref with meta as its metadata block. The file
// is re-read so that concurrent edits to other fields are not lost, and the
// write is skipped when the content would not change.
func (s *FileStore) Save(ctx context.Context, ref string, meta Meta) error {
	data, err := s.Read(ctx, ref)
	if err != nil {
		return err
	}
	rec, err := Parse(ref, data)
	if err != nil {
		return err
	}

	out, err := rec.Encode(meta)
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", ref, err)
	}
	if bytes.Equal(bytes.TrimSpace(out), bytes.TrimSpace(data)) {
		return nil
	}

	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if s.backup {
		if err := writeBackupOnce(path, data); err != nil {
			return fmt.Errorf("failed to back up workflow %s: %w", ref, err)
		}
	}
	if err := writeFileAtomic(path, out); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", ref, err)
	}
	return nil
}

func writeBackupOnce(path string, data []byte) error {
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(backup, data, 0o644)
}

// writeFileAtomic replaces path through a hidden temporary file in the same
// directory, keeping the permissions of the file it replaces.
func writeFileAtomic(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644, renameio.WithExistingPermissions())
}
