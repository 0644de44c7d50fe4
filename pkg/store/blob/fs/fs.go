// Package fs implements a filesystem-backed blob store.
//
// Each blob is one file at <root>/<ownerID>/<id>, mirroring the owner/id key
// scheme of the S3 store. Key components are caller-supplied opaque strings,
// so path punctuation in them is percent-encoded rather than trusted: any
// non-empty owner and id is storable, and nothing can escape the root.
// Writes go through a temp file and rename so a crashed write never leaves a
// half-written blob at the final path.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
)

// Store is a blob store rooted at a local directory.
type Store struct {
	root string
}

// NewStore creates a blob store rooted at root, creating the directory if it
// does not exist.
func NewStore(ctx context.Context, root string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == "" {
		return nil, fmt.Errorf("fs blob store: root path is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// escapeComponent makes an arbitrary key component safe as a single path
// element. '%' is escaped first so the encoding stays injective, then path
// separators and the two relative-path names.
func escapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "/", "%2F")
	s = strings.ReplaceAll(s, `\`, "%5C")
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return s
}

func unescapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%2E", ".")
	s = strings.ReplaceAll(s, "%2F", "/")
	s = strings.ReplaceAll(s, "%5C", `\`)
	return strings.ReplaceAll(s, "%25", "%")
}

// blobPath resolves the file path for (ownerID, id).
func (s *Store) blobPath(ownerID, id string) (string, error) {
	if ownerID == "" || id == "" {
		return "", fmt.Errorf("empty blob key component")
	}
	return filepath.Join(s.root, escapeComponent(ownerID), escapeComponent(id)), nil
}

// Put stores the payload under (ownerID, id) via temp file and rename.
func (s *Store) Put(ctx context.Context, ownerID, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.blobPath(ownerID, id)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp blob file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close blob file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to finalize blob write: %w", err)
	}

	return nil
}

// Get returns the payload for (ownerID, id), or ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerID, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.blobPath(ownerID, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s/%s: %w", ownerID, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return data, nil
}

// Delete removes the payload for (ownerID, id). Idempotent.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.blobPath(ownerID, id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	// Best-effort cleanup of the owner directory once empty. Ignored on
	// failure: a non-empty directory is the normal case.
	_ = os.Remove(filepath.Dir(path))

	return nil
}

// List walks the root and returns every stored blob key.
func (s *Store) List(ctx context.Context) ([]blob.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]blob.Key, 0)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".blob-") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 2 {
			return nil
		}
		keys = append(keys, blob.Key{
			OwnerID: unescapeComponent(parts[0]),
			ID:      unescapeComponent(parts[1]),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	return keys, nil
}

// Healthcheck verifies the root directory is accessible.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root inaccessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root %s is not a directory", s.root)
	}
	return nil
}
