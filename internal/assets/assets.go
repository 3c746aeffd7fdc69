// Package assets stores uploaded team logos.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store saves and removes uploaded files. A reference returned by Save is
// opaque to callers and is what gets persisted on the team.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore keeps files below Root. References look like "logos/<uuid>.png".
type DiskStore struct {
	Root string
}

const logoDir = "logos"

// NewDiskStore prepares root for writing.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(root, logoDir), 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{Root: root}, nil
}

func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := path.Join(logoDir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	f, err := os.OpenFile(s.path(ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", ref, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", ref, err)
	}
	return ref, nil
}

func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if !strings.HasPrefix(ref, logoDir+"/") || strings.Contains(ref, "..") {
		return fmt.Errorf("refusing to delete %q", ref)
	}
	if err := os.Remove(s.path(ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (s *DiskStore) path(ref string) string {
	return filepath.Join(s.Root, filepath.FromSlash(ref))
}

var _ Store = (*DiskStore)(nil)
