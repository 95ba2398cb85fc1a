// Package storage keeps uploaded files on local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Local struct {
	Root string
}

func NewLocal(root string) *Local { return &Local{Root: root} }

// Save writes r under Root/kind and returns the path relative to Root.
// Only the base name of filename is kept, prefixed with a random id.
func (s *Local) Save(ctx context.Context, kind, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind = filepath.Base(filepath.Clean("/" + kind))
	if kind == "/" || kind == "." {
		return "", fmt.Errorf("storage: invalid kind %q", kind)
	}

	dir := filepath.Join(s.Root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	base := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	name := uuid.NewString() + "-" + base

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close: %w", err)
	}
	return filepath.ToSlash(filepath.Join(kind, name)), nil
}
