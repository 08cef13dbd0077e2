package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFile implements Source over a directory of plain files, one per
// secret name. Intended for local development runs.
type LocalFile struct {
	root string
}

// NewLocalFile creates a file-backed secret source rooted at dir.
func NewLocalFile(dir string) (*LocalFile, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating secrets dir: %w", err)
	}
	return &LocalFile{root: dir}, nil
}

func (l *LocalFile) path(name string) string {
	// Secret names like "fyers/credentials" become nested paths.
	return filepath.Join(l.root, filepath.FromSlash(name))
}

func (l *LocalFile) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading secret %s: %w", name, err)
	}
	return data, nil
}

func (l *LocalFile) Update(_ context.Context, name string, value []byte) error {
	p := l.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secret dir: %w", err)
	}
	if err := os.WriteFile(p, value, 0o600); err != nil {
		return fmt.Errorf("writing secret %s: %w", name, err)
	}
	return nil
}
