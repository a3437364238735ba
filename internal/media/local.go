package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local writes images to a directory. The API serves that directory at
// /uploads, so the stored name is all a client needs.
type Local struct {
	Dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return &Local{Dir: dir}, nil
}

// Save stores data under a generated unique name and returns that name.
// The original filename only contributes its extension.
func (l *Local) Save(_ context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	name := uuid.NewString() + ext
	tmp := filepath.Join(l.Dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("media: write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(l.Dir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("media: rename: %w", err)
	}
	return name, nil
}
