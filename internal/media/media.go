// Package media stores uploaded student profile images.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrNotImage is returned when the uploaded content is not an image.
var ErrNotImage = errors.New("only image uploads are allowed")

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload too large")

// Store saves an image and returns the reference recorded on the student.
type Store interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Read reads r up to maxBytes and checks that the content sniffs as an
// image. It returns the data and a file extension for it.
func Read(r io.Reader, filename string, maxBytes int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrTooLarge
	}
	ctype := http.DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		return nil, "", ErrNotImage
	}
	ext, ok := extByType[ctype]
	if !ok {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	return data, ext, nil
}
