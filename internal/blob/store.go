package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Object describes a stored blob
type Object struct {
	Reference   string `json:"reference"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store persists opaque blobs and hands back a reference string
type Store interface {
	Put(ctx context.Context, contentType string, body io.Reader) (*Object, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskStore writes blobs under a directory served at baseURL
type DiskStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewDiskStore creates the upload directory if needed
func NewDiskStore(dir, baseURL string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

var _ Store = (*DiskStore)(nil)

// Put copies body to a uuid-named file. Partial files are removed on error.
func (s *DiskStore) Put(ctx context.Context, contentType string, body io.Reader) (*Object, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(&ctxReader{ctx: ctx, r: body}, s.maxBytes+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}

	return &Object{Reference: s.baseURL + "/" + name, ContentType: contentType, Size: n}, nil
}

// ctxReader stops reading once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
