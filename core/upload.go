package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// imageTypes maps accepted image extensions to the file type reported to the server.
var imageTypes = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".webp": "webp",
}

// ImageType returns the server file type for path ("jpg", "png", "webp"),
// or false when the extension is not a supported image type.
func ImageType(path string) (string, bool) {
	t, ok := imageTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// ValidateImagePath checks that path names a readable regular file with a
// supported image extension. It performs no network I/O.
func ValidateImagePath(path string) error {
	if path == "" {
		return inputError("path", "empty path")
	}
	if _, ok := ImageType(path); !ok {
		return inputError("path", "%s: unsupported image type (want jpg, jpeg, png or webp)", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return inputError("path", "%s: file not found", path)
		}
		return inputError("path", "%s: %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return inputError("path", "%s: not a regular file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return inputError("path", "%s: not readable: %v", path, err)
	}
	return f.Close()
}

// UploadMany uploads paths and returns their tokens in input order.
//
// Every path is validated before the first upload starts, so an invalid
// path never results in a partial batch. Uploads run with the client's
// upload concurrency (1 by default). The first failure cancels the
// remaining uploads and is returned as an *UploadError naming its index.
func (c *Client) UploadMany(ctx context.Context, paths []string) ([]UploadedFile, error) {
	for i, p := range paths {
		if err := ValidateImagePath(p); err != nil {
			return nil, &UploadError{Index: i, Path: p, Err: err}
		}
	}

	files := make([]UploadedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.uploadConcurrency)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &UploadError{Index: i, Path: p, Err: err}
			}
			f, err := c.Upload(gctx, p)
			if err != nil {
				return &UploadError{Index: i, Path: p, Err: err}
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Debug("batch upload aborted", zap.Error(err))
		return nil, err
	}
	return files, nil
}
