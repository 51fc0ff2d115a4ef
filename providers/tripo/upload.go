package tripo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mberenty7/tripo-tools/core"
)

const uploadPath = "/upload"

// Upload sends a local image to the service and returns its file token.
// The path is checked locally first; an invalid path makes no network call.
func (p *Tripo) Upload(ctx context.Context, path string) (core.UploadedFile, error) {
	if err := core.ValidateImagePath(path); err != nil {
		return core.UploadedFile{}, err
	}
	fileType, _ := core.ImageType(path)

	f, err := os.Open(path)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: opening %s: %v", core.ErrIO, path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: creating form file: %v", core.ErrIO, err)
	}
	n, err := io.Copy(part, f)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: reading %s: %v", core.ErrIO, path, err)
	}
	if err := w.Close(); err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: closing multipart writer: %v", core.ErrIO, err)
	}

	p.logger.Debug("uploading image", zap.String("file", filepath.Base(path)), zap.Int64("bytes", n))

	var data uploadData
	if err := p.do(ctx, http.MethodPost, uploadPath, &buf, w.FormDataContentType(), &data); err != nil {
		return core.UploadedFile{}, err
	}
	if data.ImageToken == "" {
		return core.UploadedFile{}, newProtocolError("upload response has no image_token")
	}

	return core.UploadedFile{
		Token: data.ImageToken,
		Name:  filepath.Base(path),
		Type:  fileType,
	}, nil
}
