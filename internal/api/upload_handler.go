package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 1 << 20

// UploadHandler accepts single-file multipart uploads.
type UploadHandler struct {
	files FileSaver
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(files FileSaver) *UploadHandler {
	return &UploadHandler{files: files}
}

// Upload handles POST /api/v1/uploads.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}

	maxSize := h.files.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if !errors.As(err, &tooBig) {
			err = fmt.Errorf("%w: %w", shared.ErrMalformedRequest, err)
		}
		HandleAPIError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	defer file.Close()

	stored, err := h.files.Save(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("file uploaded",
		slog.String("name", stored.Name),
		slog.Int64("size", stored.Size),
		slog.String("mime_type", stored.MimeType))
	shared.Created(w, r, stored, shared.WithCode(shared.CodeUploaded))
}
