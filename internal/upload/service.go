package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/PitokDf/express-app-useable/internal/config"
)

// File describes a stored upload.
type File struct {
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
}

// Service validates uploads and stores them.
type Service struct {
	store        Store
	maxSize      int64
	allowedTypes []string
	allowedExts  map[string]struct{}
	logger       *slog.Logger
}

// NewService builds a Service enforcing cfg's size and type limits.
func NewService(store Store, cfg config.UploadConfig, logger *slog.Logger) *Service {
	exts := make(map[string]struct{})
	for _, t := range cfg.AllowedTypes {
		if m := mimetype.Lookup(t); m != nil && m.Extension() != "" {
			exts[m.Extension()] = struct{}{}
		}
		known, _ := mime.ExtensionsByType(t)
		for _, ext := range known {
			exts[strings.ToLower(ext)] = struct{}{}
		}
	}

	return &Service{
		store:        store,
		maxSize:      cfg.MaxSizeBytes,
		allowedTypes: cfg.AllowedTypes,
		allowedExts:  exts,
		logger:       logger.With("component", "upload_service"),
	}
}

// MaxSize returns the per-file byte limit.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Ping reports whether the underlying store is usable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Save checks and stores a file. r must support seeking so the sniffed
// prefix can be replayed into the store.
func (s *Service) Save(ctx context.Context, originalName string, size int64, r io.ReadSeeker) (*File, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := s.allowedExts[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}
	if !s.typeAllowed(detected) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	contentType := baseType(detected.String())
	name := uuid.NewString() + ext
	url, err := s.store.Put(ctx, name, io.LimitReader(r, s.maxSize), size, contentType)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "file stored", "name", name, "size", size, "mime_type", contentType)

	return &File{
		Name:         name,
		OriginalName: filepath.Base(originalName),
		Size:         size,
		MimeType:     contentType,
		URL:          url,
	}, nil
}

func (s *Service) typeAllowed(detected *mimetype.MIME) bool {
	for _, t := range s.allowedTypes {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}
