package upload

import (
	"errors"
	"fmt"
)

// ErrInvalidUpload is the parent of every client-side upload failure.
var ErrInvalidUpload = errors.New("invalid upload")

var (
	ErrMissingFile          = fmt.Errorf("%w: no file provided", ErrInvalidUpload)
	ErrEmptyFile            = fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	ErrFileTooLarge         = fmt.Errorf("%w: file too large", ErrInvalidUpload)
	ErrUnsupportedType      = fmt.Errorf("%w: file type not allowed", ErrInvalidUpload)
	ErrUnsupportedExtension = fmt.Errorf("%w: file extension not allowed", ErrInvalidUpload)
)

// ErrStorage wraps failures of the underlying Store.
var ErrStorage = errors.New("upload storage failure")
