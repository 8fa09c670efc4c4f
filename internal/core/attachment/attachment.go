// Package attachment loads and validates image attachments for outbound chat
// messages.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxBytes is the largest image the backend accepts
const DefaultMaxBytes = 5 * 1024 * 1024

// Image is a validated attachment
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes
func (i Image) Size() int {
	return len(i.Data)
}

// Label renders the attachment for display, e.g. "scan.png (1.2 MB)"
func (i Image) Label() string {
	return fmt.Sprintf("%s (%s)", i.Name, humanize.Bytes(uint64(len(i.Data))))
}

// ValidationError describes why a file cannot be attached
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that data is an image no larger than maxBytes
func Validate(name string, data []byte, maxBytes int64) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if len(data) == 0 {
		return Image{}, &ValidationError{Name: name, Reason: "file is empty"}
	}
	if int64(len(data)) > maxBytes {
		return Image{}, &ValidationError{
			Name: name,
			Reason: fmt.Sprintf("image is %s, the limit is %s",
				humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(maxBytes))),
		}
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, &ValidationError{
			Name:   name,
			Reason: fmt.Sprintf("only image files can be attached (got %s)", contentType),
		}
	}

	return Image{Name: name, ContentType: contentType, Data: data}, nil
}

// Load reads and validates the file at path. Reading stops one byte past the
// limit so oversized files are rejected without loading them whole.
func Load(path string, maxBytes int64) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Image{}, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		return Image{}, &ValidationError{Name: name, Reason: "is a directory"}
	}
	if info.Size() > maxBytes {
		return Image{}, &ValidationError{
			Name: name,
			Reason: fmt.Sprintf("image is %s, the limit is %s",
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(maxBytes))),
		}
	}

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	return Validate(name, data, maxBytes)
}
