package exif

import "errors"

// Error kinds returned by the codec. Callers match them with errors.Is; the
// wrapped message carries the detail (offset, tag, marker).
var (
	// ErrInvalidContainer means the bytes are not a recognisable JPEG stream.
	ErrInvalidContainer = errors.New("exif: invalid JPEG container")
	// ErrMalformedSegment means an EXIF segment is present but inconsistent.
	ErrMalformedSegment = errors.New("exif: malformed EXIF segment")
	// ErrUnsupportedTag means a value cannot be represented for its tag.
	ErrUnsupportedTag = errors.New("exif: unsupported tag value")
	// ErrValueTooLarge means a value or the whole segment exceeds format limits.
	ErrValueTooLarge = errors.New("exif: value too large")
)
