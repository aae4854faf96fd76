package geotag

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DataURIPrefix introduces a base64 JPEG data URI.
const DataURIPrefix = "data:image/jpeg;base64,"

// ErrInvalidDataURI means the input is not a base64 JPEG data URI.
var ErrInvalidDataURI = errors.New("geotag: invalid JPEG data URI")

// EncodeDataURI renders image as a data URI.
func EncodeDataURI(image []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(image)
}

// DecodeDataURI returns the bytes of a data URI produced by EncodeDataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(uri), DataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidDataURI, DataURIPrefix)
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return b, nil
}
