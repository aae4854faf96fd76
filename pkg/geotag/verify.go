package geotag

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// ErrVerifyMismatch means an independent EXIF reader disagrees with ours.
var ErrVerifyMismatch = errors.New("geotag: independent reader disagrees")

// verifyTolerance is the allowed difference in degrees between readers.
const verifyTolerance = 1e-6

// Verify decodes image with github.com/rwcarlsen/goexif and checks that it
// sees the same GPS position Locate does.
func Verify(image []byte) error {
	lat, lon, err := Locate(image)
	if err != nil {
		return err
	}
	x, err := goexif.Decode(bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("%w: goexif decode: %v", ErrVerifyMismatch, err)
	}
	glat, glon, err := x.LatLong()
	if err != nil {
		return fmt.Errorf("%w: goexif position: %v", ErrVerifyMismatch, err)
	}
	if math.Abs(glat-lat) > verifyTolerance || math.Abs(glon-lon) > verifyTolerance {
		return fmt.Errorf("%w: goexif reads (%.7f, %.7f), we read (%.7f, %.7f)", ErrVerifyMismatch, glat, glon, lat, lon)
	}
	return nil
}
