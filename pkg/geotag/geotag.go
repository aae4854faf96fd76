// Package geotag writes, reads and removes the GPS position of JPEG images.
// It composes the exif codec with the gps transcoder and never touches the
// compressed image data.
package geotag

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Fepozopo/exifgps/pkg/exif"
	"github.com/Fepozopo/exifgps/pkg/gps"
)

// ErrNoLocation means the image parsed but carries no GPS position.
var ErrNoLocation = errors.New("geotag: image has no GPS location")

// altitudeDenominator stores altitude in centimetres.
const altitudeDenominator = 100

type options struct {
	altitude *float64
	when     *time.Time
}

// Option adds optional GPS fields to Tag.
type Option func(*options)

// WithAltitude records meters above (positive) or below (negative) sea level.
func WithAltitude(meters float64) Option {
	return func(o *options) { o.altitude = &meters }
}

// WithTime records t (converted to UTC) as GPS date and time stamp.
func WithTime(t time.Time) Option {
	return func(o *options) { o.when = &t }
}

// Point builds the GPS fields for lat/lon plus any options.
func Point(lat, lon float64, opts ...Option) (exif.GPSInfo, error) {
	info, err := gps.EncodePoint(lat, lon)
	if err != nil {
		return exif.GPSInfo{}, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.altitude != nil {
		m := *o.altitude
		if math.IsNaN(m) || math.IsInf(m, 0) || math.Abs(m)*altitudeDenominator > math.MaxUint32 {
			return exif.GPSInfo{}, fmt.Errorf("%w: altitude %v", gps.ErrOutOfRange, m)
		}
		ref := byte(0)
		if m < 0 {
			ref = 1
		}
		info.AltitudeRef = &ref
		info.Altitude = &exif.Rational{
			Numerator:   uint32(math.Round(math.Abs(m) * altitudeDenominator)),
			Denominator: altitudeDenominator,
		}
	}
	if o.when != nil {
		t := o.when.UTC()
		info.TimeStamp = &[3]exif.Rational{
			{Numerator: uint32(t.Hour()), Denominator: 1},
			{Numerator: uint32(t.Minute()), Denominator: 1},
			{Numerator: uint32(t.Second()), Denominator: 1},
		}
		info.DateStamp = t.Format("2006:01:02")
	}
	return info, nil
}

// Tag returns a copy of image whose GPS directory holds lat/lon. Any GPS
// directory already present is replaced wholesale; every other EXIF
// directory is preserved.
func Tag(image []byte, lat, lon float64, opts ...Option) ([]byte, error) {
	info, err := Point(lat, lon, opts...)
	if err != nil {
		return nil, err
	}
	return Write(image, info)
}

// Write stores info as the GPS directory of image.
func Write(image []byte, info exif.GPSInfo) ([]byte, error) {
	d, err := exif.Parse(image)
	if err != nil {
		return nil, err
	}
	if err := d.SetGPS(info); err != nil {
		return nil, err
	}
	seg, err := exif.Serialize(d)
	if err != nil {
		return nil, err
	}
	return exif.Insert(image, seg)
}

// Locate returns the GPS position stored in image.
func Locate(image []byte) (lat, lon float64, err error) {
	d, err := exif.Parse(image)
	if err != nil {
		return 0, 0, err
	}
	info, ok, err := d.GPS()
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, ErrNoLocation
	}
	return gps.DecodePoint(info)
}

// StripGPS returns a copy of image without a GPS directory. When nothing
// else is left in the EXIF segment the segment itself is removed.
func StripGPS(image []byte) ([]byte, error) {
	d, err := exif.Parse(image)
	if err != nil {
		return nil, err
	}
	if _, ok := d.Lookup(exif.GPS); !ok {
		return append([]byte(nil), image...), nil
	}
	d.ClearGPS()
	if d.Empty() {
		return exif.Remove(image)
	}
	seg, err := exif.Serialize(d)
	if err != nil {
		return nil, err
	}
	return exif.Insert(image, seg)
}

// StripAll returns a copy of image without its EXIF segment.
func StripAll(image []byte) ([]byte, error) {
	return exif.Remove(image)
}
