// Package gps converts decimal-degree coordinates to and from the
// degrees/minutes/seconds rationals stored in the EXIF GPS directory.
package gps

import (
	"errors"
	"fmt"
	"math"

	"github.com/Fepozopo/exifgps/pkg/exif"
)

var (
	ErrOutOfRange       = errors.New("gps: coordinate out of range")
	ErrInvalidReference = errors.New("gps: invalid hemisphere reference")
	ErrInvalidRational  = errors.New("gps: invalid rational")
)

// SecondsDenominator fixes the precision of encoded seconds at one
// millionth of an arc-second.
const SecondsDenominator = 1000000

// Axis selects latitude or longitude semantics.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

func (a Axis) String() string {
	if a == Latitude {
		return "latitude"
	}
	return "longitude"
}

// limit is the largest magnitude allowed on the axis.
func (a Axis) limit() float64 {
	if a == Latitude {
		return 90
	}
	return 180
}

// refs returns the positive and negative hemisphere letters.
func (a Axis) refs() (pos, neg byte) {
	if a == Latitude {
		return 'N', 'S'
	}
	return 'E', 'W'
}

// DMS is one coordinate as stored in EXIF: three rationals plus a
// hemisphere reference letter.
type DMS struct {
	Degrees exif.Rational
	Minutes exif.Rational
	Seconds exif.Rational
	Ref     byte
}

// Rationals returns the triple in tag order.
func (d DMS) Rationals() [3]exif.Rational {
	return [3]exif.Rational{d.Degrees, d.Minutes, d.Seconds}
}

func (d DMS) String() string {
	return fmt.Sprintf("%d°%d'%.6f\"%c", d.Degrees.Numerator, d.Minutes.Numerator, d.Seconds.Float64(), d.Ref)
}

// Encode converts deg on the given axis to DMS. Zero, including negative
// zero, is reported as N or E. Seconds are truncated, never rounded, to
// SecondsDenominator.
func Encode(axis Axis, deg float64) (DMS, error) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) || math.Abs(deg) > axis.limit() {
		return DMS{}, fmt.Errorf("%w: %s %v", ErrOutOfRange, axis, deg)
	}
	pos, neg := axis.refs()
	ref := pos
	if deg < 0 {
		ref = neg
	}
	m := math.Abs(deg)
	d := math.Floor(m)
	minutes := (m - d) * 60
	mi := math.Floor(minutes)
	seconds := math.Floor((minutes - mi) * 60 * SecondsDenominator)
	return DMS{
		Degrees: exif.Rational{Numerator: uint32(d), Denominator: 1},
		Minutes: exif.Rational{Numerator: uint32(mi), Denominator: 1},
		Seconds: exif.Rational{Numerator: uint32(seconds), Denominator: SecondsDenominator},
		Ref:     ref,
	}, nil
}

// Decode converts dms back to signed decimal degrees.
func Decode(dms DMS) (float64, error) {
	var sign float64
	switch dms.Ref {
	case 'N', 'E':
		sign = 1
	case 'S', 'W':
		sign = -1
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, dms.Ref)
	}
	for _, r := range dms.Rationals() {
		if r.Denominator == 0 {
			return 0, fmt.Errorf("%w: %d/0", ErrInvalidRational, r.Numerator)
		}
	}
	v := dms.Degrees.Float64() + dms.Minutes.Float64()/60 + dms.Seconds.Float64()/3600
	return sign * v, nil
}

// EncodePoint encodes a latitude/longitude pair into the GPS fields of an
// EXIF directory.
func EncodePoint(lat, lon float64) (exif.GPSInfo, error) {
	la, err := Encode(Latitude, lat)
	if err != nil {
		return exif.GPSInfo{}, err
	}
	lo, err := Encode(Longitude, lon)
	if err != nil {
		return exif.GPSInfo{}, err
	}
	return exif.GPSInfo{
		VersionID:    exif.DefaultGPSVersion,
		LatitudeRef:  string(la.Ref),
		Latitude:     la.Rationals(),
		LongitudeRef: string(lo.Ref),
		Longitude:    lo.Rationals(),
	}, nil
}

// DecodePoint reads the latitude/longitude pair out of info.
func DecodePoint(info exif.GPSInfo) (lat, lon float64, err error) {
	if lat, err = decodeAxis(Latitude, info.LatitudeRef, info.Latitude); err != nil {
		return 0, 0, err
	}
	if lon, err = decodeAxis(Longitude, info.LongitudeRef, info.Longitude); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func decodeAxis(axis Axis, ref string, r [3]exif.Rational) (float64, error) {
	pos, neg := axis.refs()
	if len(ref) != 1 || (ref[0] != pos && ref[0] != neg) {
		return 0, fmt.Errorf("%w: %s reference %q", ErrInvalidReference, axis, ref)
	}
	v, err := Decode(DMS{Degrees: r[0], Minutes: r[1], Seconds: r[2], Ref: ref[0]})
	if err != nil {
		return 0, err
	}
	if math.Abs(v) > axis.limit() {
		return 0, fmt.Errorf("%w: %s %v", ErrOutOfRange, axis, v)
	}
	return v, nil
}
