package geotag

import (
	"fmt"
	"time"

	"github.com/Fepozopo/exifgps/pkg/exif"
	"github.com/Fepozopo/exifgps/pkg/gps"
)

// Report is a typed summary of an image's EXIF metadata.
type Report struct {
	HasExif          bool         `json:"has_exif"`
	ByteOrder        string       `json:"byte_order,omitempty"`
	Make             string       `json:"make,omitempty"`
	Model            string       `json:"model,omitempty"`
	Software         string       `json:"software,omitempty"`
	Orientation      int          `json:"orientation,omitempty"`
	DateTime         string       `json:"datetime,omitempty"`
	DateTimeOriginal string       `json:"datetime_original,omitempty"`
	ExposureTime     string       `json:"exposure_time,omitempty"` // original "num/den"
	Exposure         float64      `json:"exposure,omitempty"`      // seconds
	FNumber          float64      `json:"f_number,omitempty"`
	ISOSpeed         int          `json:"iso,omitempty"`
	FocalLength      float64      `json:"focal_length_mm,omitempty"`
	LensModel        string       `json:"lens_model,omitempty"`
	ThumbnailBytes   int          `json:"thumbnail_bytes,omitempty"`
	GPS              *GPSData     `json:"gps,omitempty"`
	Tags             []TagEntry   `json:"tags,omitempty"`
	Segments         []SegmentRef `json:"segments,omitempty"`
}

// GPSData holds decoded GPS coordinates and the optional GPS fields.
type GPSData struct {
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lon"`
	LatRef       string    `json:"lat_ref"`
	LonRef       string    `json:"lon_ref"`
	LatitudeDMS  string    `json:"lat_dms"`
	LongitudeDMS string    `json:"lon_dms"`
	Altitude     float64   `json:"altitude,omitempty"`
	AltitudeRef  int       `json:"alt_ref,omitempty"`
	GPSTimeStamp string    `json:"gps_time_stamp,omitempty"`
	GPSDateStamp string    `json:"gps_date_stamp,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
	MapDatum     string    `json:"map_datum,omitempty"`
}

// TagEntry is one stored tag in display form.
type TagEntry struct {
	IFD   string `json:"ifd"`
	Tag   string `json:"tag"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
	Value string `json:"value"`
}

// SegmentRef locates one JPEG marker segment.
type SegmentRef struct {
	Marker string `json:"marker"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Exif   bool   `json:"exif,omitempty"`
}

// maxValueLen truncates long values (MakerNote, UserComment) in reports.
const maxValueLen = 64

// Inspect parses image and summarises its EXIF metadata. A GPS directory
// whose position cannot be decoded is reported through its raw tags only.
func Inspect(image []byte) (Report, error) {
	segs, err := exif.Segments(image)
	if err != nil {
		return Report{}, err
	}
	d, err := exif.Parse(image)
	if err != nil {
		return Report{}, err
	}
	r := Report{HasExif: !d.Empty(), ThumbnailBytes: len(d.Thumbnail)}
	for _, s := range segs {
		r.Segments = append(r.Segments, SegmentRef{
			Marker: fmt.Sprintf("FF%02X", s.Marker),
			Offset: s.Offset,
			Length: s.Length,
			Exif:   s.IsExif(image),
		})
	}
	if !r.HasExif {
		return r, nil
	}
	if d.Order != nil && d.Order.Uint16([]byte{1, 0}) == 1 {
		r.ByteOrder = "II"
	} else if d.Order != nil {
		r.ByteOrder = "MM"
	}

	ifd0 := d.IFD(exif.Primary)
	r.Make = ascii(ifd0, exif.TagMake)
	r.Model = ascii(ifd0, exif.TagModel)
	r.Software = ascii(ifd0, exif.TagSoftware)
	r.DateTime = ascii(ifd0, exif.TagDateTime)
	r.Orientation = integer(ifd0, exif.TagOrientation)

	sub := d.IFD(exif.ExifKind)
	if v, ok := sub.Get(exif.TagExposureTime); ok && len(v.Rationals) > 0 {
		r.ExposureTime = v.Rationals[0].String()
		r.Exposure = v.Rationals[0].Float64()
	}
	r.FNumber = rational(sub, exif.TagFNumber)
	r.FocalLength = rational(sub, exif.TagFocalLength)
	r.ISOSpeed = integer(sub, exif.TagISOSpeedRatings)
	r.DateTimeOriginal = ascii(sub, exif.TagDateTimeOriginal)
	r.LensModel = ascii(sub, exif.TagLensModel)

	if info, ok, err := d.GPS(); err == nil && ok {
		r.GPS = gpsData(info)
	}

	for _, k := range []exif.Kind{exif.Primary, exif.ExifKind, exif.Interop, exif.GPS, exif.Thumbnail} {
		ifd, ok := d.Lookup(k)
		if !ok {
			continue
		}
		for _, tag := range ifd.Tags() {
			v, _ := ifd.Get(tag)
			val := v.String()
			if len(val) > maxValueLen {
				val = val[:maxValueLen] + "..."
			}
			r.Tags = append(r.Tags, TagEntry{
				IFD:   k.String(),
				Tag:   fmt.Sprintf("0x%04X", tag),
				Name:  exif.TagName(k, tag),
				Type:  v.Type.String(),
				Count: v.Count(),
				Value: val,
			})
		}
	}
	return r, nil
}

func gpsData(info exif.GPSInfo) *GPSData {
	lat, lon, err := gps.DecodePoint(info)
	if err != nil {
		return nil
	}
	g := &GPSData{
		Latitude:     lat,
		Longitude:    lon,
		LatRef:       info.LatitudeRef,
		LonRef:       info.LongitudeRef,
		LatitudeDMS:  FormatDMS(info.Latitude, info.LatitudeRef),
		LongitudeDMS: FormatDMS(info.Longitude, info.LongitudeRef),
		GPSDateStamp: info.DateStamp,
		MapDatum:     info.MapDatum,
	}
	if info.Altitude != nil {
		g.Altitude = info.Altitude.Float64()
		if info.AltitudeRef != nil {
			g.AltitudeRef = int(*info.AltitudeRef)
			if g.AltitudeRef == 1 {
				g.Altitude = -g.Altitude
			}
		}
	}
	if ts := info.TimeStamp; ts != nil {
		g.GPSTimeStamp = fmt.Sprintf("%s,%s,%s", ts[0], ts[1], ts[2])
		if day, err := time.Parse("2006:01:02", info.DateStamp); err == nil {
			secs := ts[0].Float64()*3600 + ts[1].Float64()*60 + ts[2].Float64()
			g.Timestamp = day.Add(time.Duration(secs * float64(time.Second)))
		}
	}
	return g
}

// FormatDMS renders a stored coordinate triple, e.g. 41°2'34.247400"N.
func FormatDMS(r [3]exif.Rational, ref string) string {
	d := gps.DMS{Degrees: r[0], Minutes: r[1], Seconds: r[2]}
	if ref != "" {
		d.Ref = ref[0]
	}
	return d.String()
}

// HasGPS reports whether the report contains GPS coordinates.
func (r Report) HasGPS() bool {
	return r.GPS != nil
}

// GPSLatLong returns the GPS latitude and longitude if present.
func (r Report) GPSLatLong() (lat, lon float64, ok bool) {
	if r.GPS == nil {
		return 0, 0, false
	}
	return r.GPS.Latitude, r.GPS.Longitude, true
}

func ascii(ifd *exif.IFD, tag uint16) string {
	if v, ok := ifd.Get(tag); ok && v.Type == exif.TypeASCII {
		return v.ASCII
	}
	return ""
}

func integer(ifd *exif.IFD, tag uint16) int {
	v, ok := ifd.Get(tag)
	if !ok {
		return 0
	}
	switch {
	case len(v.Shorts) > 0:
		return int(v.Shorts[0])
	case len(v.Longs) > 0:
		return int(v.Longs[0])
	}
	return 0
}

func rational(ifd *exif.IFD, tag uint16) float64 {
	if v, ok := ifd.Get(tag); ok && len(v.Rationals) > 0 {
		return v.Rationals[0].Float64()
	}
	return 0
}
