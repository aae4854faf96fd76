package exif

import "fmt"

// GPS Info IFD tags (EXIF 2.3, section 4.6.6).
const (
	TagGPSVersionID         uint16 = 0x0000
	TagGPSLatitudeRef       uint16 = 0x0001
	TagGPSLatitude          uint16 = 0x0002
	TagGPSLongitudeRef      uint16 = 0x0003
	TagGPSLongitude         uint16 = 0x0004
	TagGPSAltitudeRef       uint16 = 0x0005
	TagGPSAltitude          uint16 = 0x0006
	TagGPSTimeStamp         uint16 = 0x0007
	TagGPSSatellites        uint16 = 0x0008
	TagGPSStatus            uint16 = 0x0009
	TagGPSMeasureMode       uint16 = 0x000A
	TagGPSDOP               uint16 = 0x000B
	TagGPSSpeedRef          uint16 = 0x000C
	TagGPSSpeed             uint16 = 0x000D
	TagGPSTrackRef          uint16 = 0x000E
	TagGPSTrack             uint16 = 0x000F
	TagGPSImgDirectionRef   uint16 = 0x0010
	TagGPSImgDirection      uint16 = 0x0011
	TagGPSMapDatum          uint16 = 0x0012
	TagGPSDestLatitudeRef   uint16 = 0x0013
	TagGPSDestLatitude      uint16 = 0x0014
	TagGPSDestLongitudeRef  uint16 = 0x0015
	TagGPSDestLongitude     uint16 = 0x0016
	TagGPSDestBearingRef    uint16 = 0x0017
	TagGPSDestBearing       uint16 = 0x0018
	TagGPSDestDistanceRef   uint16 = 0x0019
	TagGPSDestDistance      uint16 = 0x001A
	TagGPSProcessingMethod  uint16 = 0x001B
	TagGPSAreaInformation   uint16 = 0x001C
	TagGPSDateStamp         uint16 = 0x001D
	TagGPSDifferential      uint16 = 0x001E
	TagGPSHPositioningError uint16 = 0x001F
)

// Commonly displayed IFD0 / Exif tags.
const (
	TagImageDescription uint16 = 0x010E
	TagMake             uint16 = 0x010F
	TagModel            uint16 = 0x0110
	TagOrientation      uint16 = 0x0112
	TagSoftware         uint16 = 0x0131
	TagDateTime         uint16 = 0x0132
	TagArtist           uint16 = 0x013B
	TagCopyright        uint16 = 0x8298
	TagExposureTime     uint16 = 0x829A
	TagFNumber          uint16 = 0x829D
	TagISOSpeedRatings  uint16 = 0x8827
	TagDateTimeOriginal uint16 = 0x9003
	TagFocalLength      uint16 = 0x920A
	TagLensModel        uint16 = 0xA434
)

// tagSpec is the mandated type and component count of a tag. count 0 means
// any count.
type tagSpec struct {
	name  string
	typ   Type
	count int
}

var gpsTags = map[uint16]tagSpec{
	TagGPSVersionID:         {"GPSVersionID", TypeByte, 4},
	TagGPSLatitudeRef:       {"GPSLatitudeRef", TypeASCII, 2},
	TagGPSLatitude:          {"GPSLatitude", TypeRational, 3},
	TagGPSLongitudeRef:      {"GPSLongitudeRef", TypeASCII, 2},
	TagGPSLongitude:         {"GPSLongitude", TypeRational, 3},
	TagGPSAltitudeRef:       {"GPSAltitudeRef", TypeByte, 1},
	TagGPSAltitude:          {"GPSAltitude", TypeRational, 1},
	TagGPSTimeStamp:         {"GPSTimeStamp", TypeRational, 3},
	TagGPSSatellites:        {"GPSSatellites", TypeASCII, 0},
	TagGPSStatus:            {"GPSStatus", TypeASCII, 2},
	TagGPSMeasureMode:       {"GPSMeasureMode", TypeASCII, 2},
	TagGPSDOP:               {"GPSDOP", TypeRational, 1},
	TagGPSSpeedRef:          {"GPSSpeedRef", TypeASCII, 2},
	TagGPSSpeed:             {"GPSSpeed", TypeRational, 1},
	TagGPSTrackRef:          {"GPSTrackRef", TypeASCII, 2},
	TagGPSTrack:             {"GPSTrack", TypeRational, 1},
	TagGPSImgDirectionRef:   {"GPSImgDirectionRef", TypeASCII, 2},
	TagGPSImgDirection:      {"GPSImgDirection", TypeRational, 1},
	TagGPSMapDatum:          {"GPSMapDatum", TypeASCII, 0},
	TagGPSDestLatitudeRef:   {"GPSDestLatitudeRef", TypeASCII, 2},
	TagGPSDestLatitude:      {"GPSDestLatitude", TypeRational, 3},
	TagGPSDestLongitudeRef:  {"GPSDestLongitudeRef", TypeASCII, 2},
	TagGPSDestLongitude:     {"GPSDestLongitude", TypeRational, 3},
	TagGPSDestBearingRef:    {"GPSDestBearingRef", TypeASCII, 2},
	TagGPSDestBearing:       {"GPSDestBearing", TypeRational, 1},
	TagGPSDestDistanceRef:   {"GPSDestDistanceRef", TypeASCII, 2},
	TagGPSDestDistance:      {"GPSDestDistance", TypeRational, 1},
	TagGPSProcessingMethod:  {"GPSProcessingMethod", TypeUndefined, 0},
	TagGPSAreaInformation:   {"GPSAreaInformation", TypeUndefined, 0},
	TagGPSDateStamp:         {"GPSDateStamp", TypeASCII, 11},
	TagGPSDifferential:      {"GPSDifferential", TypeShort, 1},
	TagGPSHPositioningError: {"GPSHPositioningError", TypeRational, 1},
}

var imageTags = map[uint16]string{
	0x0100:              "ImageWidth",
	0x0101:              "ImageLength",
	0x0103:              "Compression",
	TagImageDescription: "ImageDescription",
	TagMake:             "Make",
	TagModel:            "Model",
	TagOrientation:      "Orientation",
	0x011A:              "XResolution",
	0x011B:              "YResolution",
	0x0128:              "ResolutionUnit",
	TagSoftware:         "Software",
	TagDateTime:         "DateTime",
	TagArtist:           "Artist",
	0x0213:              "YCbCrPositioning",
	TagCopyright:        "Copyright",
}

var exifTags = map[uint16]string{
	TagExposureTime:     "ExposureTime",
	TagFNumber:          "FNumber",
	0x8822:              "ExposureProgram",
	TagISOSpeedRatings:  "ISOSpeedRatings",
	0x9000:              "ExifVersion",
	TagDateTimeOriginal: "DateTimeOriginal",
	0x9004:              "DateTimeDigitized",
	0x9201:              "ShutterSpeedValue",
	0x9202:              "ApertureValue",
	0x9207:              "MeteringMode",
	0x9209:              "Flash",
	TagFocalLength:      "FocalLength",
	0x927C:              "MakerNote",
	0x9286:              "UserComment",
	0xA001:              "ColorSpace",
	0xA002:              "PixelXDimension",
	0xA003:              "PixelYDimension",
	0xA433:              "LensMake",
	TagLensModel:        "LensModel",
}

var interopTags = map[uint16]string{
	0x0001: "InteroperabilityIndex",
	0x0002: "InteroperabilityVersion",
}

// TagName returns the conventional name of tag within kind, or its hex form.
func TagName(k Kind, tag uint16) string {
	var name string
	switch k {
	case Primary, Thumbnail:
		name = imageTags[tag]
	case ExifKind:
		name = exifTags[tag]
	case Interop:
		name = interopTags[tag]
	case GPS:
		name = gpsTags[tag].name
	}
	if name == "" {
		return fmt.Sprintf("0x%04X", tag)
	}
	return name
}

// checkGPSValue verifies a GPS tag carries the type and count EXIF mandates.
// Tags outside the table are accepted as long as their type is encodable.
func checkGPSValue(tag uint16, v Value) error {
	spec, ok := gpsTags[tag]
	if !ok {
		return nil
	}
	if v.Type != spec.typ {
		return fmt.Errorf("%w: %s must be %s, got %s", ErrUnsupportedTag, spec.name, spec.typ, v.Type)
	}
	if spec.count > 0 && v.Count() != spec.count {
		return fmt.Errorf("%w: %s must have %d components, got %d", ErrUnsupportedTag, spec.name, spec.count, v.Count())
	}
	return nil
}
