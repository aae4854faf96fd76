package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// JPEG markers the codec cares about.
const (
	markerSOI  byte = 0xD8
	markerEOI  byte = 0xD9
	markerSOS  byte = 0xDA
	markerAPP0 byte = 0xE0
	markerAPP1 byte = 0xE1
	markerTEM  byte = 0x01
)

// MaxSegmentPayload is the largest APP1 payload a 16-bit segment length can
// describe (65535 minus the two length bytes).
const MaxSegmentPayload = 0xFFFF - 2

// exifHeader prefixes every EXIF APP1 payload.
var exifHeader = []byte("Exif\x00\x00")

// Segment locates one marker segment in a JPEG stream. Offset points at the
// 0xFF of the marker and Length covers the marker, the length field and the
// payload. Standalone markers have Length 2.
type Segment struct {
	Marker byte
	Offset int
	Length int
}

// Payload returns the bytes following the segment's length field.
func (s Segment) Payload(image []byte) []byte {
	if s.Length <= 4 {
		return nil
	}
	return image[s.Offset+4 : s.Offset+s.Length]
}

// IsExif reports whether s is an APP1 segment carrying EXIF data.
func (s Segment) IsExif(image []byte) bool {
	return s.Marker == markerAPP1 && bytes.HasPrefix(s.Payload(image), exifHeader)
}

func (s Segment) String() string {
	return fmt.Sprintf("FF%02X @%d len=%d", s.Marker, s.Offset, s.Length)
}

func isStandalone(m byte) bool {
	return m == markerTEM || (m >= 0xD0 && m <= 0xD7)
}

// Segments walks the marker stream after SOI and returns every segment up to
// and including SOS (or EOI when the stream has no scan). Entropy coded data
// after SOS is not inspected.
func Segments(image []byte) ([]Segment, error) {
	if len(image) < 4 || image[0] != 0xFF || image[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrInvalidContainer)
	}
	var segs []Segment
	i := 2
	for {
		if i >= len(image) {
			return nil, fmt.Errorf("%w: marker stream truncated at offset %d", ErrInvalidContainer, i)
		}
		if image[i] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker at offset %d, found 0x%02X", ErrInvalidContainer, i, image[i])
		}
		// fill bytes
		for i+1 < len(image) && image[i+1] == 0xFF {
			i++
		}
		if i+1 >= len(image) {
			return nil, fmt.Errorf("%w: marker stream truncated at offset %d", ErrInvalidContainer, i)
		}
		marker := image[i+1]
		switch {
		case marker == 0x00 || marker == markerSOI:
			return nil, fmt.Errorf("%w: unexpected marker FF%02X at offset %d", ErrInvalidContainer, marker, i)
		case marker == markerEOI:
			segs = append(segs, Segment{Marker: marker, Offset: i, Length: 2})
			return segs, nil
		case isStandalone(marker):
			segs = append(segs, Segment{Marker: marker, Offset: i, Length: 2})
			i += 2
			continue
		}
		if i+4 > len(image) {
			return nil, fmt.Errorf("%w: segment FF%02X at offset %d truncated", ErrInvalidContainer, marker, i)
		}
		n := int(binary.BigEndian.Uint16(image[i+2:]))
		if n < 2 || i+2+n > len(image) {
			return nil, fmt.Errorf("%w: segment FF%02X at offset %d has bad length %d", ErrInvalidContainer, marker, i, n)
		}
		segs = append(segs, Segment{Marker: marker, Offset: i, Length: 2 + n})
		i += 2 + n
		if marker == markerSOS {
			return segs, nil
		}
	}
}

// findExif returns the first EXIF APP1 payload of image, or nil.
func findExif(image []byte) ([]byte, error) {
	segs, err := Segments(image)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if s.IsExif(image) {
			return s.Payload(image), nil
		}
	}
	return nil, nil
}

// Insert returns a copy of image whose EXIF APP1 segment is segment (an APP1
// payload starting with "Exif\0\0"). The first existing EXIF segment is
// replaced in place and any others are dropped. Without one, the segment goes
// right after SOI, or after a leading JFIF APP0 (and its JFXX extension).
// All other bytes are copied unchanged.
func Insert(image, segment []byte) ([]byte, error) {
	if !bytes.HasPrefix(segment, exifHeader) {
		return nil, fmt.Errorf("%w: segment lacks Exif signature", ErrMalformedSegment)
	}
	if len(segment) > MaxSegmentPayload {
		return nil, fmt.Errorf("%w: segment is %d bytes, limit %d", ErrValueTooLarge, len(segment), MaxSegmentPayload)
	}
	segs, err := Segments(image)
	if err != nil {
		return nil, err
	}

	at := -1 // index of the segment the new one is written before
	for i, s := range segs {
		if s.IsExif(image) {
			at = i
			break
		}
	}
	replace := at >= 0
	if !replace {
		at = 0
		if at < len(segs) && isAPP0(image, segs[at], "JFIF\x00") {
			at++
			if at < len(segs) && isAPP0(image, segs[at], "JFXX\x00") {
				at++
			}
		}
	}

	out := make([]byte, 0, len(image)+len(segment)+4)
	out = append(out, image[:2]...)
	pos := 2
	for i, s := range segs {
		out = append(out, image[pos:s.Offset]...)
		pos = s.Offset + s.Length
		if i == at {
			out = appendAPP1(out, segment)
			if replace {
				continue
			}
		}
		if s.IsExif(image) {
			continue
		}
		out = append(out, image[s.Offset:pos]...)
	}
	return append(out, image[pos:]...), nil
}

// Remove returns a copy of image without any EXIF APP1 segment.
func Remove(image []byte) ([]byte, error) {
	segs, err := Segments(image)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(image))
	out = append(out, image[:2]...)
	pos := 2
	for _, s := range segs {
		out = append(out, image[pos:s.Offset]...)
		pos = s.Offset + s.Length
		if !s.IsExif(image) {
			out = append(out, image[s.Offset:pos]...)
		}
	}
	return append(out, image[pos:]...), nil
}

func isAPP0(image []byte, s Segment, ident string) bool {
	return s.Marker == markerAPP0 && bytes.HasPrefix(s.Payload(image), []byte(ident))
}

func appendAPP1(dst, payload []byte) []byte {
	dst = append(dst, 0xFF, markerAPP1)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)+2))
	return append(dst, payload...)
}
