package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	tiffHeaderSize = 8
	tiffMagic      = 0x002A
	entrySize      = 12
)

// Parse reads the EXIF directory of a JPEG. An image without an EXIF APP1
// segment yields an empty directory and no error.
func Parse(image []byte) (*Directory, error) {
	payload, err := findExif(image)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return NewDirectory(), nil
	}
	return ParseSegment(payload)
}

// ParseSegment reads an EXIF APP1 payload ("Exif\0\0" followed by a TIFF
// structure).
func ParseSegment(payload []byte) (*Directory, error) {
	if !bytes.HasPrefix(payload, exifHeader) {
		return nil, fmt.Errorf("%w: missing Exif signature", ErrMalformedSegment)
	}
	tiff := payload[len(exifHeader):]
	if len(tiff) < tiffHeaderSize {
		return nil, fmt.Errorf("%w: TIFF header truncated", ErrMalformedSegment)
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: unknown byte order %q", ErrMalformedSegment, tiff[:2])
	}
	if magic := order.Uint16(tiff[2:]); magic != tiffMagic {
		return nil, fmt.Errorf("%w: bad TIFF magic 0x%04X", ErrMalformedSegment, magic)
	}

	p := &parser{tiff: tiff, order: order, seen: map[uint32]bool{}}
	d := NewDirectory()
	d.Order = order

	ifd0, err := p.readIFD(order.Uint32(tiff[4:]), Primary)
	if err != nil {
		return nil, err
	}
	d.IFDs[Primary] = ifd0.ifd

	if off, ok := ifd0.pointers[TagExifIFDPointer]; ok {
		sub, err := p.readIFD(off, ExifKind)
		if err != nil {
			return nil, err
		}
		d.IFDs[ExifKind] = sub.ifd
		if off, ok := sub.pointers[TagInteropIFDPointer]; ok {
			interop, err := p.readIFD(off, Interop)
			if err != nil {
				return nil, err
			}
			d.IFDs[Interop] = interop.ifd
		}
	}
	if off, ok := ifd0.pointers[TagGPSIFDPointer]; ok {
		gps, err := p.readIFD(off, GPS)
		if err != nil {
			return nil, err
		}
		d.IFDs[GPS] = gps.ifd
	}
	if ifd0.next != 0 {
		ifd1, err := p.readIFD(ifd0.next, Thumbnail)
		if err != nil {
			return nil, err
		}
		d.IFDs[Thumbnail] = ifd1.ifd
		start, hasStart := ifd1.pointers[TagJPEGInterchange]
		length, hasLength := ifd1.pointers[TagJPEGInterchangeLen]
		if hasStart && hasLength {
			if uint64(start)+uint64(length) > uint64(len(tiff)) {
				return nil, fmt.Errorf("%w: thumbnail at %d+%d exceeds TIFF block of %d bytes", ErrMalformedSegment, start, length, len(tiff))
			}
			d.Thumbnail = append([]byte{}, tiff[start:start+length]...)
		}
	}
	return d, nil
}

type parser struct {
	tiff  []byte
	order binary.ByteOrder
	seen  map[uint32]bool
}

type rawIFD struct {
	ifd      *IFD
	pointers map[uint16]uint32
	next     uint32
}

// pointerTags lists, per directory kind, the structural tags whose value the
// parser follows instead of storing.
var pointerTags = map[Kind][]uint16{
	Primary:   {TagExifIFDPointer, TagGPSIFDPointer},
	ExifKind:  {TagInteropIFDPointer},
	Thumbnail: {TagJPEGInterchange, TagJPEGInterchangeLen},
}

func (p *parser) readIFD(off uint32, kind Kind) (rawIFD, error) {
	out := rawIFD{ifd: NewIFD(), pointers: map[uint16]uint32{}}
	if p.seen[off] {
		return out, fmt.Errorf("%w: %s IFD at offset %d forms a cycle", ErrMalformedSegment, kind, off)
	}
	p.seen[off] = true
	if uint64(off)+2 > uint64(len(p.tiff)) {
		return out, fmt.Errorf("%w: %s IFD offset %d outside TIFF block", ErrMalformedSegment, kind, off)
	}
	n := int(p.order.Uint16(p.tiff[off:]))
	start := int(off) + 2
	end := start + n*entrySize
	if end > len(p.tiff) {
		return out, fmt.Errorf("%w: %s IFD with %d entries truncated", ErrMalformedSegment, kind, n)
	}
	// Some writers omit the trailing next-IFD link of the last directory.
	if end+4 <= len(p.tiff) {
		out.next = p.order.Uint32(p.tiff[end:])
	}

	for i := 0; i < n; i++ {
		e := p.tiff[start+i*entrySize : start+(i+1)*entrySize]
		tag := p.order.Uint16(e[0:])
		typ := Type(p.order.Uint16(e[2:]))
		count := p.order.Uint32(e[4:])

		if isPointer(kind, tag) {
			out.pointers[tag] = p.order.Uint32(e[8:])
			continue
		}
		if isStructural(tag) {
			continue
		}
		size := typ.Size()
		if size == 0 {
			return out, fmt.Errorf("%w: %s tag 0x%04X has unknown type %d", ErrMalformedSegment, kind, tag, uint16(typ))
		}
		total := uint64(count) * uint64(size)
		var raw []byte
		if total <= 4 {
			raw = e[8 : 8+total]
		} else {
			valOff := uint64(p.order.Uint32(e[8:]))
			if valOff+total > uint64(len(p.tiff)) {
				return out, fmt.Errorf("%w: %s tag 0x%04X value at %d+%d outside TIFF block", ErrMalformedSegment, kind, tag, valOff, total)
			}
			raw = p.tiff[valOff : valOff+total]
		}
		if _, dup := out.ifd.Get(tag); dup {
			continue
		}
		out.ifd.Set(tag, decodeValue(typ, int(count), raw, p.order))
	}

	for tag, off := range out.pointers {
		if off == 0 {
			delete(out.pointers, tag)
		}
	}
	return out, nil
}

func isPointer(kind Kind, tag uint16) bool {
	for _, t := range pointerTags[kind] {
		if t == tag {
			return true
		}
	}
	return false
}
