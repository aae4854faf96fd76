package exif

import (
	"bytes"
	"encoding/binary"
)

// fxEntry is one hand-assembled IFD entry. data holds the raw value bytes in
// the fixture's byte order. target, when non-zero, makes the entry a pointer
// to ifds[target-1]; -1 points at the thumbnail tail.
type fxEntry struct {
	tag    uint16
	typ    uint16
	count  uint32
	data   []byte
	target int
}

// buildTIFF lays ifds out back to back after the header and patches pointer
// entries. link maps an IFD index to the index its next-IFD field names.
func buildTIFF(order binary.ByteOrder, ifds [][]fxEntry, link map[int]int, tail []byte) []byte {
	offsets := make([]uint32, len(ifds))
	off := uint32(8)
	for i, ifd := range ifds {
		offsets[i] = off
		off += uint32(2 + len(ifd)*12 + 4)
		for _, e := range ifd {
			if len(e.data) > 4 {
				off += uint32(len(e.data) + len(e.data)%2)
			}
		}
	}
	tailOffset := off

	var tiff bytes.Buffer
	if order == binary.ByteOrder(binary.LittleEndian) {
		tiff.WriteString("II")
	} else {
		tiff.WriteString("MM")
	}
	binary.Write(&tiff, order, uint16(0x2A))
	binary.Write(&tiff, order, uint32(8))

	for i, ifd := range ifds {
		var overflow bytes.Buffer
		dataStart := offsets[i] + uint32(2+len(ifd)*12+4)
		binary.Write(&tiff, order, uint16(len(ifd)))
		for _, e := range ifd {
			binary.Write(&tiff, order, e.tag)
			binary.Write(&tiff, order, e.typ)
			binary.Write(&tiff, order, e.count)
			switch {
			case e.target > 0:
				binary.Write(&tiff, order, offsets[e.target-1])
			case e.target < 0:
				binary.Write(&tiff, order, tailOffset)
			case len(e.data) <= 4:
				var inline [4]byte
				copy(inline[:], e.data)
				tiff.Write(inline[:])
			default:
				binary.Write(&tiff, order, dataStart+uint32(overflow.Len()))
				overflow.Write(e.data)
				if len(e.data)%2 == 1 {
					overflow.WriteByte(0)
				}
			}
		}
		next := uint32(0)
		if to, ok := link[i]; ok {
			next = offsets[to]
		}
		binary.Write(&tiff, order, next)
		tiff.Write(overflow.Bytes())
	}
	tiff.Write(tail)
	return tiff.Bytes()
}

func u16s(order binary.ByteOrder, vals ...uint16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		order.PutUint16(out[i*2:], v)
	}
	return out
}

func u32s(order binary.ByteOrder, vals ...uint32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		order.PutUint32(out[i*4:], v)
	}
	return out
}

func asciiz(s string) []byte {
	return append([]byte(s), 0)
}

// fixtureThumbnail stands in for an embedded JPEG thumbnail.
var fixtureThumbnail = []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x03, 0x00, 0xFF, 0xD9}

// sampleTIFF builds a camera-like TIFF block: IFD0 with Exif and GPS
// pointers, an Exif IFD with an Interop IFD, a GPS IFD at
// 37°48'30"N 122°24'15"W and an IFD1 carrying a thumbnail.
func sampleTIFF(order binary.ByteOrder) []byte {
	ifds := [][]fxEntry{
		{ // IFD0
			{tag: 0x0112, typ: 3, count: 1, data: u16s(order, 6)},
			{tag: 0x0131, typ: 2, count: 7, data: asciiz("GoTest")},
			{tag: 0x8769, typ: 4, count: 1, target: 2},
			{tag: 0x8825, typ: 4, count: 1, target: 4},
		},
		{ // Exif
			{tag: 0x829A, typ: 5, count: 1, data: u32s(order, 1, 60)},
			{tag: 0x829D, typ: 5, count: 1, data: u32s(order, 5, 1)},
			{tag: 0x8827, typ: 3, count: 1, data: u16s(order, 100)},
			{tag: 0x9003, typ: 2, count: 20, data: asciiz("2020:01:02 03:04:05")},
			{tag: 0x9201, typ: 10, count: 1, data: u32s(order, 0xFFFFFFFA, 1)},
			{tag: 0xA005, typ: 4, count: 1, target: 3},
			{tag: 0xA434, typ: 2, count: 12, data: asciiz("GoLensModel")},
		},
		{ // Interop
			{tag: 0x0001, typ: 2, count: 4, data: asciiz("R98")},
		},
		{ // GPS
			{tag: 0x0000, typ: 1, count: 4, data: []byte{2, 2, 0, 0}},
			{tag: 0x0001, typ: 2, count: 2, data: asciiz("N")},
			{tag: 0x0002, typ: 5, count: 3, data: u32s(order, 37, 1, 48, 1, 30, 1)},
			{tag: 0x0003, typ: 2, count: 2, data: asciiz("W")},
			{tag: 0x0004, typ: 5, count: 3, data: u32s(order, 122, 1, 24, 1, 15, 1)},
			{tag: 0x0005, typ: 1, count: 1, data: []byte{0}},
			{tag: 0x0006, typ: 5, count: 1, data: u32s(order, 100, 1)},
		},
		{ // IFD1
			{tag: 0x0103, typ: 3, count: 1, data: u16s(order, 6)},
			{tag: 0x0201, typ: 4, count: 1, target: -1},
			{tag: 0x0202, typ: 4, count: 1, data: u32s(order, uint32(len(fixtureThumbnail)))},
		},
	}
	return buildTIFF(order, ifds, map[int]int{0: 4}, fixtureThumbnail)
}

func exifPayload(tiff []byte) []byte {
	return append([]byte("Exif\x00\x00"), tiff...)
}

func segment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker}
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	return append(out, payload...)
}

func jfifSegment() []byte {
	return segment(0xE0, []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
}

// scanTail is a single-component SOS header followed by entropy coded bytes
// (with a stuffed 0xFF and a restart marker) and EOI.
var scanTail = []byte{
	0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00,
	0x12, 0x34, 0xFF, 0x00, 0x56, 0xFF, 0xD0, 0x78, 0x9A,
	0xFF, 0xD9,
}

// buildJPEG assembles SOI, the given pre-scan segments and scanTail.
func buildJPEG(segments ...[]byte) []byte {
	out := []byte{0xFF, 0xD8}
	for _, s := range segments {
		out = append(out, s...)
	}
	return append(out, scanTail...)
}
