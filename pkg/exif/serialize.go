package exif

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Serialize encodes d as an EXIF APP1 payload ("Exif\0\0" followed by a TIFF
// structure). Directories are written in the order IFD0, Exif, Interop, GPS,
// IFD1 with tags ascending inside each, so equal directories always produce
// identical bytes. A nil Order selects big-endian.
func Serialize(d *Directory) ([]byte, error) {
	order := d.Order
	if order == nil {
		order = binary.BigEndian
	}

	present := func(k Kind) bool { return d.IFDs[k].Len() > 0 }
	include := map[Kind]bool{
		Primary:   true,
		Interop:   present(Interop),
		GPS:       present(GPS),
		Thumbnail: present(Thumbnail) || len(d.Thumbnail) > 0,
	}
	include[ExifKind] = present(ExifKind) || include[Interop]

	var blocks []*block
	byKind := map[Kind]*block{}
	for _, k := range kinds {
		if !include[k] {
			continue
		}
		b, err := newBlock(k, d.IFDs[k], order)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		byKind[k] = b
	}

	// Pointer entries are added before sizes are known; their values are
	// filled once every block has an offset.
	if include[ExifKind] {
		byKind[Primary].addPointer(TagExifIFDPointer)
	}
	if include[GPS] {
		byKind[Primary].addPointer(TagGPSIFDPointer)
	}
	if include[Interop] {
		byKind[ExifKind].addPointer(TagInteropIFDPointer)
	}
	if len(d.Thumbnail) > 0 {
		byKind[Thumbnail].addPointer(TagJPEGInterchange)
		byKind[Thumbnail].addPointer(TagJPEGInterchangeLen)
	}

	offset := tiffHeaderSize
	for _, b := range blocks {
		b.offset = offset
		offset += b.size()
	}
	thumbOffset := offset
	total := offset + len(d.Thumbnail)
	if len(exifHeader)+total > MaxSegmentPayload {
		return nil, fmt.Errorf("%w: EXIF segment would be %d bytes, limit %d", ErrValueTooLarge, len(exifHeader)+total, MaxSegmentPayload)
	}

	targets := map[uint16]uint32{
		TagJPEGInterchange:    uint32(thumbOffset),
		TagJPEGInterchangeLen: uint32(len(d.Thumbnail)),
	}
	if b := byKind[ExifKind]; b != nil {
		targets[TagExifIFDPointer] = uint32(b.offset)
	}
	if b := byKind[GPS]; b != nil {
		targets[TagGPSIFDPointer] = uint32(b.offset)
	}
	if b := byKind[Interop]; b != nil {
		targets[TagInteropIFDPointer] = uint32(b.offset)
	}
	var next uint32
	if b := byKind[Thumbnail]; b != nil {
		next = uint32(b.offset)
	}

	out := make([]byte, len(exifHeader)+total)
	copy(out, exifHeader)
	tiff := out[len(exifHeader):]
	if order.Uint16([]byte{1, 0}) == 1 {
		copy(tiff, "II")
	} else {
		copy(tiff, "MM")
	}
	order.PutUint16(tiff[2:], tiffMagic)
	order.PutUint32(tiff[4:], tiffHeaderSize)

	for _, b := range blocks {
		link := uint32(0)
		if b.kind == Primary {
			link = next
		}
		b.write(tiff, order, targets, link)
	}
	copy(tiff[thumbOffset:], d.Thumbnail)
	return out, nil
}

type entry struct {
	tag     uint16
	typ     Type
	count   uint32
	data    []byte
	pointer bool
}

type block struct {
	kind    Kind
	entries []entry
	offset  int
}

func newBlock(k Kind, ifd *IFD, order binary.ByteOrder) (*block, error) {
	b := &block{kind: k}
	for _, tag := range ifd.Tags() {
		if isStructural(tag) {
			continue
		}
		v, _ := ifd.Get(tag)
		if k == GPS {
			if err := checkGPSValue(tag, v); err != nil {
				return nil, err
			}
		}
		data, err := v.encode(order)
		if err != nil {
			return nil, fmt.Errorf("%s tag 0x%04X: %w", k, tag, err)
		}
		b.entries = append(b.entries, entry{tag: tag, typ: v.Type, count: uint32(v.Count()), data: data})
	}
	return b, nil
}

func (b *block) addPointer(tag uint16) {
	b.entries = append(b.entries, entry{tag: tag, typ: TypeLong, count: 1, pointer: true})
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].tag < b.entries[j].tag })
}

// size is the entry table, the next-IFD link and the word-aligned overflow.
func (b *block) size() int {
	n := 2 + len(b.entries)*entrySize + 4
	for _, e := range b.entries {
		if len(e.data) > 4 {
			n += align(len(e.data))
		}
	}
	return n
}

func (b *block) write(tiff []byte, order binary.ByteOrder, targets map[uint16]uint32, next uint32) {
	pos := b.offset
	order.PutUint16(tiff[pos:], uint16(len(b.entries)))
	pos += 2
	overflow := pos + len(b.entries)*entrySize + 4
	for _, e := range b.entries {
		order.PutUint16(tiff[pos:], e.tag)
		order.PutUint16(tiff[pos+2:], uint16(e.typ))
		order.PutUint32(tiff[pos+4:], e.count)
		switch {
		case e.pointer:
			order.PutUint32(tiff[pos+8:], targets[e.tag])
		case len(e.data) <= 4:
			copy(tiff[pos+8:pos+12], e.data)
		default:
			order.PutUint32(tiff[pos+8:], uint32(overflow))
			copy(tiff[overflow:], e.data)
			overflow += align(len(e.data))
		}
		pos += entrySize
	}
	order.PutUint32(tiff[pos:], next)
}

func align(n int) int {
	return n + n&1
}
