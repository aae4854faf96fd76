package exif

import (
	"encoding/binary"
	"sort"
)

// Kind identifies one of the directories an EXIF block can carry.
type Kind int

const (
	Primary   Kind = iota // IFD0
	ExifKind              // Exif sub-IFD (0x8769)
	Interop               // interoperability IFD (0xA005, hangs off the Exif IFD)
	GPS                   // GPS Info IFD (0x8825)
	Thumbnail             // IFD1
)

// kinds lists every Kind in serialization order.
var kinds = []Kind{Primary, ExifKind, Interop, GPS, Thumbnail}

func (k Kind) String() string {
	switch k {
	case Primary:
		return "IFD0"
	case ExifKind:
		return "Exif"
	case Interop:
		return "Interop"
	case GPS:
		return "GPS"
	case Thumbnail:
		return "IFD1"
	}
	return "unknown"
}

// Structural tags. They are never stored in an IFD: the parser follows them
// and the serializer regenerates them from the directory layout.
const (
	TagExifIFDPointer     uint16 = 0x8769
	TagGPSIFDPointer      uint16 = 0x8825
	TagInteropIFDPointer  uint16 = 0xA005
	TagJPEGInterchange    uint16 = 0x0201
	TagJPEGInterchangeLen uint16 = 0x0202
)

func isStructural(tag uint16) bool {
	switch tag {
	case TagExifIFDPointer, TagGPSIFDPointer, TagInteropIFDPointer, TagJPEGInterchange, TagJPEGInterchangeLen:
		return true
	}
	return false
}

// IFD is a set of tagged values keyed by tag identifier.
type IFD struct {
	entries map[uint16]Value
}

// NewIFD returns an empty IFD.
func NewIFD() *IFD {
	return &IFD{entries: map[uint16]Value{}}
}

// Set stores v under tag, replacing any previous value.
func (d *IFD) Set(tag uint16, v Value) {
	if d.entries == nil {
		d.entries = map[uint16]Value{}
	}
	d.entries[tag] = v
}

// Get returns the value stored under tag.
func (d *IFD) Get(tag uint16) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.entries[tag]
	return v, ok
}

// Delete removes tag if present.
func (d *IFD) Delete(tag uint16) {
	if d != nil {
		delete(d.entries, tag)
	}
}

// Len reports the number of stored tags.
func (d *IFD) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Tags returns the stored tags in ascending order.
func (d *IFD) Tags() []uint16 {
	if d == nil {
		return nil
	}
	tags := make([]uint16, 0, len(d.entries))
	for t := range d.entries {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Directory is a parsed (or to-be-serialized) EXIF block.
type Directory struct {
	// Order is the byte order of the TIFF structure. Serialize uses
	// big-endian when it is nil.
	Order binary.ByteOrder
	IFDs  map[Kind]*IFD
	// Thumbnail holds the JPEG thumbnail referenced by IFD1, if any.
	Thumbnail []byte
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{IFDs: map[Kind]*IFD{}}
}

// IFD returns the directory of kind k, creating it when absent.
func (d *Directory) IFD(k Kind) *IFD {
	if d.IFDs == nil {
		d.IFDs = map[Kind]*IFD{}
	}
	ifd, ok := d.IFDs[k]
	if !ok {
		ifd = NewIFD()
		d.IFDs[k] = ifd
	}
	return ifd
}

// Lookup returns the directory of kind k without creating it.
func (d *Directory) Lookup(k Kind) (*IFD, bool) {
	ifd, ok := d.IFDs[k]
	return ifd, ok && ifd.Len() > 0
}

// SetGPS replaces the GPS directory wholesale with the tags of info.
func (d *Directory) SetGPS(info GPSInfo) error {
	ifd, err := info.IFD()
	if err != nil {
		return err
	}
	if d.IFDs == nil {
		d.IFDs = map[Kind]*IFD{}
	}
	d.IFDs[GPS] = ifd
	return nil
}

// ClearGPS drops the GPS directory.
func (d *Directory) ClearGPS() {
	delete(d.IFDs, GPS)
}

// Empty reports whether no directory holds any tag.
func (d *Directory) Empty() bool {
	for _, ifd := range d.IFDs {
		if ifd.Len() > 0 {
			return false
		}
	}
	return len(d.Thumbnail) == 0
}
