package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func sampleGPSInfo() GPSInfo {
	return GPSInfo{
		LatitudeRef:  "N",
		Latitude:     [3]Rational{{41, 1}, {2, 1}, {34247400, 1000000}},
		LongitudeRef: "E",
		Longitude:    [3]Rational{{29, 1}, {0, 1}, {27101880, 1000000}},
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		img := buildJPEG(jfifSegment(), segment(0xE1, exifPayload(sampleTIFF(order))))
		d, err := Parse(img)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		seg, err := Serialize(d)
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		out, err := Insert(img, seg)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		again, err := Parse(out)
		if err != nil {
			t.Fatalf("re-Parse failed: %v", err)
		}
		if !reflect.DeepEqual(d.IFDs, again.IFDs) {
			t.Fatalf("directories differ after round trip:\n%+v\n%+v", d.IFDs, again.IFDs)
		}
		if !bytes.Equal(d.Thumbnail, again.Thumbnail) {
			t.Fatalf("thumbnail lost in round trip")
		}
		if again.Order != order {
			t.Fatalf("byte order changed")
		}
		checkSampleDirectory(t, again)
	}
}

func TestSerializeReplacesGPS(t *testing.T) {
	img := buildJPEG(segment(0xE1, exifPayload(sampleTIFF(binary.LittleEndian))))
	d, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := d.SetGPS(sampleGPSInfo()); err != nil {
		t.Fatalf("SetGPS failed: %v", err)
	}
	seg, err := Serialize(d)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	out, err := Insert(img, seg)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	info, ok, err := got.GPS()
	if err != nil || !ok {
		t.Fatalf("GPS() ok=%v err=%v", ok, err)
	}
	want := sampleGPSInfo()
	want.VersionID = DefaultGPSVersion
	if !reflect.DeepEqual(info, want) {
		t.Fatalf("GPS mismatch:\n got %+v\nwant %+v", info, want)
	}
	// the old altitude belonged to the replaced directory
	if _, ok := got.IFD(GPS).Get(TagGPSAltitude); ok {
		t.Fatalf("expected old GPS tags to be gone")
	}
	if v, _ := got.IFD(ExifKind).Get(TagLensModel); v.ASCII != "GoLensModel" {
		t.Fatalf("Exif IFD not preserved")
	}
}

func TestSerializeDeterministic(t *testing.T) {
	a := NewDirectory()
	a.IFD(Primary).Set(TagMake, NewASCII("Acme"))
	a.IFD(Primary).Set(TagModel, NewASCII("One"))
	a.IFD(ExifKind).Set(TagFNumber, NewRational(Rational{28, 10}))
	if err := a.SetGPS(sampleGPSInfo()); err != nil {
		t.Fatal(err)
	}

	b := NewDirectory()
	if err := b.SetGPS(sampleGPSInfo()); err != nil {
		t.Fatal(err)
	}
	b.IFD(ExifKind).Set(TagFNumber, NewRational(Rational{28, 10}))
	b.IFD(Primary).Set(TagModel, NewASCII("One"))
	b.IFD(Primary).Set(TagMake, NewASCII("Acme"))

	sa, err := Serialize(a)
	if err != nil {
		t.Fatalf("Serialize a: %v", err)
	}
	sb, err := Serialize(b)
	if err != nil {
		t.Fatalf("Serialize b: %v", err)
	}
	if !bytes.Equal(sa, sb) {
		t.Fatalf("serialization depends on insertion order")
	}
	again, _ := Serialize(a)
	if !bytes.Equal(sa, again) {
		t.Fatalf("serialization is not stable")
	}
}

func TestSerializeLayout(t *testing.T) {
	d := NewDirectory()
	if err := d.SetGPS(sampleGPSInfo()); err != nil {
		t.Fatal(err)
	}
	seg, err := Serialize(d)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !bytes.HasPrefix(seg, []byte("Exif\x00\x00MM\x00\x2A\x00\x00\x00\x08")) {
		t.Fatalf("unexpected header % X", seg[:14])
	}
	tiff := seg[6:]
	be := binary.BigEndian
	// IFD0 holds only the GPS pointer.
	if n := be.Uint16(tiff[8:]); n != 1 {
		t.Fatalf("expected 1 IFD0 entry, got %d", n)
	}
	if tag := be.Uint16(tiff[10:]); tag != TagGPSIFDPointer {
		t.Fatalf("expected GPS pointer, got 0x%04X", tag)
	}
	gpsOff := be.Uint32(tiff[18:])
	if gpsOff != 8+2+12+4 {
		t.Fatalf("GPS IFD expected right after IFD0, got %d", gpsOff)
	}
	n := int(be.Uint16(tiff[gpsOff:]))
	prev := -1
	for i := 0; i < n; i++ {
		e := tiff[int(gpsOff)+2+i*12:]
		tag := int(be.Uint16(e))
		if tag <= prev {
			t.Fatalf("GPS tags not ascending: 0x%04X after 0x%04X", tag, prev)
		}
		prev = tag
		typ := Type(be.Uint16(e[2:]))
		count := be.Uint32(e[4:])
		if int(count)*typ.Size() > 4 {
			if off := be.Uint32(e[8:]); off%2 != 0 {
				t.Fatalf("tag 0x%04X value at odd offset %d", tag, off)
			}
		}
	}
}

func TestSerializeRejectsGPSTypeMismatch(t *testing.T) {
	d := NewDirectory()
	d.IFD(GPS).Set(TagGPSLatitudeRef, NewShort(78))
	if _, err := Serialize(d); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("expected ErrUnsupportedTag, got %v", err)
	}

	d = NewDirectory()
	d.IFD(GPS).Set(TagGPSLatitude, NewRational(Rational{1, 1}, Rational{2, 1}))
	if _, err := Serialize(d); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("expected ErrUnsupportedTag for wrong count, got %v", err)
	}

	if _, err := (GPSInfo{LatitudeRef: "NN", LongitudeRef: "E"}).IFD(); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("expected ErrUnsupportedTag for two-letter ref, got %v", err)
	}
}

func TestSerializeRejectsUnknownType(t *testing.T) {
	d := NewDirectory()
	d.IFD(ExifKind).Set(0x9999, Value{Type: Type(42)})
	if _, err := Serialize(d); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("expected ErrUnsupportedTag, got %v", err)
	}
	d = NewDirectory()
	d.IFD(Primary).Set(TagArtist, NewASCII("a\x00b"))
	if _, err := Serialize(d); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("expected ErrUnsupportedTag for embedded NUL, got %v", err)
	}
}

func TestSerializeTooLarge(t *testing.T) {
	d := NewDirectory()
	d.IFD(ExifKind).Set(0x927C, NewUndefined(make([]byte, MaxSegmentPayload)))
	if _, err := Serialize(d); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
}

func TestSerializeInteropWithoutExifTags(t *testing.T) {
	d := NewDirectory()
	d.IFD(Interop).Set(0x0001, NewASCII("R98"))
	seg, err := Serialize(d)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := ParseSegment(seg)
	if err != nil {
		t.Fatalf("ParseSegment failed: %v", err)
	}
	if v, _ := got.IFD(Interop).Get(0x0001); v.ASCII != "R98" {
		t.Fatalf("interop directory lost")
	}
}

func TestSerializeEmptyDirectory(t *testing.T) {
	seg, err := Serialize(NewDirectory())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := ParseSegment(seg)
	if err != nil {
		t.Fatalf("ParseSegment failed: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty directory")
	}
}
