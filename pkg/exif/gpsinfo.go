package exif

import "fmt"

// DefaultGPSVersion is written when GPSInfo.VersionID is left zero.
var DefaultGPSVersion = [4]byte{2, 3, 0, 0}

// GPSInfo is the typed view of a GPS Info IFD. Only the fields this package
// writes are named; optional ones are nil or empty when absent.
type GPSInfo struct {
	VersionID    [4]byte
	LatitudeRef  string // "N" or "S"
	Latitude     [3]Rational
	LongitudeRef string // "E" or "W"
	Longitude    [3]Rational
	AltitudeRef  *byte // 0 above sea level, 1 below
	Altitude     *Rational
	TimeStamp    *[3]Rational // UTC hour, minute, second
	MapDatum     string
	DateStamp    string // "YYYY:MM:DD"
}

// IFD builds the GPS directory described by g. Every tag is checked against
// the EXIF GPS tag table.
func (g GPSInfo) IFD() (*IFD, error) {
	ifd := NewIFD()
	version := g.VersionID
	if version == [4]byte{} {
		version = DefaultGPSVersion
	}
	ifd.Set(TagGPSVersionID, NewByte(version[:]...))
	ifd.Set(TagGPSLatitudeRef, NewASCII(g.LatitudeRef))
	ifd.Set(TagGPSLatitude, NewRational(g.Latitude[:]...))
	ifd.Set(TagGPSLongitudeRef, NewASCII(g.LongitudeRef))
	ifd.Set(TagGPSLongitude, NewRational(g.Longitude[:]...))
	if g.Altitude != nil {
		ref := byte(0)
		if g.AltitudeRef != nil {
			ref = *g.AltitudeRef
		}
		ifd.Set(TagGPSAltitudeRef, NewByte(ref))
		ifd.Set(TagGPSAltitude, NewRational(*g.Altitude))
	}
	if g.TimeStamp != nil {
		ifd.Set(TagGPSTimeStamp, NewRational(g.TimeStamp[:]...))
	}
	if g.MapDatum != "" {
		ifd.Set(TagGPSMapDatum, NewASCII(g.MapDatum))
	}
	if g.DateStamp != "" {
		ifd.Set(TagGPSDateStamp, NewASCII(g.DateStamp))
	}
	for _, tag := range ifd.Tags() {
		v, _ := ifd.Get(tag)
		if err := checkGPSValue(tag, v); err != nil {
			return nil, err
		}
	}
	return ifd, nil
}

// GPSInfoFromIFD reads the named GPS fields out of ifd. ok is false when the
// directory has no complete latitude/longitude pair.
func GPSInfoFromIFD(ifd *IFD) (g GPSInfo, ok bool, err error) {
	if ifd.Len() == 0 {
		return g, false, nil
	}
	if v, found := ifd.Get(TagGPSVersionID); found && v.Type == TypeByte && len(v.Bytes) == 4 {
		copy(g.VersionID[:], v.Bytes)
	}
	latRef, hasLatRef := ifd.Get(TagGPSLatitudeRef)
	lat, hasLat := ifd.Get(TagGPSLatitude)
	lonRef, hasLonRef := ifd.Get(TagGPSLongitudeRef)
	lon, hasLon := ifd.Get(TagGPSLongitude)
	if hasLatRef && hasLat && hasLonRef && hasLon {
		for _, tag := range []uint16{TagGPSLatitudeRef, TagGPSLatitude, TagGPSLongitudeRef, TagGPSLongitude} {
			v, _ := ifd.Get(tag)
			if err := checkGPSValue(tag, v); err != nil {
				return GPSInfo{}, false, fmt.Errorf("%w (GPS IFD)", err)
			}
		}
		g.LatitudeRef = latRef.ASCII
		g.LongitudeRef = lonRef.ASCII
		copy(g.Latitude[:], lat.Rationals)
		copy(g.Longitude[:], lon.Rationals)
		ok = true
	}
	if v, found := ifd.Get(TagGPSAltitude); found && v.Type == TypeRational && len(v.Rationals) == 1 {
		alt := v.Rationals[0]
		g.Altitude = &alt
		if r, found := ifd.Get(TagGPSAltitudeRef); found && r.Type == TypeByte && len(r.Bytes) == 1 {
			ref := r.Bytes[0]
			g.AltitudeRef = &ref
		}
	}
	if v, found := ifd.Get(TagGPSTimeStamp); found && v.Type == TypeRational && len(v.Rationals) == 3 {
		var ts [3]Rational
		copy(ts[:], v.Rationals)
		g.TimeStamp = &ts
	}
	if v, found := ifd.Get(TagGPSMapDatum); found && v.Type == TypeASCII {
		g.MapDatum = v.ASCII
	}
	if v, found := ifd.Get(TagGPSDateStamp); found && v.Type == TypeASCII {
		g.DateStamp = v.ASCII
	}
	return g, ok, nil
}

// GPS returns the typed GPS fields of d.
func (d *Directory) GPS() (GPSInfo, bool, error) {
	ifd, ok := d.Lookup(GPS)
	if !ok {
		return GPSInfo{}, false, nil
	}
	return GPSInfoFromIFD(ifd)
}
