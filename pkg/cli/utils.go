package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fepozopo/exifgps/pkg/geotag"
)

// PromptLine displays a prompt and reads a full line of input from stdin.
// The returned string is trimmed of surrounding whitespace (including the newline).
func PromptLine(prompt string) (string, error) {
	return readLine(bufio.NewReader(os.Stdin), os.Stdout, prompt)
}

func readLine(reader *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// loadJPEG reads path and checks that it starts with an SOI marker.
func loadJPEG(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) < 2 || b[0] != 0xFF || b[1] != 0xD8 {
		return nil, fmt.Errorf("%s: not a JPEG file", path)
	}
	return b, nil
}

// defaultOutput is where a command writes when no -o is given: the image's
// base name, without extension, under tempDir.
func defaultOutput(tempDir, input string) string {
	base := filepath.Base(input)
	return geotag.TempPath(tempDir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// printReport writes a human readable summary of r.
func printReport(w io.Writer, path string, r geotag.Report, segments bool) {
	fmt.Fprintf(w, "File: %s\n", path)
	if !r.HasExif {
		fmt.Fprintln(w, "No EXIF metadata")
	} else {
		fmt.Fprintf(w, "Byte order: %s\n", r.ByteOrder)
	}
	if r.Make != "" || r.Model != "" {
		fmt.Fprintf(w, "Make: %s\nModel: %s\n", r.Make, r.Model)
	}
	if r.Software != "" {
		fmt.Fprintf(w, "Software: %s\n", r.Software)
	}
	if r.Orientation != 0 {
		fmt.Fprintf(w, "Orientation: %d\n", r.Orientation)
	}
	if r.DateTimeOriginal != "" {
		fmt.Fprintf(w, "DateTimeOriginal: %s\n", r.DateTimeOriginal)
	}
	if r.ExposureTime != "" {
		fmt.Fprintf(w, "ExposureTime: %s sec\n", r.ExposureTime)
	}
	if r.FNumber != 0 {
		fmt.Fprintf(w, "FNumber: f/%.1f\n", r.FNumber)
	}
	if r.ISOSpeed != 0 {
		fmt.Fprintf(w, "ISO Speed: %d\n", r.ISOSpeed)
	}
	if r.FocalLength != 0 {
		fmt.Fprintf(w, "FocalLength: %.1f mm\n", r.FocalLength)
	}
	if r.LensModel != "" {
		fmt.Fprintf(w, "LensModel: %s\n", r.LensModel)
	}
	if r.ThumbnailBytes != 0 {
		fmt.Fprintf(w, "Thumbnail: %d bytes\n", r.ThumbnailBytes)
	}
	if g := r.GPS; g != nil {
		fmt.Fprintln(w, "GPS:")
		fmt.Fprintf(w, "  Latitude:  %.8f %s (%s)\n", g.Latitude, g.LatRef, g.LatitudeDMS)
		fmt.Fprintf(w, "  Longitude: %.8f %s (%s)\n", g.Longitude, g.LonRef, g.LongitudeDMS)
		if g.Altitude != 0 {
			refStr := "above sea level"
			if g.AltitudeRef == 1 {
				refStr = "below sea level"
			}
			fmt.Fprintf(w, "  Altitude:  %.2f m (%s)\n", g.Altitude, refStr)
		}
		if !g.Timestamp.IsZero() {
			fmt.Fprintf(w, "  Timestamp: %s\n", g.Timestamp.Format("2006-01-02 15:04:05 MST"))
		}
		if g.MapDatum != "" {
			fmt.Fprintf(w, "  Datum:     %s\n", g.MapDatum)
		}
	}
	if segments {
		fmt.Fprintln(w, "Segments:")
		for _, s := range r.Segments {
			mark := ""
			if s.Exif {
				mark = " exif"
			}
			fmt.Fprintf(w, "  %s @%d len=%d%s\n", s.Marker, s.Offset, s.Length, mark)
		}
	}
}
