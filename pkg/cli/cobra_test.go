package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Fepozopo/exifgps/pkg/config"
	"github.com/Fepozopo/exifgps/pkg/geotag"
	"github.com/Fepozopo/exifgps/pkg/gps"
)

// writeTestJPEG encodes a small real JPEG into dir/name.
func writeTestJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), 64, uint8(y * 16), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		TempDir:     dir,
		CatalogPath: filepath.Join(dir, "catalog.db"),
	}
}

func run(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(cfg, nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func locate(t *testing.T, path string) (float64, float64) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lat, lon, err := geotag.Locate(b)
	if err != nil {
		t.Fatalf("Locate(%s) failed: %v", path, err)
	}
	return lat, lon
}

func TestTagCommand(t *testing.T) {
	cfg := testConfig(t)
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	dest := filepath.Join(t.TempDir(), "out.jpg")

	out, err := run(t, cfg, "tag", "-o", dest, "--altitude", "12.5", "--verify", src, "-33.8688", "151.2093")
	if err != nil {
		t.Fatalf("tag failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote "+dest) || !strings.Contains(out, "S") {
		t.Fatalf("unexpected output %q", out)
	}
	lat, lon := locate(t, dest)
	if math.Abs(lat+33.8688) > 1e-9 || math.Abs(lon-151.2093) > 1e-9 {
		t.Fatalf("located (%v, %v)", lat, lon)
	}

	hist, err := run(t, cfg, "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var entries []struct {
		Source, Output string
		LatRef         string `json:"lat_ref"`
	}
	if err := json.Unmarshal([]byte(hist), &entries); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, hist)
	}
	if len(entries) != 1 || entries[0].Source != src || entries[0].Output != dest || entries[0].LatRef != "S" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestTagCommandDefaultOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = ""
	src := writeTestJPEG(t, t.TempDir(), "IMG_0001.jpg")

	if out, err := run(t, cfg, "tag", src, "41.0428465", "29.0075283"); err != nil {
		t.Fatalf("tag failed: %v\n%s", err, out)
	}
	dest := filepath.Join(cfg.TempDir, "IMG_0001.jpg")
	lat, lon := locate(t, dest)
	if math.Abs(lat-41.0428465) > 1e-9 || math.Abs(lon-29.0075283) > 1e-9 {
		t.Fatalf("located (%v, %v)", lat, lon)
	}
	if _, err := os.Stat(filepath.Join(cfg.TempDir, "catalog.db")); !os.IsNotExist(err) {
		t.Fatalf("catalog should be disabled, stat err %v", err)
	}
}

func TestTagCommandCatalogOffByDefault(t *testing.T) {
	t.Setenv("EXIFGPS_CATALOG", "")
	os.Unsetenv("EXIFGPS_CATALOG")
	t.Setenv("EXIFGPS_TEMP_DIR", t.TempDir())
	work := t.TempDir()
	t.Chdir(work)
	cfg, err := config.Load(filepath.Join(work, "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	if out, err := run(t, cfg, "tag", src, "1", "2"); err != nil {
		t.Fatalf("tag failed: %v\n%s", err, out)
	}
	entries, err := os.ReadDir(work)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("tag without a configured catalog created %s", entries[0].Name())
	}
}

func TestTagCommandDataURI(t *testing.T) {
	cfg := testConfig(t)
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	out, err := run(t, cfg, "tag", "--data-uri", "--catalog", "", src, "10", "20")
	if err != nil {
		t.Fatalf("tag failed: %v", err)
	}
	b, err := geotag.DecodeDataURI(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("DecodeDataURI failed: %v\n%q", err, out)
	}
	if lat, lon, err := geotag.Locate(b); err != nil || lat != 10 || lon != 20 {
		t.Fatalf("Locate = %v, %v, %v", lat, lon, err)
	}
	if entries, _ := os.ReadDir(cfg.TempDir); len(entries) != 0 {
		t.Fatalf("data URI mode should not write files, found %d", len(entries))
	}
}

func TestTagCommandErrors(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	src := writeTestJPEG(t, dir, "photo.jpg")

	if _, err := run(t, cfg, "tag", src, "95", "10"); err == nil || !strings.Contains(err.Error(), "max 90") {
		t.Fatalf("expected latitude range error, got %v", err)
	}
	if _, err := run(t, cfg, "tag", "--time", "yesterday", src, "1", "2"); err == nil {
		t.Fatalf("expected --time parse error")
	}
	if _, err := run(t, cfg, "tag", "--altitude", "NaN", src, "1", "2"); !errors.Is(err, gps.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for NaN altitude, got %v", err)
	}
	notJPEG := filepath.Join(dir, "notes.jpg")
	if err := os.WriteFile(notJPEG, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "tag", notJPEG, "1", "2"); err == nil {
		t.Fatalf("expected error for non-JPEG input")
	}
}

func TestInspectCommand(t *testing.T) {
	cfg := testConfig(t)
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	dest := filepath.Join(t.TempDir(), "out.jpg")
	if _, err := run(t, cfg, "tag", "-o", dest, "--time", "2024-05-01T12:30:15Z", src, "41.0428465", "29.0075283"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, cfg, "inspect", "--segments", dest)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"Byte order: MM", "Latitude:  41.04284650 N", "Timestamp: 2024-05-01 12:30:15 UTC", "FFE1 @2", "exif"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "inspect", "--json", dest)
	if err != nil {
		t.Fatalf("inspect --json failed: %v", err)
	}
	var report geotag.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !report.HasGPS() || report.GPS.LatRef != "N" || report.GPS.GPSDateStamp != "2024:05:01" {
		t.Fatalf("unexpected report %+v", report.GPS)
	}
	if report.Segments != nil {
		t.Fatalf("segments should be omitted without --segments")
	}

	out, err = run(t, cfg, "locate", dest)
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		t.Fatalf("unexpected locate output %q", out)
	}
	if lat, _ := strconv.ParseFloat(fields[0], 64); math.Abs(lat-41.0428465) > 1e-8 {
		t.Fatalf("locate latitude %v", lat)
	}

	if _, err := run(t, cfg, "locate", src); !errors.Is(err, geotag.ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v", err)
	}
}

func TestStripCommand(t *testing.T) {
	cfg := testConfig(t)
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	original, _ := os.ReadFile(src)
	tagged := filepath.Join(t.TempDir(), "tagged.jpg")
	if _, err := run(t, cfg, "tag", "-o", tagged, src, "1", "2"); err != nil {
		t.Fatal(err)
	}

	clean := filepath.Join(t.TempDir(), "clean.jpg")
	out, err := run(t, cfg, "strip", "-o", clean, tagged)
	if err != nil {
		t.Fatalf("strip failed: %v", err)
	}
	if !strings.Contains(out, "bytes removed") {
		t.Fatalf("unexpected output %q", out)
	}
	got, _ := os.ReadFile(clean)
	if !bytes.Equal(got, original) {
		t.Fatalf("stripping a GPS-only segment should restore the original bytes")
	}

	if _, err := run(t, cfg, "strip", "--all", tagged); err != nil {
		t.Fatalf("strip --all failed: %v", err)
	}
	got, _ = os.ReadFile(filepath.Join(cfg.TempDir, "tagged.jpg"))
	if !bytes.Equal(got, original) {
		t.Fatalf("strip --all should remove the EXIF segment")
	}

	positional := filepath.Join(t.TempDir(), "positional.jpg")
	if _, err := run(t, cfg, "strip", "-o", positional, tagged, "yes"); err != nil {
		t.Fatalf("strip with all argument failed: %v", err)
	}
	got, _ = os.ReadFile(positional)
	if !bytes.Equal(got, original) {
		t.Fatalf("a truthy all argument should remove the EXIF segment")
	}
	if _, err := run(t, cfg, "strip", tagged, "perhaps"); err == nil || !strings.Contains(err.Error(), "invalid boolean") {
		t.Fatalf("expected boolean error, got %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = ""
	if _, err := run(t, cfg, "history"); err == nil || !strings.Contains(err.Error(), "catalog disabled") {
		t.Fatalf("expected catalog disabled error, got %v", err)
	}
}

func TestHistoryTable(t *testing.T) {
	cfg := testConfig(t)
	src := writeTestJPEG(t, t.TempDir(), "photo.jpg")
	for i := 0; i < 3; i++ {
		if _, err := run(t, cfg, "tag", "-o", filepath.Join(t.TempDir(), "o.jpg"), src, strconv.Itoa(i), "5"); err != nil {
			t.Fatal(err)
		}
	}
	out, err := run(t, cfg, "history", "--limit", "2")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("expected header plus 2 rows:\n%s", out)
	}
	// newest first
	if !strings.Contains(lines[1], "2.0000000") {
		t.Fatalf("expected latest entry first:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, testConfig(t), "version")
	if err != nil || strings.TrimSpace(out) != "exifgps "+Version {
		t.Fatalf("version output %q, err %v", out, err)
	}
}
