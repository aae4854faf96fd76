package geotag

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataURIRoundTrip(t *testing.T) {
	img := encodeTestJPEG(t)
	uri := EncodeDataURI(img)
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,/9j/") {
		t.Fatalf("unexpected data URI prefix %q", uri[:30])
	}
	back, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI failed: %v", err)
	}
	if !bytes.Equal(back, img) {
		t.Fatalf("data URI round trip changed bytes")
	}
}

func TestDecodeDataURIErrors(t *testing.T) {
	for _, in := range []string{"", "data:image/png;base64,AAAA", "data:image/jpeg;base64,***"} {
		if _, err := DecodeDataURI(in); !errors.Is(err, ErrInvalidDataURI) {
			t.Fatalf("DecodeDataURI(%q): expected ErrInvalidDataURI, got %v", in, err)
		}
	}
}

func TestTempPath(t *testing.T) {
	if got := TempPath("/tmp/cache", "capture-1"); got != filepath.Join("/tmp/cache", "capture-1.jpg") {
		t.Fatalf("TempPath = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := TempPath(dir, "out")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("new"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "new" {
		t.Fatalf("unexpected content %q, %v", b, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
	if err := WriteFile(filepath.Join(dir, "missing", "x.jpg"), []byte("x"), 0o644); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
