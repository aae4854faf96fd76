package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func releasesServer(t *testing.T, releases []githubRelease) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(releases)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func release(tag string, draft, pre bool, assets ...string) githubRelease {
	r := githubRelease{TagName: tag, Draft: draft, Prerelease: pre}
	for _, a := range assets {
		r.Assets = append(r.Assets, struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		}{Name: a, BrowserDownloadURL: "https://example.invalid/" + a})
	}
	return r
}

func TestPickRelease(t *testing.T) {
	releases := []githubRelease{
		release("v0.9.0", false, false, "exifgps_"+platform()+"_amd64.tar.gz"),
		release("exifgps-1.2.0", false, false, "checksums.txt", "exifgps_"+platform()+"_amd64.tar.gz"),
		release("v2.0.0", true, false),
		release("v1.3.0-rc1", false, true),
		release("nightly", false, false),
	}
	r, ok := pickRelease(releases)
	if !ok {
		t.Fatalf("expected a release")
	}
	if r.Version.String() != "1.2.0" {
		t.Fatalf("picked %s, want 1.2.0", r.Version)
	}
	if !strings.HasSuffix(r.AssetURL, "exifgps_"+platform()+"_amd64.tar.gz") {
		t.Fatalf("unexpected asset %s", r.AssetURL)
	}

	if _, ok := pickRelease([]githubRelease{release("nightly", false, false)}); ok {
		t.Fatalf("expected no release without semver tags")
	}
}

func withVersion(t *testing.T, v string) {
	t.Helper()
	old := Version
	Version = v
	t.Cleanup(func() { Version = old })
}

func TestCheckForUpdatesUpToDate(t *testing.T) {
	withVersion(t, "1.2.0")
	srv := releasesServer(t, []githubRelease{release("v1.2.0", false, false, "a")})
	var out bytes.Buffer
	u := Updater{Out: &out, APIURL: srv.URL, Apply: func(string, string) error {
		t.Fatalf("Apply must not run when up to date")
		return nil
	}}
	if err := u.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates failed: %v", err)
	}
	if !strings.Contains(out.String(), "already running the latest version") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckForUpdatesApplies(t *testing.T) {
	withVersion(t, "1.0.0")
	srv := releasesServer(t, []githubRelease{release("v1.1.0", false, false, "exifgps_"+platform()+"_amd64.tar.gz")})
	var out bytes.Buffer
	var applied string
	u := Updater{
		Out:    &out,
		APIURL: srv.URL,
		Prompt: func(string) (string, error) { return "yes", nil },
		Apply: func(assetURL, exe string) error {
			applied = assetURL
			return nil
		},
	}
	if err := u.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates failed: %v", err)
	}
	if !strings.HasSuffix(applied, "_amd64.tar.gz") {
		t.Fatalf("Apply got %q", applied)
	}
	if !strings.Contains(out.String(), "Updated to version 1.1.0") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckForUpdatesCancelled(t *testing.T) {
	withVersion(t, "1.0.0")
	srv := releasesServer(t, []githubRelease{release("v1.1.0", false, false, "x")})
	var out bytes.Buffer
	u := Updater{
		Out:    &out,
		APIURL: srv.URL,
		Prompt: func(string) (string, error) { return "", nil },
		Apply: func(string, string) error {
			t.Fatalf("Apply must not run after cancel")
			return nil
		},
	}
	if err := u.CheckForUpdates(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Update cancelled.") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckForUpdatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()
	u := Updater{Out: &bytes.Buffer{}, APIURL: srv.URL}
	err := u.CheckForUpdates(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
