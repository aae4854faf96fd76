package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// Version is the running build, overridden with
// -ldflags "-X github.com/Fepozopo/exifgps/pkg/cli.Version=1.2.3".
var Version = "0.1.0"

const updateRepo = "Fepozopo/exifgps"

// githubRelease is the subset of the GitHub releases payload we read.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// regex to find semver substring like v1.2.3 or 1.2.3 inside tag name
var semverRe = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

// detectLatestFallback queries the GitHub Releases API at apiURL and returns
// the best release, tolerating tag names that are not bare semver.
func detectLatestFallback(ctx context.Context, apiURL string) (*selfupdate.Release, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("github API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed reading github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var releases []githubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, false, fmt.Errorf("failed to decode github releases: %w", err)
	}
	r, ok := pickRelease(releases)
	return r, ok, nil
}

// pickRelease returns the highest semver among published, non-prerelease
// releases. The asset is the first whose name mentions the running platform,
// else the first asset at all.
func pickRelease(releases []githubRelease) (*selfupdate.Release, bool) {
	type candidate struct {
		ver      semver.Version
		assetURL string
	}
	var candidates []candidate
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		match := semverRe.FindString(r.TagName)
		if match == "" {
			// try the release name as a fallback
			if match = semverRe.FindString(r.Name); match == "" {
				continue
			}
		}
		v, err := semver.Parse(strings.TrimPrefix(match, "v"))
		if err != nil {
			continue
		}
		assetURL := ""
		for _, a := range r.Assets {
			if strings.Contains(strings.ToLower(a.Name), platform()) {
				assetURL = a.BrowserDownloadURL
				break
			}
			if assetURL == "" {
				assetURL = a.BrowserDownloadURL
			}
		}
		candidates = append(candidates, candidate{ver: v, assetURL: assetURL})
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ver.GT(candidates[j].ver)
	})
	best := candidates[0]
	return &selfupdate.Release{Version: best.ver, AssetURL: best.assetURL}, true
}

// platform is matched against asset names, e.g. "exifgps_linux_amd64.tar.gz".
func platform() string {
	return runtime.GOOS
}

// Updater checks GitHub for a newer release and replaces the executable.
type Updater struct {
	Out    io.Writer
	Prompt func(prompt string) (string, error)
	// APIURL defaults to the releases endpoint of the project repository.
	APIURL string
	// Apply defaults to selfupdate.UpdateTo.
	Apply func(assetURL, exe string) error
}

// CheckForUpdates reports the current and latest versions and, after
// confirmation, installs the newer release over the running executable.
func (u Updater) CheckForUpdates(ctx context.Context) error {
	out := u.Out
	if out == nil {
		out = os.Stdout
	}
	apiURL := u.APIURL
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://api.github.com/repos/%s/releases", updateRepo)
	}
	apply := u.Apply
	if apply == nil {
		apply = selfupdate.UpdateTo
	}
	prompt := u.Prompt
	if prompt == nil {
		prompt = PromptLine
	}

	fmt.Fprintf(out, "Current version: %s\n", Version)
	latest, found, err := detectLatestFallback(ctx, apiURL)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if !found {
		fmt.Fprintf(out, "No releases found for %s.\n", updateRepo)
		return nil
	}
	fmt.Fprintf(out, "Latest version: %s\n", latest.Version)

	currentVer, parseErr := semver.Parse(strings.TrimPrefix(Version, "v"))
	if parseErr != nil {
		// If the built Version isn't valid semver, continue but warn.
		fmt.Fprintf(out, "warning: could not parse current version %q: %v\n", Version, parseErr)
	} else if !latest.Version.GT(currentVer) {
		fmt.Fprintf(out, "You are already running the latest version: %s.\n", currentVer)
		return nil
	}

	if latest.AssetURL == "" {
		fmt.Fprintf(out, "A new version (%s) is available but there is no downloadable asset.\n", latest.Version)
		fmt.Fprintln(out, "Please visit the project releases page to download the new version.")
		return nil
	}

	answer, err := prompt(fmt.Sprintf("A new version (%s) is available. Update now? (y/N): ", latest.Version))
	if err != nil {
		return fmt.Errorf("failed reading input: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(out, "Update cancelled.")
		return nil
	}

	fmt.Fprintln(out, "Updating...")
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}
	if err := apply(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Fprintf(out, "Updated to version %s. Restart exifgps to use it.\n", latest.Version)
	return nil
}
