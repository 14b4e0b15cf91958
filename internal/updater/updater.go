// Package updater checks GitHub releases and replaces the running binary.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultRepo is the GitHub repository releases are published to
	DefaultRepo = "STAFE-GROUP-AB/2do-developer"

	binaryName      = "twodo"
	checkTimeout    = 10 * time.Second
	downloadTimeout = 5 * time.Minute
)

// Release is the subset of the GitHub release API we use
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Updater talks to one repository's releases
type Updater struct {
	repo        string
	apiBase     string
	downloadURL string
	exePath     string
	client      *http.Client
}

// Option configures an Updater
type Option func(*Updater)

// WithBaseURLs points the API and download endpoints elsewhere
func WithBaseURLs(api, download string) Option {
	return func(u *Updater) {
		u.apiBase = strings.TrimSuffix(api, "/")
		u.downloadURL = strings.TrimSuffix(download, "/")
	}
}

// WithExecutable replaces the binary at path instead of the running one
func WithExecutable(path string) Option {
	return func(u *Updater) { u.exePath = path }
}

// New creates an Updater for repo ("owner/name"); empty means DefaultRepo
func New(repo string, opts ...Option) *Updater {
	if repo == "" {
		repo = DefaultRepo
	}
	u := &Updater{
		repo:        repo,
		apiBase:     "https://api.github.com",
		downloadURL: "https://github.com",
		client:      &http.Client{Timeout: downloadTimeout},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Latest fetches the newest published release
func (u *Updater) Latest(ctx context.Context) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, u.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("checking for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("parsing release info: %w", err)
	}
	if rel.TagName == "" {
		return Release{}, errors.New("release has no tag")
	}
	return rel, nil
}

// NeedsUpdate compares versions in "vX.Y.Z" or "X.Y.Z" form and reports
// whether latest is newer. A "dev" build always needs an update.
func NeedsUpdate(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	if current == "dev" {
		return latest != "dev"
	}

	cur, lat := parseVersion(current), parseVersion(latest)
	for i := 0; i < 3; i++ {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// parseVersion extracts major, minor, patch from a version string
func parseVersion(v string) [3]int {
	var parts [3]int
	fmt.Sscanf(v, "%d.%d.%d", &parts[0], &parts[1], &parts[2])
	return parts
}

// ArchiveName is the release asset for a version on this platform,
// e.g. twodo_0.3.1_linux_amd64.tar.gz
func ArchiveName(version string) string {
	return fmt.Sprintf("%s_%s_%s_%s.tar.gz", binaryName, strings.TrimPrefix(version, "v"), runtime.GOOS, runtime.GOARCH)
}

// SelfUpdate downloads version and swaps it in for the current binary
func (u *Updater) SelfUpdate(ctx context.Context, version string) error {
	archive := ArchiveName(version)
	url := fmt.Sprintf("%s/%s/releases/download/%s/%s", u.downloadURL, u.repo, version, archive)

	tmpDir, err := os.MkdirTemp("", "twodo-update-*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, archive)
	if err := u.download(ctx, url, archivePath); err != nil {
		return fmt.Errorf("downloading update: %w", err)
	}

	newBinary := filepath.Join(tmpDir, binaryName)
	if err := extractTarGz(archivePath, newBinary); err != nil {
		return fmt.Errorf("extracting update: %w", err)
	}

	target := u.exePath
	if target == "" {
		if target, err = os.Executable(); err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
	}
	if target, err = filepath.EvalSymlinks(target); err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	if err := replaceBinary(target, newBinary); err != nil {
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func (u *Updater) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// extractTarGz writes the archive's twodo binary to dest. The binary may
// sit at the root or in a subdirectory.
func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if filepath.Base(header.Name) != binaryName || header.Typeflag != tar.TypeReg {
			continue
		}

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
	return fmt.Errorf("binary %s not found in archive", binaryName)
}

// replaceBinary moves the current binary aside, copies the new one in its
// place and restores the backup if that fails
func replaceBinary(currentPath, newPath string) error {
	info, err := os.Stat(currentPath)
	if err != nil {
		return err
	}

	backup := currentPath + ".old"
	_ = os.Remove(backup)
	if err := os.Rename(currentPath, backup); err != nil {
		return fmt.Errorf("backing up current binary: %w", err)
	}

	// Copy rather than rename: the temp dir may be on another filesystem.
	if err := copyFile(newPath, currentPath, info.Mode()); err != nil {
		_ = os.Rename(backup, currentPath)
		return fmt.Errorf("installing new binary: %w", err)
	}

	_ = os.Remove(backup)
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
