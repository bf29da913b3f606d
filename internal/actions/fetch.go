package actions

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FetchAction downloads a URL and installs it at Dest, optionally extracting
// a tar.gz or zip archive into Dest as a directory tree.
//
// Idempotency follows the "creates" convention: the action is satisfied when
// the Creates marker path exists (Dest itself when Creates is empty). The
// download is never re-verified against the remote; remove the marker to
// force a re-fetch.
type FetchAction struct {
	URL     string
	Dest    string
	Unpack  bool
	Creates string
	Mode    string // applied to Dest when installing a plain file
}

func (a *FetchAction) Describe() string {
	verb := "fetch"
	if a.Unpack {
		verb = "fetch+unpack"
	}
	return fmt.Sprintf("%s %s -> %s", verb, a.URL, a.Dest)
}

func (a *FetchAction) marker() string {
	if a.Creates != "" {
		return a.Creates
	}
	return a.Dest
}

func (a *FetchAction) Check(ctx context.Context) (bool, error) {
	_, err := os.Stat(a.marker())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a.marker(), err)
	}
	return true, nil
}

func (a *FetchAction) Apply(ctx context.Context) error {
	tmpFile, err := os.CreateTemp("", "hostforge-fetch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := downloadTo(ctx, a.URL, tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("download %s: %w", a.URL, err)
	}
	tmpFile.Close()

	if a.Unpack {
		return a.extract(tmpPath)
	}
	return a.install(tmpPath)
}

func (a *FetchAction) install(tmpPath string) error {
	if err := os.MkdirAll(filepath.Dir(a.Dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.Rename(tmpPath, a.Dest); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		if err := copyFilePath(tmpPath, a.Dest); err != nil {
			return fmt.Errorf("install %s: %w", a.Dest, err)
		}
	}
	mode := os.FileMode(0o755)
	if a.Mode != "" {
		m, err := parseMode(a.Mode)
		if err != nil {
			return fmt.Errorf("invalid mode %q: %w", a.Mode, err)
		}
		mode = m
	}
	return os.Chmod(a.Dest, mode)
}

func (a *FetchAction) extract(archivePath string) error {
	if err := os.MkdirAll(a.Dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	lower := strings.ToLower(a.URL)
	switch {
	case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(archivePath, a.Dest)
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, a.Dest)
	default:
		return fmt.Errorf("cannot unpack %s: unsupported archive type", a.URL)
	}
}

// --- download ----------------------------------------------------------------

func downloadTo(ctx context.Context, url string, dst *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "hostforge/1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}

// --- extraction --------------------------------------------------------------

// safeJoin joins name under dest, rejecting entries that escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFileFrom(tr, target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFileFrom(rc, target, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFileFrom(r io.Reader, target string, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyFilePath(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
