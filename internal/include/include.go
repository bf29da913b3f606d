// Package include resolves a manifest's step bundles: local YAML files next
// to the manifest and remote HTTPS bundles pinned by a lockfile. A bundle is
// a manifest fragment (steps plus handlers) rendered with the including
// manifest's vars and facts and its own params; bundles cannot themselves
// include further files.
package include

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/template"
)

// Resolver expands a manifest's includes.
type Resolver struct {
	// BaseDir is the manifest's directory; local include paths resolve
	// against it.
	BaseDir string

	// NoCache forces remote includes to be re-downloaded even when a
	// pinned cached copy exists.
	NoCache bool

	// Data is the shared template data (vars and facts). Each include's
	// params are added under "params" for that bundle only.
	Data map[string]any
}

// bundle is the parsed content of an include file.
type bundle struct {
	Steps    []config.Step `yaml:"steps"`
	Handlers []config.Step `yaml:"handlers,omitempty"`

	// Includes is parsed only so nesting can be rejected with a clear error.
	Includes []config.Include `yaml:"includes,omitempty"`
}

// Resolve loads every include in order and returns the rendered steps and
// handlers to splice into the manifest: bundle steps run before the
// manifest's own steps, bundle handlers join the manifest's handler registry.
// Remote fetches update the lockfile in place; the caller saves it.
func (r *Resolver) Resolve(ctx context.Context, includes []config.Include, lock *Lock) (steps, handlers []config.Step, err error) {
	for _, inc := range includes {
		var data []byte
		var name string

		switch {
		case inc.Path != "" && inc.URL != "":
			return nil, nil, fmt.Errorf("include declares both path and url")
		case inc.Path != "":
			name = inc.Path
			p := inc.Path
			if !filepath.IsAbs(p) {
				p = filepath.Join(r.BaseDir, p)
			}
			data, err = os.ReadFile(p)
			if err != nil {
				return nil, nil, fmt.Errorf("include %s: %w", inc.Path, err)
			}
		case inc.URL != "":
			name = inc.URL
			data, err = r.fetch(ctx, inc.URL, lock)
			if err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("include declares neither path nor url")
		}

		b, err := parseBundle(data)
		if err != nil {
			return nil, nil, fmt.Errorf("include %s: %w", name, err)
		}

		bundleData := r.Data
		if len(inc.Params) > 0 {
			bundleData = make(map[string]any, len(r.Data)+1)
			for k, v := range r.Data {
				bundleData[k] = v
			}
			bundleData["params"] = inc.Params
		}

		s, err := template.RenderSteps(b.Steps, bundleData)
		if err != nil {
			return nil, nil, fmt.Errorf("include %s: %w", name, err)
		}
		h, err := template.RenderSteps(b.Handlers, bundleData)
		if err != nil {
			return nil, nil, fmt.Errorf("include %s: %w", name, err)
		}
		steps = append(steps, s...)
		handlers = append(handlers, h...)
	}
	return steps, handlers, nil
}

// fetch retrieves a remote include, preferring the pinned cache copy. A
// cached or re-downloaded body whose checksum disagrees with the lockfile is
// fatal: the manifest would no longer describe the state it was written for.
func (r *Resolver) fetch(ctx context.Context, url string, lock *Lock) ([]byte, error) {
	if !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("include %s: only https urls are allowed", url)
	}

	cache := cachePath(url)
	entry, pinned := lock.Includes[url]

	if !r.NoCache && pinned {
		if data, err := os.ReadFile(cache); err == nil {
			sum := fmt.Sprintf("%x", sha256.Sum256(data))
			if sum != entry.SHA256 {
				return nil, fmt.Errorf(
					"include %s: cache checksum mismatch (lockfile %s, got %s) — re-run with --no-cache",
					url, entry.SHA256, sum)
			}
			return data, nil
		}
		// Pinned but cache file missing; fall through to the network.
	}

	log.Debug().Str("url", url).Msg("fetching include")
	data, err := download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("include %s: %w", url, err)
	}

	sum := fmt.Sprintf("%x", sha256.Sum256(data))
	if pinned && entry.SHA256 != sum {
		return nil, fmt.Errorf(
			"include %s: remote content changed (lockfile %s, got %s) — delete the lockfile entry to accept the new content",
			url, entry.SHA256, sum)
	}

	lock.Includes[url] = LockEntry{SHA256: sum, FetchedAt: time.Now().UTC(), URL: url}
	if err := writeCacheFile(cache, data); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not cache include")
	}
	return data, nil
}

func parseBundle(data []byte) (*bundle, error) {
	var b bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	if len(b.Includes) > 0 {
		return nil, fmt.Errorf("nested includes are not supported")
	}
	return &b, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "hostforge/1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	// A partial body must not succeed: the checksum of truncated content
	// would be pinned into the lockfile.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	return data, nil
}

// cacheDir is a variable so tests can redirect the cache.
var cacheDir = func() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "hostforge", "includes")
}

func cachePath(url string) string {
	safe := strings.NewReplacer(
		"/", "_", "@", "_", ":", "_", ".", "_",
	).Replace(url)
	return filepath.Join(cacheDir(), safe+".yaml")
}

func writeCacheFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ClearCache removes the include cache directory.
func ClearCache() error {
	return os.RemoveAll(cacheDir())
}
