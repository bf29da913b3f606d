package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostforge/hostforge/internal/actions"
	"github.com/hostforge/hostforge/internal/ageutil"
	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform"
)

// BuildOptions carries the environment a manifest is built against.
type BuildOptions struct {
	// BaseDir is the manifest's directory; relative source paths resolve
	// against it.
	BaseDir string

	// Key decrypts encrypted source files. May be nil when the manifest
	// declares none.
	Key *ageutil.Key

	// Manager is the package manager used when a step does not name one,
	// normally the detected one from facts.
	Manager string
}

// Build turns a validated, rendered manifest into a Runner. All file
// content is resolved here (literal, source file, or decrypted source), so
// a missing or undecryptable source fails before anything touches the host
// and the resulting action checks are pure comparisons.
func Build(m *config.Manifest, opts BuildOptions) (*Runner, error) {
	r := &Runner{
		Handlers: make(map[string]Task, len(m.Handlers)),
		Out:      os.Stdout,
	}
	for _, s := range m.Steps {
		a, err := buildAction(s, opts)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		r.Tasks = append(r.Tasks, Task{Name: s.Name, Action: a, Notify: s.Notify})
	}
	for _, h := range m.Handlers {
		a, err := buildAction(h, opts)
		if err != nil {
			return nil, fmt.Errorf("handler %q: %w", h.Name, err)
		}
		r.Handlers[h.Name] = Task{Name: h.Name, Action: a, Notify: h.Notify}
	}
	return r, nil
}

func buildAction(s config.Step, opts BuildOptions) (actions.Action, error) {
	switch s.Type() {
	case "package":
		manager := s.Manager
		if manager == "" {
			manager = opts.Manager
		}
		if manager == "" {
			return nil, fmt.Errorf("no package manager detected; set manager explicitly")
		}
		if !platform.KnownManager(manager) {
			return nil, fmt.Errorf("unknown package manager %q", manager)
		}
		return &actions.PackageAction{Package: s.Package, Manager: manager}, nil

	case "file":
		content, err := resolveContent(s, opts)
		if err != nil {
			return nil, err
		}
		return &actions.FileAction{
			Path:    platform.ExpandPath(s.File),
			Content: content,
			Mode:    s.Mode,
			Owner:   s.Owner,
			Group:   s.Group,
		}, nil

	case "directory":
		return &actions.DirectoryAction{
			Path:  platform.ExpandPath(s.Directory),
			Mode:  s.Mode,
			Owner: s.Owner,
			Group: s.Group,
		}, nil

	case "symlink":
		if s.Target == "" {
			return nil, fmt.Errorf("symlink requires a target")
		}
		return &actions.SymlinkAction{
			Path:   platform.ExpandPath(s.Symlink),
			Target: s.Target,
		}, nil

	case "absent":
		return &actions.AbsentAction{Path: platform.ExpandPath(s.Absent)}, nil

	case "fetch":
		if s.Dest == "" {
			return nil, fmt.Errorf("fetch requires a dest")
		}
		return &actions.FetchAction{
			URL:     s.Fetch,
			Dest:    platform.ExpandPath(s.Dest),
			Unpack:  s.Unpack,
			Creates: platform.ExpandPath(s.Creates),
			Mode:    s.Mode,
		}, nil

	case "command":
		return &actions.CommandAction{
			Command: s.Command,
			Creates: platform.ExpandPath(s.Creates),
			Unless:  s.Unless,
		}, nil

	case "service":
		return &actions.ServiceAction{
			Name:    s.Service,
			State:   s.State,
			Enabled: s.Enabled,
		}, nil

	case "daemon_reload":
		return &actions.DaemonReloadAction{}, nil

	case "firewall":
		return &actions.FirewallAction{Rule: s.Firewall, Port: s.Port}, nil

	case "certificate":
		keyPath := s.CertificateKey
		if keyPath == "" {
			keyPath = strings.TrimSuffix(s.Certificate, filepath.Ext(s.Certificate)) + ".key"
		}
		cn := s.CommonName
		if cn == "" {
			return nil, fmt.Errorf("certificate requires a common_name")
		}
		return &actions.CertificateAction{
			CertPath: platform.ExpandPath(s.Certificate),
			KeyPath:  platform.ExpandPath(keyPath),
			CN:       cn,
			AltNames: s.AltNames,
			Days:     s.Days,
			Owner:    s.Owner,
			Group:    s.Group,
		}, nil

	case "user":
		return &actions.UserAction{
			Name:   s.User,
			System: s.System,
			Home:   platform.ExpandPath(s.Home),
			Shell:  s.Shell,
			Groups: s.Groups,
		}, nil

	case "group":
		return &actions.GroupAction{Name: s.Group, System: s.System}, nil

	default:
		return nil, fmt.Errorf("unrecognised step type")
	}
}

// resolveContent produces the declared bytes for a file step: inline
// content, a manifest-relative source file, or that source's age-encrypted
// sibling decrypted in memory.
func resolveContent(s config.Step, opts BuildOptions) ([]byte, error) {
	if s.Content != "" {
		if s.Source != "" {
			return nil, fmt.Errorf("content and source are mutually exclusive")
		}
		return []byte(s.Content), nil
	}
	if s.Source == "" {
		return nil, fmt.Errorf("file requires content or source")
	}

	src := s.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(opts.BaseDir, src)
	}

	if s.Encrypted {
		if opts.Key == nil {
			return nil, fmt.Errorf("encrypted source %s but no age key configured", s.Source)
		}
		return opts.Key.Decrypt(ageutil.EncryptedPath(src))
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}
