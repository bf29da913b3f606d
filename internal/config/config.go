// Package config defines the hostforge manifest: an ordered list of
// idempotent steps, a registry of handlers reachable only via notification,
// and the variables and includes they draw on.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the top-level document parsed from hostforge.yaml.
type Manifest struct {
	Vars     map[string]any `yaml:"vars,omitempty"`
	Includes []Include      `yaml:"includes,omitempty"`
	Age      *AgeConfig     `yaml:"age,omitempty"`
	Steps    []Step         `yaml:"steps"`
	Handlers []Step         `yaml:"handlers,omitempty"`
}

// Include pulls an external step bundle into the manifest, either from a
// local file (relative to the manifest) or a remote HTTPS URL pinned by the
// lockfile.
type Include struct {
	Path   string         `yaml:"path,omitempty"`
	URL    string         `yaml:"url,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// AgeConfig selects the age credential used for encrypted source files.
type AgeConfig struct {
	Identity   string `yaml:"identity,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// Step is a single state assertion. Its type is determined by which primary
// field is populated (see Type). Steps listed under handlers never run in
// the main sequence; they run after it, once, when notified by a step whose
// apply changed state.
//
// The group field is overloaded the way ownership fields usually are in
// these tools: on a file, directory, or certificate step it names the owning
// group; on a step with no other primary field it declares a group to create.
type Step struct {
	Name   string   `yaml:"name"`
	Notify []string `yaml:"notify,omitempty"`

	// Package installation.
	Package string `yaml:"package,omitempty"`
	Manager string `yaml:"manager,omitempty"` // defaults to the detected manager

	// File content, directory, symlink, removal.
	File      string `yaml:"file,omitempty"`    // destination path
	Content   string `yaml:"content,omitempty"` // literal content
	Source    string `yaml:"source,omitempty"`  // manifest-relative source file
	Encrypted bool   `yaml:"encrypted,omitempty"`
	Directory string `yaml:"directory,omitempty"`
	Symlink   string `yaml:"symlink,omitempty"` // link path
	Target    string `yaml:"target,omitempty"`  // link target
	Absent    string `yaml:"absent,omitempty"`  // path to remove
	Mode      string `yaml:"mode,omitempty"`    // Unix octal string, e.g. "0644"
	Owner     string `yaml:"owner,omitempty"`
	Group     string `yaml:"group,omitempty"`

	// Download + optional archive extraction.
	Fetch   string `yaml:"fetch,omitempty"` // source URL
	Dest    string `yaml:"dest,omitempty"`
	Unpack  bool   `yaml:"unpack,omitempty"`
	Creates string `yaml:"creates,omitempty"` // marker path; also guards command steps

	// Shell command.
	Command string `yaml:"command,omitempty"`
	Unless  string `yaml:"unless,omitempty"` // skip when this command exits 0

	// Service lifecycle.
	Service      string `yaml:"service,omitempty"`
	State        string `yaml:"state,omitempty"` // started | stopped | restarted | reloaded
	Enabled      *bool  `yaml:"enabled,omitempty"`
	DaemonReload bool   `yaml:"daemon_reload,omitempty"`

	// Firewall rule.
	Firewall string `yaml:"firewall,omitempty"` // "allow" | "enable"
	Port     string `yaml:"port,omitempty"`     // "9090/tcp", "443", "Nginx Full"

	// Self-signed certificate.
	Certificate    string   `yaml:"certificate,omitempty"`
	CertificateKey string   `yaml:"certificate_key,omitempty"`
	CommonName     string   `yaml:"common_name,omitempty"`
	AltNames       []string `yaml:"alt_names,omitempty"`
	Days           int      `yaml:"days,omitempty"`

	// User / group creation.
	User   string   `yaml:"user,omitempty"`
	System bool     `yaml:"system,omitempty"`
	Home   string   `yaml:"home,omitempty"`
	Shell  string   `yaml:"shell,omitempty"`
	Groups []string `yaml:"groups,omitempty"`
}

// Type returns the step type derived from the populated fields. The group
// creation type is checked last so that group-as-ownership on other step
// types wins.
func (s Step) Type() string {
	switch {
	case s.Package != "":
		return "package"
	case s.File != "":
		return "file"
	case s.Directory != "":
		return "directory"
	case s.Symlink != "":
		return "symlink"
	case s.Absent != "":
		return "absent"
	case s.Fetch != "":
		return "fetch"
	case s.Command != "":
		return "command"
	case s.Service != "":
		return "service"
	case s.DaemonReload:
		return "daemon_reload"
	case s.Firewall != "":
		return "firewall"
	case s.Certificate != "":
		return "certificate"
	case s.User != "":
		return "user"
	case s.Group != "":
		return "group"
	default:
		return "unknown"
	}
}

// Load reads and parses a manifest file. The result is not yet validated;
// call Validate after includes are resolved and templates rendered.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Handler returns the named handler, or nil when not declared.
func (m *Manifest) Handler(name string) *Step {
	for i := range m.Handlers {
		if m.Handlers[i].Name == name {
			return &m.Handlers[i]
		}
	}
	return nil
}

// Validate checks structural invariants: every step and handler is named,
// names are unique within their list, every step has a recognised type, and
// every notify target resolves to a declared handler. Unknown notify targets
// are rejected here so a run can never fail halfway through on a typo.
func (m *Manifest) Validate() error {
	handlerNames := make(map[string]bool, len(m.Handlers))
	for _, h := range m.Handlers {
		if h.Name == "" {
			return fmt.Errorf("handler missing a name (type %s)", h.Type())
		}
		if handlerNames[h.Name] {
			return fmt.Errorf("duplicate handler name %q", h.Name)
		}
		handlerNames[h.Name] = true
	}

	stepNames := make(map[string]bool, len(m.Steps))
	for _, s := range m.Steps {
		if s.Name == "" {
			return fmt.Errorf("step missing a name (type %s)", s.Type())
		}
		if stepNames[s.Name] {
			return fmt.Errorf("duplicate step name %q", s.Name)
		}
		stepNames[s.Name] = true
	}

	check := func(kind string, steps []Step) error {
		for _, s := range steps {
			if s.Type() == "unknown" {
				return fmt.Errorf("%s %q has no recognised type", kind, s.Name)
			}
			for _, target := range s.Notify {
				if !handlerNames[target] {
					return fmt.Errorf("%s %q notifies unknown handler %q", kind, s.Name, target)
				}
			}
		}
		return nil
	}
	if err := check("step", m.Steps); err != nil {
		return err
	}
	return check("handler", m.Handlers)
}
