package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/internal/ageutil"
	"github.com/hostforge/hostforge/internal/color"
	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/facts"
	"github.com/hostforge/hostforge/internal/include"
	"github.com/hostforge/hostforge/internal/journal"
	"github.com/hostforge/hostforge/internal/runner"
	"github.com/hostforge/hostforge/internal/template"
)

var (
	manifestFile string
	verbose      bool
	noCache      bool
	onlyPats     []string
	skipPats     []string
)

func main() {
	color.Init()
	root := buildRoot()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "hostforge",
		Short: "An idempotent host provisioning tool",
		Long: `hostforge converges a host toward the state declared in a YAML manifest:
packages, users, files, services, firewall rules, certificates. Steps that
change state notify handlers, which run once each after the main sequence.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}

	root.PersistentFlags().StringVarP(&manifestFile, "config", "c", "hostforge.yaml", "path to the manifest")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output, including command output")
	root.PersistentFlags().BoolVar(&noCache, "no-cache", false, "re-fetch remote includes from the network")
	root.PersistentFlags().StringSliceVar(&onlyPats, "only", nil, "run only steps matching these glob patterns")
	root.PersistentFlags().StringSliceVar(&skipPats, "skip", nil, "skip steps matching these glob patterns")

	root.AddCommand(
		applyCmd(),
		planCmd(),
		statusCmd(),
		listCmd(),
		factsCmd(),
		logCmd(),
		encryptCmd(),
		decryptCmd(),
		initCmd(),
		includeCmd(),
	)

	return root
}

// loadManifest parses the manifest, resolves includes, renders templates,
// and validates the result. Included steps run before the manifest's own
// steps; included handlers join the manifest's handler registry.
func loadManifest(ctx context.Context) (*config.Manifest, error) {
	m, err := config.Load(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("load manifest %q: %w", manifestFile, err)
	}

	f := facts.Gather()
	data := map[string]any{
		"vars":  m.Vars,
		"facts": f.Map(),
	}

	baseDir := filepath.Dir(manifestFile)
	if len(m.Includes) > 0 {
		lockPath := include.LockPath(manifestFile)
		lock, err := include.LoadLock(lockPath)
		if err != nil {
			return nil, err
		}
		resolver := &include.Resolver{BaseDir: baseDir, NoCache: noCache, Data: data}
		incSteps, incHandlers, err := resolver.Resolve(ctx, m.Includes, lock)
		if err != nil {
			return nil, err
		}
		if err := include.SaveLock(lockPath, lock); err != nil {
			return nil, err
		}
		m.Steps = append(incSteps, m.Steps...)
		m.Handlers = append(m.Handlers, incHandlers...)
	}

	if m.Steps, err = template.RenderSteps(m.Steps, data); err != nil {
		return nil, err
	}
	if m.Handlers, err = template.RenderSteps(m.Handlers, data); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

func newRunner(m *config.Manifest) (*runner.Runner, error) {
	r, err := runner.Build(m, runner.BuildOptions{
		BaseDir: filepath.Dir(manifestFile),
		Key:     ageKey(m),
		Manager: facts.Gather().PackageManager,
	})
	if err != nil {
		return nil, err
	}
	if r.Only, err = compileGlobs(onlyPats); err != nil {
		return nil, err
	}
	if r.Skip, err = compileGlobs(skipPats); err != nil {
		return nil, err
	}
	return r, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// ageKey resolves the age credential from the manifest or the environment.
// Returns nil when neither configures one.
func ageKey(m *config.Manifest) *ageutil.Key {
	key := &ageutil.Key{}
	if m.Age != nil {
		key.IdentityFile = m.Age.Identity
		key.Passphrase = m.Age.Passphrase
	}
	if v := os.Getenv("HOSTFORGE_AGE_IDENTITY"); v != "" {
		key.IdentityFile = v
	}
	if v := os.Getenv("HOSTFORGE_AGE_PASSPHRASE"); v != "" {
		key.Passphrase = v
	}
	if key.IdentityFile == "" && key.Passphrase == "" {
		return nil
	}
	return key
}

// runAndReport executes the runner, journals the result, and prints the
// summary. Fatal step errors and handler failures both yield a non-zero
// exit; a handler failure does not abort the drain but still fails the run.
func runAndReport(ctx context.Context, command string, r *runner.Runner) error {
	res, err := r.Execute(ctx)
	journal.RecordRun(command, res)

	fmt.Println()
	if err != nil {
		fmt.Println(color.BoldRed(res.Summary()))
		return err
	}
	if res.Failed() {
		fmt.Println(color.BoldRed(res.Summary()))
		return errors.New("run finished with failures")
	}
	fmt.Println(color.Bold(res.Summary()))
	return nil
}

// --- apply -------------------------------------------------------------------

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Converge the host to the manifest",
		Example: `  hostforge apply
  hostforge apply --only 'nginx-*'
  hostforge apply --skip firewall-enable -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := loadManifest(ctx)
			if err != nil {
				return err
			}
			r, err := newRunner(m)
			if err != nil {
				return err
			}
			fmt.Println(color.Bold(fmt.Sprintf("Applying %s (%d steps)", manifestFile, len(r.Tasks))))
			return runAndReport(ctx, "apply", r)
		},
	}
}

// --- plan --------------------------------------------------------------------

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change, without changing anything",
		Long: `Runs every check but no apply. Steps that would change state still
notify their handlers, so the plan includes the handlers a real run would
trigger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := loadManifest(ctx)
			if err != nil {
				return err
			}
			r, err := newRunner(m)
			if err != nil {
				return err
			}
			r.DryRun = true
			fmt.Println(color.Bold(fmt.Sprintf("Plan for %s (%d steps)", manifestFile, len(r.Tasks))))
			return runAndReport(ctx, "plan", r)
		},
	}
}

// --- status ------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report each step's current state without applying or notifying",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := loadManifest(ctx)
			if err != nil {
				return err
			}
			r, err := newRunner(m)
			if err != nil {
				return err
			}
			r.CheckOnly = true
			fmt.Println(color.Bold(fmt.Sprintf("Status of %s", manifestFile)))
			return runAndReport(ctx, "status", r)
		},
	}
}

// --- list --------------------------------------------------------------------

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the manifest's steps and handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(color.Bold("Steps:"))
			for _, s := range m.Steps {
				line := fmt.Sprintf("  %-40s  %s", s.Name, s.Type())
				if len(s.Notify) > 0 {
					line += color.Dim("  -> " + strings.Join(s.Notify, ", "))
				}
				fmt.Println(line)
			}
			if len(m.Handlers) > 0 {
				fmt.Println(color.Bold("Handlers:"))
				for _, h := range m.Handlers {
					fmt.Printf("  %-40s  %s\n", h.Name, h.Type())
				}
			}
			return nil
		},
	}
}

// --- facts -------------------------------------------------------------------

func factsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facts",
		Short: "Print the facts templates see as {{ .facts.xxx }}",
		Run: func(cmd *cobra.Command, args []string) {
			f := facts.Gather()
			fmt.Printf("hostname:         %s\n", f.Hostname)
			fmt.Printf("os:               %s\n", f.OS)
			fmt.Printf("arch:             %s\n", f.Arch)
			fmt.Printf("package_manager:  %s\n", f.PackageManager)
		},
	}
}

// --- log ---------------------------------------------------------------------

func logCmd() *cobra.Command {
	var stepFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the run journal",
		Example: `  hostforge log
  hostforge log --step nginx-package
  hostforge log --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := journal.Read(stepFilter, limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("(no journal entries)")
				return nil
			}

			fmt.Println(color.Bold(fmt.Sprintf("%-20s  %-8s  %-10s  %-10s  %s",
				"TIME", "COMMAND", "RUN", "OUTCOME", "STEP")))
			for _, e := range entries {
				ts := e.Time.Local().Format(time.DateTime)
				runID := e.RunID
				if len(runID) > 8 {
					runID = runID[:8]
				}
				outcome := fmt.Sprintf("%-10s", e.Outcome)
				switch e.Outcome {
				case "changed":
					outcome = color.BoldYellow(outcome)
				case "unchanged":
					outcome = color.Green(outcome)
				case "failed":
					outcome = color.BoldRed(outcome)
				case "skipped":
					outcome = color.Dim(outcome)
				}
				name := e.Step
				if e.Handler {
					name += color.Dim(" (handler)")
				}
				if e.Error != "" {
					name += color.Red("  " + e.Error)
				}
				fmt.Printf("%-20s  %-8s  %-10s  %s  %s\n", ts, e.Command, runID, outcome, name)
			}
			fmt.Printf("\njournal: %s\n", journal.LogPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&stepFilter, "step", "", "filter by step name")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")
	return cmd
}

// --- encrypt / decrypt -------------------------------------------------------

func encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a source file with the configured age key (writes <file>.age)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireKey()
			if err != nil {
				return err
			}
			src := args[0]
			dst := ageutil.EncryptedPath(src)
			fmt.Printf("encrypting %s -> %s\n", src, dst)
			return key.EncryptFile(src, dst)
		},
	}
}

func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <file.age>",
		Short: "Decrypt an age-encrypted source file (writes without the .age extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireKey()
			if err != nil {
				return err
			}
			src := args[0]
			dst := strings.TrimSuffix(src, ".age")
			if dst == src {
				return fmt.Errorf("%s does not end in .age", src)
			}
			fmt.Printf("decrypting %s -> %s\n", src, dst)
			return key.DecryptFile(src, dst)
		},
	}
}

func requireKey() (*ageutil.Key, error) {
	m, err := config.Load(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("load manifest %q: %w", manifestFile, err)
	}
	key := ageKey(m)
	if key == nil {
		return nil, fmt.Errorf("no age key configured; set age.identity or age.passphrase in %s, or set HOSTFORGE_AGE_IDENTITY / HOSTFORGE_AGE_PASSPHRASE", manifestFile)
	}
	return key, nil
}

// --- init --------------------------------------------------------------------

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively scaffold a new manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(manifestFile); err == nil {
				return fmt.Errorf("%s already exists", manifestFile)
			}

			var pkg, service string
			withFirewall := true
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Package to install").
						Description("The first step of the new manifest, e.g. nginx").
						Value(&pkg),
					huh.NewInput().
						Title("Service to keep running").
						Description("Leave empty to skip the service step").
						Value(&service),
					huh.NewConfirm().
						Title("Add a firewall step?").
						Value(&withFirewall),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			if pkg == "" {
				return errors.New("a package name is required")
			}

			if err := os.WriteFile(manifestFile, []byte(scaffold(pkg, service, withFirewall)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", manifestFile)
			fmt.Println(color.Dim("run `hostforge plan` to see what it would change"))
			return nil
		},
	}
}

func scaffold(pkg, service string, withFirewall bool) string {
	var b strings.Builder
	b.WriteString("vars: {}\n\nsteps:\n")
	fmt.Fprintf(&b, "  - name: install-%s\n    package: %s\n", pkg, pkg)
	if service != "" {
		fmt.Fprintf(&b, "  - name: %s-running\n    service: %s\n    state: started\n    enabled: true\n", service, service)
	}
	if withFirewall {
		b.WriteString("  - name: firewall-enable\n    firewall: enable\n")
	}
	b.WriteString("\nhandlers: []\n")
	return b.String()
}

// --- include -----------------------------------------------------------------

func includeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "include",
		Short: "Manage remote include pins and the local cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List pinned remote includes",
			RunE: func(cmd *cobra.Command, args []string) error {
				lock, err := include.LoadLock(include.LockPath(manifestFile))
				if err != nil {
					return err
				}
				if len(lock.Includes) == 0 {
					fmt.Println("(no pinned includes)")
					return nil
				}
				fmt.Println(color.Bold(fmt.Sprintf("%-60s  %-12s  %s", "URL", "SHA256", "FETCHED")))
				for url, entry := range lock.Includes {
					sum := entry.SHA256
					if len(sum) > 12 {
						sum = sum[:12]
					}
					fmt.Printf("%-60s  %-12s  %s\n", url, sum, entry.FetchedAt.Local().Format(time.DateTime))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the local include cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := include.ClearCache(); err != nil {
					return err
				}
				fmt.Println("include cache cleared")
				return nil
			},
		},
	)
	return cmd
}
