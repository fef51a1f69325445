package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/junioryono/dicore"
	"github.com/junioryono/dicore/manifest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errInvalid = errors.New("manifest has errors")

type options struct {
	policy  string
	config  string
	format  string
	verbose bool
	noColor bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "dicheck",
		Short:        "Validate dicore manifests",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			opts.applyEnv(cmd)

			if opts.noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.policy, "policy", "", "lifetime policy: strict or warn (env DICHECK_POLICY)")
	flags.StringVar(&opts.config, "config", "", "dicore YAML config file (env DICHECK_CONFIG)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log build details to stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newValidateCommand(opts),
		newGraphCommand(opts),
		newResolveCommand(opts),
	)

	return root
}

// applyEnv fills flags the user did not set from DICHECK_* variables.
func (o *options) applyEnv(cmd *cobra.Command) {
	env := map[string]*string{
		"policy": &o.policy,
		"config": &o.config,
		"format": &o.format,
	}

	for name, target := range env {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			continue
		}
		if v, ok := os.LookupEnv("DICHECK_" + strings.ToUpper(name)); ok {
			*target = v
		}
	}
}

// providerOptions builds ProviderOptions from the config file and flags.
func (o *options) providerOptions() (*dicore.ProviderOptions, error) {
	opts := &dicore.ProviderOptions{}

	if o.config != "" {
		f, err := os.Open(o.config)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		cfg, err := dicore.LoadConfig(f)
		if err != nil {
			return nil, err
		}
		if opts, err = cfg.Options(); err != nil {
			return nil, err
		}
	}

	if o.policy != "" {
		if err := opts.LifetimePolicy.UnmarshalText([]byte(o.policy)); err != nil {
			return nil, err
		}
	}

	if o.verbose && opts.Logger == nil {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
	}

	return opts, nil
}

func load(path string) ([]dicore.Registration, *dicore.MapCatalog, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return m.Build()
}

// build builds a provider, printing diagnostics when the build fails.
func (o *options) build(cmd *cobra.Command, path string) (dicore.Provider, error) {
	regs, catalog, err := load(path)
	if err != nil {
		return nil, err
	}

	popts, err := o.providerOptions()
	if err != nil {
		return nil, err
	}

	p, err := dicore.BuildProvider(regs, catalog, popts)
	if err != nil {
		var buildErr *dicore.BuildError
		if errors.As(err, &buildErr) {
			printDiagnostics(cmd.ErrOrStderr(), buildErr.Diagnostics)
			return nil, errInvalid
		}
		return nil, err
	}

	return p, nil
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Report every diagnostic of a manifest",
		Example: `  dicheck validate app.yaml
  dicheck validate app.yaml --policy warn`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regs, catalog, err := load(args[0])
			if err != nil {
				return err
			}

			popts, err := opts.providerOptions()
			if err != nil {
				return err
			}

			diags, err := dicore.Validate(regs, catalog, popts)
			if err != nil {
				return err
			}

			printDiagnostics(cmd.OutOrStdout(), diags)
			if diags.HasFatal() {
				return errInvalid
			}
			return nil
		},
	}
}

func newGraphCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <manifest>",
		Short: "Print the dependency graph of a valid manifest",
		Example: `  dicheck graph app.yaml
  dicheck graph app.yaml --format dot | dot -Tsvg > graph.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			switch opts.format {
			case "", "text":
				return p.Graph().WriteText(cmd.OutOrStdout())
			case "dot":
				return p.Graph().WriteDOT(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown format %q: use text or dot", opts.format)
			}
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: text or dot (env DICHECK_FORMAT)")
	return cmd
}

func newResolveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <manifest> <type>",
		Short: "Resolve a type in a fresh scope and print the instance tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			scope, err := p.CreateScope(context.Background())
			if err != nil {
				return err
			}

			v, err := scope.Resolve(manifest.Type(args[1]))
			if err != nil {
				_ = scope.Close()
				return err
			}

			if inst, ok := manifest.AsInstance(v); ok {
				fmt.Fprint(cmd.OutOrStdout(), inst.Tree())
			}

			return scope.Close()
		},
	}
}
