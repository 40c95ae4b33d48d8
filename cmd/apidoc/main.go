// Command apidoc extracts API documentation from httpdomain docstrings. It
// parses single docstrings, scans Go projects for documented endpoints,
// generates OpenAPI documents and serves documented APIs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Zachacious/go-apidoc/internal/analyzer"
	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/assembler"
	"github.com/Zachacious/go-apidoc/internal/config"
	"github.com/Zachacious/go-apidoc/internal/httpdomain"
	"github.com/Zachacious/go-apidoc/internal/log"
	"github.com/Zachacious/go-apidoc/internal/model"
)

// These variables are set at build time by the Makefile's ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// Cobra prints its own errors, so we just need to exit.
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "apidoc",
		Short: "apidoc turns httpdomain docstrings into API documentation.",
		Long: `apidoc extracts structured documentation from API endpoint docstrings
written with the Sphinx httpdomain reStructuredText conventions. It renders
documentation pages, scans Go projects for documented endpoints and builds
OpenAPI v3 specifications from them. Projects are configured through an
.apidoc.yaml file.`,
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newScanCmd(), newOpenAPICmd(), newServeCmd(), newVersionCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var (
		format string
		route  string
		noargs bool
	)
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the documentation extracted from a docstring file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readFile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if route == "" {
				if _, urls := httpdomain.Filter(doc); len(urls) > 0 {
					route = httpdomain.RouteOf(urls[0].Rule)
				}
			}
			d, err := apidoc.Build(apidoc.Key{Handler: args[0], Route: route, NoArgs: noargs}, doc, false)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), format, d)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().StringVar(&route, "route", "", "documentation route (default: derived from the first URL)")
	cmd.Flags().BoolVar(&noargs, "noargs", false, "the endpoint takes no URL arguments")
	return cmd
}

func newScanCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List the documented endpoints of a Go project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), format, m.Endpoints)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func newOpenAPICmd() *cobra.Command {
	var outputPath, format string
	cmd := &cobra.Command{
		Use:   "openapi <path>",
		Short: "Generate the OpenAPI specification of a Go project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, m, err := analyze(ctx, args[0])
			if err != nil {
				return err
			}
			spec, err := assembler.BuildSpec(m, cfg)
			if err != nil {
				return fmt.Errorf("assembling specification: %w", err)
			}
			if err := spec.Validate(ctx); err != nil {
				log.Warningf(ctx, "generated specification is not valid: %v", err)
			}
			data, err := json.MarshalIndent(spec, "", "  ")
			if err != nil {
				return err
			}
			if format != "json" {
				if data, err = jsonToYAML(data); err != nil {
					return err
				}
			}
			if outputPath == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputPath, data, 0644); err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}
			log.Infof(ctx, "generated OpenAPI spec at %s", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "openapi.yaml", "Output file for the OpenAPI specification (- for stdout)")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of apidoc",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apidoc %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// analyze loads the configuration of the project at path and scans it.
func analyze(ctx context.Context, path string) (*config.Config, *model.APIModel, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", config.FileName, err)
	}
	log.SetLevel(cfg.LogLevel)
	a, err := analyzer.New(path, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing analyzer: %w", err)
	}
	m, err := a.Analyze(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, m, nil
}

func readFile(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	return string(data), err
}

func write(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping the
// order of its keys.
func jsonToYAML(data []byte) ([]byte, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	clearStyle(&n)
	return yaml.Marshal(&n)
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
