package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/kmsenv/internal/config"
)

func newConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Inspect kmsenv configuration.

Subcommands:
  find - Show which config file would be loaded
  show - Display the resolved media server properties`,
	}
	cmd.AddCommand(newConfigFindCommand(g))
	cmd.AddCommand(newConfigShowCommand(g))
	return cmd
}

func newConfigFindCommand(g *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Show which config file would be loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigFind(cmd.OutOrStdout(), g, config.Finder{}, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", config.DefaultConfigFileName, "Config file name to look for")
	return cmd
}

func runConfigFind(w io.Writer, g *globalOptions, finder config.Finder, name string) error {
	if g.configPath != "" {
		if _, err := os.Stat(g.configPath); err != nil {
			return fmt.Errorf("config file %s: %w", g.configPath, err)
		}
		_, err := fmt.Fprintln(w, g.configPath)
		return err
	}
	path, ok := finder.Find(name)
	if !ok {
		return fmt.Errorf("no %s found; searched:\n  %s", name, strings.Join(finder.Candidates(name), "\n  "))
	}
	_, err := fmt.Fprintln(w, path)
	return err
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the resolved media server properties",
		Long: `Display every property of the media server selected by --prefix, with
its value and where the value came from (override, env, file or default).

Passwords are masked. Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := g.properties()
			if err != nil {
				return err
			}
			return showProperties(cmd.OutOrStdout(), g.json, props, config.NamesFor(g.prefix))
		},
	}
}

// propertyView is one line of config show output.
type propertyView struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Source string `json:"source" yaml:"source"`
}

func resolveProperties(props *config.Properties, names config.PropertyNames) []propertyView {
	defaults := names.Defaults()
	all := append(names.All(), config.TestFilesPathProp, config.OutputFolderProp)
	views := make([]propertyView, 0, len(all))
	for _, name := range all {
		v := propertyView{Name: name}
		if value, src, ok := props.Lookup(name); ok {
			v.Value, v.Source = value, string(src)
		} else if def, ok := defaults[name]; ok {
			v.Value, v.Source = def, string(config.SourceDefault)
		} else {
			v.Source = "unset"
		}
		if name == names.Password && v.Value != "" {
			v.Value = "****"
		}
		views = append(views, v)
	}
	return views
}

func showProperties(w io.Writer, asJSON bool, props *config.Properties, names config.PropertyNames) error {
	views := resolveProperties(props, names)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	if path := props.Path(); path != "" {
		fmt.Fprintf(w, "# Configuration: %s\n", path)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	return enc.Close()
}
