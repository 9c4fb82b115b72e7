// Package cli implements the kmsenv command line: running a media server
// outside of a test binary and inspecting the configuration it would use.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/kmsenv"
	"github.com/giantswarm/kmsenv/internal/config"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	prefix     string
	sets       []string
	json       bool
	logLevel   string
	logFormat  string
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "kmsenv",
		Short: "kmsenv - media server lifecycle for integration tests",
		Long: `kmsenv starts media servers as local processes, docker containers or
on remote hosts over SSH, waits until they accept websocket connections and
stops them again with escalating signals.

Configuration is read from kmsenv.yaml (see 'kmsenv config find'), from
KMSENV_* environment variables and from --set flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			kmsenv.SetLogger(g.logger())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "Path to config file (default: first kmsenv.yaml found)")
	flags.StringVar(&g.prefix, "prefix", config.DefaultPrefix, "Property prefix of the media server")
	flags.StringArrayVar(&g.sets, "set", nil, "Override a property, as name=value (repeatable)")
	flags.BoolVar(&g.json, "json", false, "Output in JSON format")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error (default: $KMSENV_LOG_LEVEL or info)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default: $KMSENV_LOG_FORMAT or text)")

	cmd.AddCommand(newRunCommand(g))
	cmd.AddCommand(newConfigCommand(g))
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (g *globalOptions) logger() *slog.Logger {
	cfg := config.LogConfigFromEnv(os.LookupEnv)
	if g.logLevel != "" {
		cfg.Level = config.ParseLevel(g.logLevel)
	}
	if g.logFormat != "" {
		cfg.Format = config.LogFormat(strings.ToLower(g.logFormat))
	}
	return config.NewLogger(cfg)
}

// properties loads the config file named by --config, or the first
// kmsenv.yaml found, and applies --set overrides.
func (g *globalOptions) properties() (*config.Properties, error) {
	var (
		props *config.Properties
		err   error
	)
	if g.configPath != "" {
		props, err = config.Load(g.configPath)
	} else {
		props, err = config.LoadDefault(config.DefaultConfigFileName)
	}
	if err != nil {
		return nil, err
	}
	for _, kv := range g.sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want name=value", kv)
		}
		props.Set(strings.TrimSpace(name), value)
	}
	return props, nil
}
