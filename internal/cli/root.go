package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/auth"
	"github.com/ashalaginvimeo/AS-test/internal/config"
	"github.com/ashalaginvimeo/AS-test/internal/logging"
)

// rootOptions is the state shared by every command of one invocation
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "copilot",
		Short: "Sales enablement copilot",
		Long: `copilot turns sales context into structured, ready-to-use material.

Tools: prospect insights, call coaching, technical Q&A with web sources,
multi-channel outreach kits, objection handling and discovery call prep.
Without a subcommand it opens the interactive terminal UI.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.copilot/config.yaml)")
	flags.String("provider", "", "LLM provider: gemini, openai, openrouter or anthropic")
	flags.String("model", "", "model id (provider default when empty)")
	flags.Duration("timeout", 0, "per-request timeout, 0 disables (default 90s from config)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")
	_ = opts.v.BindPFlag("provider", flags.Lookup("provider"))
	_ = opts.v.BindPFlag("model", flags.Lookup("model"))
	_ = opts.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = opts.v.BindPFlag("request_timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(
		newRunCmd(opts),
		newToolsCmd(),
		newServeCmd(opts),
		newAuthCmd(opts),
	)
	return rootCmd
}

// load reads config files, environment and flags into opts.cfg
func (o *rootOptions) load() error {
	if err := config.Init(o.v, o.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(o.v)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// logger builds the command's logger. Interactive commands log to a file.
func (o *rootOptions) logger(toFile bool) (*zap.Logger, error) {
	file := o.cfg.LogFile
	if toFile && file == "" {
		file = filepath.Join(o.cfg.DataDir, "copilot.log")
	}
	return logging.New(o.cfg.LogLevel, o.cfg.LogFormat, file)
}

func (o *rootOptions) authManager() (*auth.Manager, error) {
	manager, err := auth.NewManager(o.cfg.DataDir, auth.WithConfigKeys(o.cfg.ConfigKeys()))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth manager: %w", err)
	}
	return manager, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
