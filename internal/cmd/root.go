// Package cmd implements the drivedrain command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/3leaps/drivedrain/internal/config"
	"github.com/3leaps/drivedrain/internal/observability"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/provider/gdrive"
)

const appName = "drivedrain"

// envReadOnly forces read-only mode regardless of flags.
const envReadOnly = config.EnvPrefix + "_READONLY"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
	readOnly  bool
)

// newProvider opens the Drive provider. Tests replace it with a mock.
var newProvider = func(ctx context.Context, cfg gdrive.Config) (provider.Provider, error) {
	return gdrive.New(ctx, cfg)
}

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Move every item out of a Google Drive folder to local disk",
	Long: `drivedrain copies each item in one Google Drive folder to a local
directory and moves the remote item to the Drive trash once its local copy
is complete.

Native Google documents are exported (Docs to docx, Sheets to xlsx, Slides
to pptx, Drawings to png); everything else is downloaded as stored. An item
whose copy fails is never trashed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ./drivedrain.yaml, then the user config dir)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (console|json)")
	pf.BoolVar(&readOnly, "readonly", false, "Refuse operations that write locally or modify Drive (also "+envReadOnly+")")
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// IsReadOnly reports whether --readonly or DRIVEDRAIN_READONLY is set.
func IsReadOnly() bool {
	if readOnly {
		return true
	}
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(envReadOnly)))
	return err == nil && v
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitCode(err)
}

// loadConfig reads configuration with flag overrides applied and
// initializes the CLI logger from the result.
func loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	logging := map[string]any{}
	if logLevel != "" {
		logging["level"] = logLevel
	}
	if logFormat != "" {
		logging["format"] = logFormat
	}
	if len(logging) > 0 {
		if overrides == nil {
			overrides = map[string]any{}
		}
		overrides["logging"] = logging
	}

	cfg, err := config.LoadWithOptions(ctx, config.Options{File: cfgFile}, overrides)
	if err != nil {
		return nil, err
	}

	if err := observability.InitCLILoggerWithOptions(appName, observability.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configExitError wraps a configuration failure.
func configExitError(err error) error {
	if errors.Is(err, context.Canceled) {
		return exitError(exitCancelled, "Cancelled", err)
	}
	return exitError(exitInvalidArgument, "Invalid configuration", err)
}
