package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/drivedrain/internal/config"
	"github.com/3leaps/drivedrain/internal/observability"
	"github.com/3leaps/drivedrain/pkg/drain"
	"github.com/3leaps/drivedrain/pkg/export"
	"github.com/3leaps/drivedrain/pkg/match"
	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/preflight"
	"github.com/3leaps/drivedrain/pkg/provider"
)

var drainCmd = &cobra.Command{
	Use:     "drain",
	Aliases: []string{"run"},
	Short:   "Copy every item in a Drive folder locally, then trash it",
	Long: `Drain one Google Drive folder into a local directory.

Each direct child of the folder is copied to the output directory and then
moved to the Drive trash. Items whose copy fails stay in the folder; items
whose copy succeeds but whose trash call fails are reported separately.

Example:
  drivedrain drain --folder 1AbC... --out ./inbox
  drivedrain drain --folder 1AbC... --out ./inbox --plan
  drivedrain drain --folder 1AbC... --out ./inbox --include '*.pdf' --records run.jsonl`,
	RunE: runDrain,
}

var (
	drainFolder        string
	drainOut           string
	drainCredentials   string
	drainSubject       string
	drainPageSize      int
	drainExportMap     string
	drainIncludes      []string
	drainExcludes      []string
	drainRecords       string
	drainPlan          bool
	drainProgress      bool
	drainTimeout       time.Duration
	drainPreflightMode string
)

func init() {
	rootCmd.AddCommand(drainCmd)

	f := drainCmd.Flags()
	f.StringVarP(&drainFolder, "folder", "f", "", "Drive folder ID to drain")
	f.StringVarP(&drainOut, "out", "o", "", "Local output directory")
	f.StringVar(&drainCredentials, "credentials", "", "Service-account or authorized-user JSON key (default: Application Default Credentials)")
	f.StringVar(&drainSubject, "subject", "", "User to impersonate with domain-wide delegation")
	f.IntVar(&drainPageSize, "page-size", 0, "Listing page size (1-1000)")
	f.StringVar(&drainExportMap, "export-map", "", "YAML or JSON file overriding the export table")
	f.StringSliceVar(&drainIncludes, "include", nil, "Only drain items whose name matches (repeatable)")
	f.StringSliceVar(&drainExcludes, "exclude", nil, "Skip items whose name matches (repeatable)")
	f.StringVar(&drainRecords, "records", "", "Write JSONL records to a file, or 'stdout'")
	f.BoolVar(&drainPlan, "plan", false, "List and resolve items without transferring or trashing anything")
	f.BoolVar(&drainProgress, "progress", false, "Show a progress bar on stderr")
	f.DurationVar(&drainTimeout, "timeout", 0, "Abort the run after this long (0 = no limit)")
	f.StringVar(&drainPreflightMode, "preflight", string(preflight.ModeReadSafe), "Preflight mode (plan-only|read-safe|write-probe)")
}

// drainOverrides maps explicitly set flags onto config keys.
func drainOverrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	drive := map[string]any{}
	out := map[string]any{}
	creds := map[string]any{}
	matchKeys := map[string]any{}
	overrides := map[string]any{}

	if flags.Changed("folder") {
		drive["folder_id"] = drainFolder
	}
	if flags.Changed("page-size") {
		drive["page_size"] = drainPageSize
	}
	if flags.Changed("out") {
		out["dir"] = drainOut
	}
	if flags.Changed("records") {
		out["records"] = drainRecords
	}
	if flags.Changed("credentials") {
		creds["file"] = drainCredentials
	}
	if flags.Changed("subject") {
		creds["subject"] = drainSubject
	}
	if flags.Changed("include") {
		matchKeys["includes"] = drainIncludes
	}
	if flags.Changed("exclude") {
		matchKeys["excludes"] = drainExcludes
	}
	if flags.Changed("export-map") {
		overrides["export"] = map[string]any{"mapping_file": drainExportMap}
	}
	if flags.Changed("timeout") {
		overrides["run"] = map[string]any{"timeout": drainTimeout.String()}
	}

	for key, section := range map[string]map[string]any{
		"drive": drive, "output": out, "credentials": creds, "match": matchKeys,
	} {
		if len(section) > 0 {
			overrides[key] = section
		}
	}
	return overrides
}

func runDrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := preflight.ParseMode(drainPreflightMode)
	if err != nil {
		return exitError(exitInvalidArgument, "Invalid --preflight value", err)
	}

	cfg, err := loadConfig(ctx, drainOverrides(cmd))
	if err != nil {
		return configExitError(err)
	}
	if err := cfg.ValidateDrain(); err != nil {
		return exitError(exitInvalidArgument, "Invalid drain configuration", err)
	}

	policy, err := exportPolicy(cfg)
	if err != nil {
		return err
	}
	matcher, err := match.New(match.Config{
		Includes:      cfg.Match.Includes,
		Excludes:      cfg.Match.Excludes,
		ExcludeHidden: cfg.Match.ExcludeHidden,
	})
	if err != nil {
		return exitError(exitInvalidArgument, "Invalid match pattern", err)
	}

	if IsReadOnly() {
		if !drainPlan {
			return exitError(exitInvalidArgument, "drain blocked by readonly mode",
				fmt.Errorf("readonly mode only allows --plan; remove --readonly or unset %s", envReadOnly))
		}
		if mode == preflight.ModeWriteProbe {
			return exitError(exitInvalidArgument, "write-probe preflight blocked by readonly mode",
				errors.New("readonly mode forbids local writes"))
		}
	}

	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	jobID := uuid.New().String()
	log := observability.CLILogger.With(zap.String("job_id", jobID), zap.String("folder_id", cfg.Drive.FolderID))

	prov, err := newProvider(ctx, cfg.GDrive())
	if err != nil {
		return providerExitError("Failed to connect to Google Drive", err)
	}
	defer func() { _ = prov.Close() }()

	// Opened only once the provider is usable so a failed start leaves the
	// previous run's records in place.
	writer, cleanup, err := createWriter(cfg.Output.Records, jobID)
	if err != nil {
		return exitError(exitFileWrite, "Failed to open records destination", err)
	}
	defer cleanup()

	log.Info("Starting drain",
		zap.String("output_dir", cfg.Output.Dir),
		zap.Bool("plan", drainPlan),
		zap.String("preflight", string(mode)))

	if err := runPreflight(ctx, prov, writer, preflight.Spec{
		Mode:      mode,
		FolderID:  cfg.Drive.FolderID,
		OutputDir: cfg.Output.Dir,
	}); err != nil {
		return err
	}

	report := reportDestination(cfg)
	opts := []drain.Option{drain.WithLogger(log), drain.WithWriter(writer)}

	var bar *progressBar
	if drainProgress && !drainPlan {
		bar = newProgressBar(os.Stderr)
		opts = append(opts, drain.WithListedHook(bar.Start), drain.WithItemHook(bar.Item))
	}

	runner := drain.NewRunner(prov, policy, drain.Config{
		FolderID:  cfg.Drive.FolderID,
		OutputDir: cfg.Output.Dir,
		PageSize:  cfg.Drive.PageSize,
		Matcher:   matcher,
	}, opts...)

	if drainPlan {
		plan, err := runner.Plan(ctx)
		if err != nil {
			return runExitError(err)
		}
		if err := drain.WritePlanReport(report, plan); err != nil {
			log.Warn("Failed to write plan report", zap.Error(err))
		}
		return nil
	}

	summary, runErr := runner.Run(ctx)
	bar.Finish()
	if summary != nil {
		if err := drain.WriteReport(report, summary); err != nil {
			log.Warn("Failed to write report", zap.Error(err))
		}
	}
	if runErr != nil {
		return runExitError(runErr)
	}
	// Per-item failures are in the report and records, not the exit status.
	return nil
}

// exportPolicy builds the export table, mapping a missing mapping file to
// its own exit code.
func exportPolicy(cfg *config.Config) (*export.Policy, error) {
	policy, err := cfg.ExportPolicy()
	if err == nil {
		return policy, nil
	}
	if cfg.Export.MappingFile != "" {
		if _, statErr := os.Stat(cfg.Export.MappingFile); errors.Is(statErr, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "Export mapping file not found", err)
		}
	}
	return nil, exitError(exitInvalidArgument, "Invalid export mapping", err)
}

func runPreflight(ctx context.Context, prov provider.Provider, w output.Writer, spec preflight.Spec) error {
	rec, err := preflight.Drain(ctx, prov, spec)
	if rec != nil {
		if werr := w.WritePreflight(ctx, rec); werr != nil {
			observability.CLILogger.Warn("Failed to write preflight record", zap.Error(werr))
		}
	}
	if err == nil {
		return nil
	}

	for _, r := range rec.Results {
		if r.Allowed {
			continue
		}
		if r.Capability == preflight.CapFolderList {
			return providerExitError("Preflight failed", err)
		}
	}
	return exitError(exitFileWrite, "Preflight failed", err)
}

// createWriter opens the JSONL records destination. An empty destination
// discards records.
func createWriter(dest, jobID string) (output.Writer, func(), error) {
	switch dest {
	case "":
		return output.Discard, func() {}, nil
	case config.RecordsStdout:
		w := output.NewJSONLWriter(os.Stdout, jobID, string(provider.ProviderGoogleDrive))
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create records file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, jobID, string(provider.ProviderGoogleDrive))
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}

// reportDestination keeps stdout clean for records when they go there.
func reportDestination(cfg *config.Config) io.Writer {
	if cfg.Output.Records == config.RecordsStdout {
		return os.Stderr
	}
	return os.Stdout
}

func providerExitError(message string, err error) error {
	if code, ok := contextExitCode(err); ok {
		return exitError(code, message, err)
	}
	return exitError(exitServiceUnavailable, message, err)
}

func runExitError(err error) error {
	if code, ok := contextExitCode(err); ok {
		return exitError(code, "Drain interrupted", err)
	}

	var runErr *drain.RunError
	if errors.As(err, &runErr) {
		switch runErr.Stage {
		case drain.StageOutputDir:
			return exitError(exitFileWrite, "Failed to prepare output directory", err)
		case drain.StageList:
			return exitError(exitServiceUnavailable, "Failed to list folder", err)
		}
	}
	return exitError(exitFailure, "Drain failed", err)
}

func contextExitCode(err error) (int, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return exitCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return exitServiceUnavailable, true
	}
	return 0, false
}
