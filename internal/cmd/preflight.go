package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/3leaps/drivedrain/pkg/preflight"
)

var (
	preflightFolder  string
	preflightOut     string
	preflightMode    string
	preflightRecords string
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check that a drain can start without transferring anything",
	Long: `Run the preflight checks for a drain and emit a preflight record.

read-safe lists one item from the folder and inspects the output directory.
write-probe also creates the output directory and writes and removes a probe
file in it. Nothing is ever trashed.

Example:
  drivedrain preflight --folder 1AbC... --out ./inbox
  drivedrain preflight --folder 1AbC... --out ./inbox --mode write-probe`,
	RunE: runPreflightCmd,
}

func init() {
	rootCmd.AddCommand(preflightCmd)
	preflightCmd.Flags().StringVarP(&preflightFolder, "folder", "f", "", "Drive folder ID")
	preflightCmd.Flags().StringVarP(&preflightOut, "out", "o", "", "Local output directory")
	preflightCmd.Flags().StringVar(&preflightMode, "mode", string(preflight.ModeReadSafe), "Preflight mode (read-safe|write-probe)")
	preflightCmd.Flags().StringVar(&preflightRecords, "records", "stdout", "JSONL destination for the preflight record")
}

func runPreflightCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := preflight.ParseMode(preflightMode)
	if err != nil {
		return exitError(exitInvalidArgument, "Invalid --mode value", err)
	}
	if mode == preflight.ModePlanOnly {
		return exitError(exitInvalidArgument, "Invalid --mode value", fmt.Errorf("plan-only performs no checks; use read-safe or write-probe"))
	}
	if mode == preflight.ModeWriteProbe && IsReadOnly() {
		return exitError(exitInvalidArgument, "write-probe preflight blocked by readonly mode",
			fmt.Errorf("readonly mode forbids local writes; use --mode read-safe"))
	}

	overrides := map[string]any{}
	drive := map[string]any{}
	out := map[string]any{}
	if preflightFolder != "" {
		drive["folder_id"] = preflightFolder
	}
	if preflightOut != "" {
		out["dir"] = preflightOut
	}
	if len(drive) > 0 {
		overrides["drive"] = drive
	}
	if len(out) > 0 {
		overrides["output"] = out
	}

	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return configExitError(err)
	}
	if err := cfg.ValidateDrain(); err != nil {
		return exitError(exitInvalidArgument, "Invalid preflight configuration", err)
	}

	prov, err := newProvider(ctx, cfg.GDrive())
	if err != nil {
		return providerExitError("Failed to connect to Google Drive", err)
	}
	defer func() { _ = prov.Close() }()

	writer, cleanup, err := createWriter(preflightRecords, uuid.New().String())
	if err != nil {
		return exitError(exitFileWrite, "Failed to open records destination", err)
	}
	defer cleanup()

	return runPreflight(ctx, prov, writer, preflight.Spec{
		Mode:      mode,
		FolderID:  cfg.Drive.FolderID,
		OutputDir: cfg.Output.Dir,
	})
}
