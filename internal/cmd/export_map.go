package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/drivedrain/pkg/export"
)

var (
	exportMapFile   string
	exportMapFormat string
)

var exportMapCmd = &cobra.Command{
	Use:   "export-map",
	Short: "Print the effective export table",
	Long: `Print the export table used for native Google documents after the
mapping file and inline config entries are applied.

Kinds not listed are downloaded as stored bytes under their display name.

Example:
  drivedrain export-map
  drivedrain export-map --export-map overrides.yaml --format yaml`,
	RunE: runExportMap,
}

func init() {
	rootCmd.AddCommand(exportMapCmd)
	exportMapCmd.Flags().StringVar(&exportMapFile, "export-map", "", "YAML or JSON file overriding the export table")
	exportMapCmd.Flags().StringVar(&exportMapFormat, "format", "table", "Output format (table|yaml)")
}

func runExportMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	overrides := map[string]any{}
	if exportMapFile != "" {
		overrides["export"] = map[string]any{"mapping_file": exportMapFile}
	}
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return configExitError(err)
	}
	policy, err := exportPolicy(cfg)
	if err != nil {
		return err
	}

	switch exportMapFormat {
	case "table":
		return writePolicyTable(cmd.OutOrStdout(), policy)
	case "yaml":
		return writePolicyYAML(cmd.OutOrStdout(), policy)
	default:
		return exitError(exitInvalidArgument, "Invalid --format value", fmt.Errorf("expected table or yaml, got %q", exportMapFormat))
	}
}

func writePolicyTable(w io.Writer, policy *export.Policy) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tEXPORT MIME TYPE\tEXTENSION")
	for _, kind := range policy.Kinds() {
		t, _ := policy.Lookup(kind)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t.%s\n", kind, t.MimeType, t.Extension)
	}
	return tw.Flush()
}

// writePolicyYAML writes the table in the format LoadMappingFile reads.
func writePolicyYAML(w io.Writer, policy *export.Policy) error {
	table := make(map[string]export.Target)
	for _, kind := range policy.Kinds() {
		table[kind], _ = policy.Lookup(kind)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(table); err != nil {
		return err
	}
	return enc.Close()
}
