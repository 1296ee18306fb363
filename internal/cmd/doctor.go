package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/drivedrain/internal/config"
	"github.com/3leaps/drivedrain/internal/observability"
	"github.com/3leaps/drivedrain/pkg/provider"
)

var (
	doctorLive   bool
	doctorFolder string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and the configured credentials.

Examples:
  drivedrain doctor                        # Local checks only
  drivedrain doctor --live --folder 1AbC   # Also list one item from the folder`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorLive, "live", false, "Authenticate and list one item from the configured folder")
	doctorCmd.Flags().StringVar(&doctorFolder, "folder", "", "Folder ID for the live check (default: drive.folder_id)")
}

// credentialFile holds the fields of a Google JSON key that are safe to report.
type credentialFile struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	PrivateKeyID string `json:"private_key_id"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	overrides := map[string]any{}
	if doctorFolder != "" {
		overrides["drive"] = map[string]any{"folder_id": doctorFolder}
	}
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return configExitError(err)
	}

	log := observability.CLILogger
	log.Info("=== " + appName + " doctor ===")
	log.Info("Running diagnostic checks...")

	allChecks := true
	checkNum := 1
	totalChecks := 4
	if doctorLive {
		totalChecks = 5
	}

	goVersion := runtime.Version()
	log.Info(fmt.Sprintf("[%d/%d] Checking Go runtime... ✅ %s %s/%s", checkNum, totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
		zap.String("go_version", goVersion))
	checkNum++

	if configDir, err := os.UserConfigDir(); err != nil {
		log.Warn(fmt.Sprintf("[%d/%d] Checking config directory... ⚠️  Cannot find config directory", checkNum, totalChecks), zap.Error(err))
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking config directory... ✅ %s", checkNum, totalChecks, configDir),
			zap.Strings("search_paths", config.DefaultSearchPaths()))
	}
	checkNum++

	if !checkCredentials(cfg, checkNum, totalChecks) {
		allChecks = false
	}
	checkNum++

	if cfg.Output.Dir == "" {
		log.Warn(fmt.Sprintf("[%d/%d] Checking output directory... ⚠️  output.dir is not set", checkNum, totalChecks))
	} else if info, err := os.Stat(cfg.Output.Dir); err == nil && !info.IsDir() {
		log.Error(fmt.Sprintf("[%d/%d] Checking output directory... ❌ %s is not a directory", checkNum, totalChecks, cfg.Output.Dir))
		allChecks = false
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error(fmt.Sprintf("[%d/%d] Checking output directory... ❌ %s", checkNum, totalChecks, cfg.Output.Dir), zap.Error(err))
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking output directory... ✅ %s", checkNum, totalChecks, cfg.Output.Dir))
	}
	checkNum++

	var liveErr error
	if doctorLive {
		liveErr = checkLiveList(ctx, cfg, checkNum, totalChecks)
		if liveErr != nil {
			allChecks = false
		}
	}

	if allChecks {
		log.Info("✅ All checks passed!")
	} else {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	log.Info("=== End Diagnostics ===")

	if liveErr != nil {
		return providerExitError("Live check failed", liveErr)
	}
	return nil
}

func checkCredentials(cfg *config.Config, checkNum, totalChecks int) bool {
	log := observability.CLILogger
	path := cfg.Credentials.File
	if path == "" {
		if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env != "" {
			path = env
		} else {
			log.Info(fmt.Sprintf("[%d/%d] Checking credentials... ✅ Using Application Default Credentials", checkNum, totalChecks))
			return true
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking credentials... ❌ Cannot read %s", checkNum, totalChecks, path), zap.Error(err))
		printCredentialsHelp()
		return false
	}

	var creds credentialFile
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking credentials... ❌ %s is not a JSON key file", checkNum, totalChecks, path), zap.Error(err))
		return false
	}

	if cfg.Credentials.Subject != "" && creds.Type != "service_account" {
		log.Error(fmt.Sprintf("[%d/%d] Checking credentials... ❌ impersonation needs a service_account key, got %q", checkNum, totalChecks, creds.Type))
		return false
	}

	fields := []zap.Field{zap.String("type", creds.Type), zap.String("file", path)}
	if creds.ClientEmail != "" {
		fields = append(fields, zap.String("client_email", creds.ClientEmail))
	}
	if creds.PrivateKeyID != "" {
		fields = append(fields, zap.String("private_key_id", maskKeyID(creds.PrivateKeyID)))
	}
	if cfg.Credentials.Subject != "" {
		fields = append(fields, zap.String("subject", cfg.Credentials.Subject))
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking credentials... ✅ Found %s key", checkNum, totalChecks, creds.Type), fields...)
	return true
}

func checkLiveList(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) error {
	log := observability.CLILogger
	if cfg.Drive.FolderID == "" {
		err := errors.New("no folder configured (--folder or drive.folder_id)")
		log.Error(fmt.Sprintf("[%d/%d] Checking folder access... ❌ %v", checkNum, totalChecks, err))
		return err
	}

	prov, err := newProvider(ctx, cfg.GDrive())
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking folder access... ❌ Authentication failed", checkNum, totalChecks), zap.Error(err))
		return err
	}
	defer func() { _ = prov.Close() }()

	res, err := prov.List(ctx, provider.ListOptions{FolderID: cfg.Drive.FolderID, PageSize: 1})
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking folder access... ❌ Cannot list %s", checkNum, totalChecks, cfg.Drive.FolderID), zap.Error(err))
		return err
	}

	log.Info(fmt.Sprintf("[%d/%d] Checking folder access... ✅ %s", checkNum, totalChecks, cfg.Drive.FolderID),
		zap.Bool("empty", len(res.Items) == 0))
	return nil
}

// maskKeyID masks all but the last 4 characters of a key identifier.
func maskKeyID(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}

func printCredentialsHelp() {
	log := observability.CLILogger
	log.Info("To configure Google credentials:")
	log.Info("  1. Pass --credentials /path/to/key.json or set DRIVEDRAIN_CREDENTIALS, or")
	log.Info("  2. Set GOOGLE_APPLICATION_CREDENTIALS, or")
	log.Info("  3. Run 'gcloud auth application-default login'")
}
