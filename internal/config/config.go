// Package config loads drivedrain settings from defaults, an optional config
// file, DRIVEDRAIN_* environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/3leaps/drivedrain/pkg/export"
	"github.com/3leaps/drivedrain/pkg/provider/gdrive"
)

// Config is the complete drivedrain configuration.
type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Drive       DriveConfig       `mapstructure:"drive"`
	Output      OutputConfig      `mapstructure:"output"`
	Export      ExportConfig      `mapstructure:"export"`
	Match       MatchConfig       `mapstructure:"match"`
	Run         RunConfig         `mapstructure:"run"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CredentialsConfig selects how to authenticate to Drive.
type CredentialsConfig struct {
	// File is a service-account or authorized-user JSON key.
	// Empty means Application Default Credentials.
	File string `mapstructure:"file"`

	// Subject is the user to impersonate with domain-wide delegation.
	Subject string `mapstructure:"subject"`
}

type DriveConfig struct {
	FolderID     string  `mapstructure:"folder_id"`
	PageSize     int     `mapstructure:"page_size"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	SharedDrives bool    `mapstructure:"shared_drives"`
}

type OutputConfig struct {
	// Dir receives the local copies.
	Dir string `mapstructure:"dir"`

	// Records is the JSONL destination: empty (none), "stdout" or a path.
	Records string `mapstructure:"records"`
}

type ExportConfig struct {
	MappingFile string `mapstructure:"mapping_file"`

	// Mapping is a list rather than a map because document kinds contain
	// dots, which viper treats as key separators.
	Mapping []MappingEntry `mapstructure:"mapping"`
}

// MappingEntry overrides the export target for one document kind.
type MappingEntry struct {
	Kind      string `mapstructure:"kind"`
	MimeType  string `mapstructure:"mime_type"`
	Extension string `mapstructure:"extension"`
}

// Target returns the entry's export target.
func (e MappingEntry) Target() export.Target {
	return export.Target{MimeType: e.MimeType, Extension: e.Extension}
}

type MatchConfig struct {
	Includes      []string `mapstructure:"includes"`
	Excludes      []string `mapstructure:"excludes"`
	ExcludeHidden bool     `mapstructure:"exclude_hidden"`
}

type RunConfig struct {
	// Timeout bounds the whole run. Zero means no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecordsStdout selects stdout as the JSONL destination.
const RecordsStdout = "stdout"

// Validate checks values that are wrong regardless of the command.
func (c *Config) Validate() error {
	var errs []error

	// Sizes above gdrive.MaxPageSize are clamped by the provider.
	if c.Drive.PageSize < 0 {
		errs = append(errs, fmt.Errorf("drive.page_size must be non-negative, got %d", c.Drive.PageSize))
	}
	if c.Drive.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("drive.rate_limit must be non-negative, got %v", c.Drive.RateLimit))
	}
	if c.Credentials.Subject != "" && c.Credentials.File == "" {
		errs = append(errs, errors.New("credentials.subject requires credentials.file"))
	}
	if c.Run.Timeout < 0 {
		errs = append(errs, fmt.Errorf("run.timeout must be non-negative, got %s", c.Run.Timeout))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	for i, entry := range c.Export.Mapping {
		if strings.TrimSpace(entry.Kind) == "" {
			errs = append(errs, fmt.Errorf("export.mapping[%d]: kind is required", i))
			continue
		}
		if err := entry.Target().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("export.mapping[%s]: %w", entry.Kind, err))
		}
	}

	return errors.Join(errs...)
}

// ValidateDrain additionally checks the settings a drain needs.
func (c *Config) ValidateDrain() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Drive.FolderID) == "" {
		errs = append(errs, errors.New("drive.folder_id is required (--folder or DRIVEDRAIN_DRIVE_FOLDER_ID)"))
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, errors.New("output.dir is required (--out or DRIVEDRAIN_OUTPUT_DIR)"))
	}
	return errors.Join(errs...)
}

// GDrive returns the provider configuration.
func (c *Config) GDrive() gdrive.Config {
	return gdrive.Config{
		CredentialsFile: c.Credentials.File,
		Subject:         c.Credentials.Subject,
		PageSize:        c.Drive.PageSize,
		RateLimit:       c.Drive.RateLimit,
		SharedDrives:    c.Drive.SharedDrives,
	}
}

// ExportPolicy builds the export policy: defaults, then the mapping file,
// then inline mapping entries.
func (c *Config) ExportPolicy() (*export.Policy, error) {
	policy := export.DefaultPolicy()
	if c.Export.MappingFile != "" {
		table, err := export.LoadMappingFile(c.Export.MappingFile)
		if err != nil {
			return nil, err
		}
		if policy, err = policy.With(table); err != nil {
			return nil, err
		}
	}
	if len(c.Export.Mapping) > 0 {
		inline := make(map[string]export.Target, len(c.Export.Mapping))
		for _, entry := range c.Export.Mapping {
			inline[entry.Kind] = entry.Target()
		}
		var err error
		if policy, err = policy.With(inline); err != nil {
			return nil, err
		}
	}
	return policy, nil
}
