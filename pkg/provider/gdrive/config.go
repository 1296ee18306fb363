// Package gdrive implements the provider interface for Google Drive.
package gdrive

// Config configures a Google Drive provider.
//
// Authentication priority:
//  1. CredentialsFile with Subject: service-account JWT impersonating Subject
//     (domain-wide delegation)
//  2. CredentialsFile: service-account or authorized-user JSON
//  3. Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS,
//     gcloud user credentials, GCE/GKE metadata server)
type Config struct {
	// CredentialsFile is the path to a JSON credential file.
	// Leave empty to use Application Default Credentials.
	CredentialsFile string

	// Subject is the user a service account impersonates.
	// Requires CredentialsFile to hold a service-account key.
	Subject string

	// PageSize is the default page size for List operations.
	// Zero uses DefaultPageSize. Values over MaxPageSize are clamped.
	PageSize int

	// RateLimit is the maximum API requests per second.
	// Zero means unlimited.
	RateLimit float64

	// SharedDrives enables items that live in shared drives.
	SharedDrives bool
}

// DefaultPageSize is the default page size for List operations.
const DefaultPageSize = 100

// MaxPageSize is the maximum page size accepted by the Drive API.
const MaxPageSize = 1000

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Subject != "" && c.CredentialsFile == "" {
		return &ConfigError{Field: "Subject", Message: "impersonation requires a service-account credentials file"}
	}
	if c.PageSize < 0 {
		return &ConfigError{Field: "PageSize", Message: "page size must not be negative"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "rate limit must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "gdrive config: " + e.Field + ": " + e.Message
}

// clampPageSize applies defaults and limits to page sizes.
// If requested is <= 0, uses providerDefault. Result is clamped to MaxPageSize.
func clampPageSize(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxPageSize {
		return MaxPageSize
	}
	return requested
}
