package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrNotFound indicates the requested item or folder does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the provider service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")

	// ErrNotDownloadable indicates the item's content cannot be fetched in
	// the requested form (e.g. a native document without an export mapping).
	ErrNotDownloadable = errors.New("content not downloadable")
)

// ProviderError wraps provider-specific errors with context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "List", "Export", "Trash").
	Op string

	// Provider is the provider type (e.g., "gdrive").
	Provider ProviderType

	// Scope is the folder ID or credential source, if applicable.
	Scope string

	// ItemID is the item identifier, if applicable.
	ItemID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch {
	case e.ItemID != "":
		return fmt.Sprintf("%s %s: item %s: %v", e.Provider, e.Op, e.ItemID, e.Err)
	case e.Scope != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Scope, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an item was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates the provider service is unavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsNotDownloadable returns true if the item content cannot be fetched as requested.
func IsNotDownloadable(err error) bool {
	return errors.Is(err, ErrNotDownloadable)
}
