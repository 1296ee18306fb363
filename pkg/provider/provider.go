// Package provider defines abstractions for remote file-store operations.
//
// Providers implement a minimal surface focused on draining a single folder:
// listing its children, fetching content (raw or exported) and moving items to
// the store's trash. Providers never expose a permanent delete.
package provider

import (
	"context"
	"io"
	"time"
)

// Provider abstracts the remote store operations used by the drain workflow.
//
// Implementations should:
//   - Support pagination via continuation tokens
//   - Return *ProviderError values wrapping the sentinel errors below
//   - Implement Trash as a recoverable soft delete
type Provider interface {
	// List returns a page of non-trashed items directly under FolderID.
	// Use NextPageToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Export streams the item's content converted to mimeType.
	Export(ctx context.Context, id, mimeType string) (io.ReadCloser, error)

	// Download streams the item's stored bytes.
	Download(ctx context.Context, id string) (io.ReadCloser, error)

	// Trash moves the item to the store's trash.
	Trash(ctx context.Context, id string) error

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// FolderID is the parent folder whose children are listed.
	FolderID string

	// PageToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	PageToken string

	// PageSize limits the number of items returned per page.
	// Zero uses the provider default.
	PageSize int
}

// ListResult contains a page of items from a List operation.
type ListResult struct {
	// Items contains the items for this page, in provider order.
	Items []Item

	// NextPageToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	NextPageToken string
}

// Item is a remote file as returned by List.
type Item struct {
	// ID is the provider's opaque identifier, unique per store.
	ID string

	// Name is the display name. It is neither unique nor filesystem-safe.
	Name string

	// MimeType identifies either a binary content type or a
	// provider-native document kind.
	MimeType string

	// Size is the stored size in bytes. Native documents report zero.
	Size int64

	// ModifiedTime is when the item was last modified.
	ModifiedTime time.Time

	// Trashed reports whether the item is already in the trash.
	Trashed bool
}

// ProviderType identifies a remote store provider.
type ProviderType string

const (
	// ProviderGoogleDrive represents Google Drive.
	ProviderGoogleDrive ProviderType = "gdrive"

	// ProviderMemory represents the in-memory provider used in tests.
	ProviderMemory ProviderType = "memory"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
