package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/3leaps/drivedrain/pkg/provider"
)

// listFields restricts list responses to what the drain workflow reads.
const listFields googleapi.Field = "nextPageToken, files(id, name, mimeType, size, modifiedTime, trashed)"

// Provider implements provider.Provider for Google Drive.
type Provider struct {
	svc          *drive.Service
	pageSize     int
	sharedDrives bool

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter
}

var _ provider.Provider = (*Provider)(nil)

// New authenticates and creates a Google Drive provider.
//
// Credential loading failures are returned as *provider.ProviderError with
// Op "Authenticate" wrapping provider.ErrInvalidCredentials. Tokens are
// fetched lazily, so rejected credentials may also surface on the first List.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newWithOptions(ctx, cfg, option.WithTokenSource(ts))
}

func newWithOptions(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Provider, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderGoogleDrive, Err: err}
	}

	p := &Provider{
		svc:          svc,
		pageSize:     clampPageSize(cfg.PageSize, DefaultPageSize),
		sharedDrives: cfg.SharedDrives,
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return p, nil
}

// List returns a page of non-trashed items directly under opts.FolderID.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("List", opts.FolderID, "", err)
	}

	call := p.svc.Files.List().
		Q(folderQuery(opts.FolderID)).
		PageSize(int64(clampPageSize(opts.PageSize, p.pageSize))).
		Fields(listFields).
		Context(ctx)
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if p.sharedDrives {
		call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
	}

	out, err := call.Do()
	if err != nil {
		return nil, p.wrapError("List", opts.FolderID, "", err)
	}

	items := make([]provider.Item, 0, len(out.Files))
	for _, f := range out.Files {
		items = append(items, toItem(f))
	}

	return &provider.ListResult{Items: items, NextPageToken: out.NextPageToken}, nil
}

// Export streams a native document converted to mimeType.
func (p *Provider) Export(ctx context.Context, id, mimeType string) (io.ReadCloser, error) {
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("Export", "", id, err)
	}

	resp, err := p.svc.Files.Export(id, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, p.wrapError("Export", "", id, err)
	}
	return resp.Body, nil
}

// Download streams the stored bytes of a binary item.
func (p *Provider) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("Download", "", id, err)
	}

	call := p.svc.Files.Get(id).Context(ctx)
	if p.sharedDrives {
		call = call.SupportsAllDrives(true)
	}
	resp, err := call.Download()
	if err != nil {
		return nil, p.wrapError("Download", "", id, err)
	}
	return resp.Body, nil
}

// Trash moves an item to the Drive trash. The item stays recoverable until
// the trash is emptied; this provider never issues files.delete.
func (p *Provider) Trash(ctx context.Context, id string) error {
	if err := p.wait(ctx); err != nil {
		return p.wrapError("Trash", "", id, err)
	}

	call := p.svc.Files.Update(id, &drive.File{Trashed: true}).
		Fields("id, trashed").
		Context(ctx)
	if p.sharedDrives {
		call = call.SupportsAllDrives(true)
	}
	if _, err := call.Do(); err != nil {
		return p.wrapError("Trash", "", id, err)
	}
	return nil
}

// Close releases any resources held by the provider.
// The Drive service doesn't require explicit cleanup.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// wrapError converts Drive API errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, scope, id string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderGoogleDrive,
		Scope:    scope,
		ItemID:   id,
		Err:      err,
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return wrapped
	}

	var sentinel error
	switch {
	case apiErr.Code == http.StatusUnauthorized:
		sentinel = provider.ErrInvalidCredentials
	case apiErr.Code == http.StatusTooManyRequests,
		hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded"):
		sentinel = provider.ErrThrottled
	case hasReason(apiErr, "fileNotDownloadable", "cannotExportFile", "exportSizeLimitExceeded"):
		sentinel = provider.ErrNotDownloadable
	case apiErr.Code == http.StatusForbidden:
		sentinel = provider.ErrAccessDenied
	case apiErr.Code == http.StatusNotFound:
		sentinel = provider.ErrNotFound
	case apiErr.Code >= http.StatusInternalServerError:
		sentinel = provider.ErrProviderUnavailable
	}
	if sentinel != nil {
		wrapped.Err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return wrapped
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		if slices.Contains(reasons, item.Reason) {
			return true
		}
	}
	return false
}

// folderQuery builds the Drive search query for direct, non-trashed children.
func folderQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}

func toItem(f *drive.File) provider.Item {
	item := provider.Item{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		Trashed:  f.Trashed,
	}
	if f.ModifiedTime != "" {
		if ts, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			item.ModifiedTime = ts
		}
	}
	return item
}
