// Package mock provides an in-memory provider.Provider for tests.
package mock

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/3leaps/drivedrain/pkg/provider"
)

// DefaultPageSize mirrors the Drive default when ListOptions.PageSize is zero.
const DefaultPageSize = 100

// Call records one provider invocation, in order.
type Call struct {
	Op        string // List | Export | Download | Trash
	ItemID    string
	FolderID  string
	PageToken string
	PageSize  int
	MimeType  string
}

type entry struct {
	item    provider.Item
	parent  string
	content []byte
	exports map[string][]byte
}

// Provider implements provider.Provider backed by memory.
type Provider struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	calls   []Call

	// Error simulation
	ListErr      error
	DownloadErrs map[string]error
	ExportErrs   map[string]error
	TrashErrs    map[string]error
	// ReadErrs makes the returned stream fail after its first byte.
	ReadErrs map[string]error
}

var _ provider.Provider = (*Provider)(nil)

// New creates an empty in-memory provider.
func New() *Provider {
	return &Provider{
		byID:         make(map[string]*entry),
		DownloadErrs: make(map[string]error),
		ExportErrs:   make(map[string]error),
		TrashErrs:    make(map[string]error),
		ReadErrs:     make(map[string]error),
	}
}

// AddFile adds an item under parent with the given stored content.
func (p *Provider) AddFile(parent string, item provider.Item, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item.Size == 0 {
		item.Size = int64(len(content))
	}
	e := &entry{item: item, parent: parent, content: content, exports: make(map[string][]byte)}
	p.entries = append(p.entries, e)
	p.byID[item.ID] = e
}

// SetExport sets the content returned when id is exported as mimeType.
func (p *Provider) SetExport(id, mimeType string, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byID[id]; ok {
		e.exports[mimeType] = content
	}
}

// Calls returns a copy of every recorded call in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsFor returns the recorded calls for a single operation.
func (p *Provider) CallsFor(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Trashed reports whether id has been moved to the trash.
func (p *Provider) Trashed(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[id]
	return ok && e.item.Trashed
}

func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: "List", FolderID: opts.FolderID, PageToken: opts.PageToken, PageSize: opts.PageSize})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ListErr != nil {
		return nil, p.wrap("List", "", p.ListErr)
	}

	var children []provider.Item
	for _, e := range p.entries {
		if e.parent == opts.FolderID && !e.item.Trashed {
			children = append(children, e.item)
		}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := 0
	if opts.PageToken != "" {
		n, err := strconv.Atoi(opts.PageToken)
		if err != nil || n < 0 || n > len(children) {
			return nil, p.wrap("List", "", provider.ErrNotFound)
		}
		start = n
	}
	end := min(start+pageSize, len(children))

	res := &provider.ListResult{Items: append([]provider.Item(nil), children[start:end]...)}
	if end < len(children) {
		res.NextPageToken = strconv.Itoa(end)
	}
	return res, nil
}

func (p *Provider) Export(ctx context.Context, id, mimeType string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: "Export", ItemID: id, MimeType: mimeType})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.ExportErrs[id]; err != nil {
		return nil, p.wrap("Export", id, err)
	}
	e, ok := p.byID[id]
	if !ok {
		return nil, p.wrap("Export", id, provider.ErrNotFound)
	}
	content, ok := e.exports[mimeType]
	if !ok {
		return nil, p.wrap("Export", id, provider.ErrNotDownloadable)
	}
	return p.stream(id, content), nil
}

func (p *Provider) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: "Download", ItemID: id})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.DownloadErrs[id]; err != nil {
		return nil, p.wrap("Download", id, err)
	}
	e, ok := p.byID[id]
	if !ok {
		return nil, p.wrap("Download", id, provider.ErrNotFound)
	}
	// Native documents have no stored bytes.
	if strings.HasPrefix(e.item.MimeType, "application/vnd.google-apps.") {
		return nil, p.wrap("Download", id, provider.ErrNotDownloadable)
	}
	return p.stream(id, e.content), nil
}

func (p *Provider) Trash(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: "Trash", ItemID: id})

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.TrashErrs[id]; err != nil {
		return p.wrap("Trash", id, err)
	}
	e, ok := p.byID[id]
	if !ok {
		return p.wrap("Trash", id, provider.ErrNotFound)
	}
	e.item.Trashed = true
	return nil
}

func (p *Provider) Close() error { return nil }

func (p *Provider) stream(id string, content []byte) io.ReadCloser {
	if err := p.ReadErrs[id]; err != nil {
		return &failingReader{head: content[:min(1, len(content))], err: err}
	}
	return io.NopCloser(bytes.NewReader(content))
}

func (p *Provider) wrap(op, id string, err error) error {
	return &provider.ProviderError{Op: op, Provider: provider.ProviderMemory, ItemID: id, Err: err}
}

// failingReader yields head and then err.
type failingReader struct {
	head []byte
	err  error
}

func (r *failingReader) Read(b []byte) (int, error) {
	if len(r.head) > 0 {
		n := copy(b, r.head)
		r.head = r.head[n:]
		return n, nil
	}
	return 0, r.err
}

func (r *failingReader) Close() error { return nil }
