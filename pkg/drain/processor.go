// Package drain moves the contents of one remote folder to local disk and
// trashes each remote item once its local copy is written.
package drain

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/drivedrain/pkg/export"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/sink"
)

// trashTimeout bounds the trash call that follows a completed transfer.
// The call runs detached from the caller's cancellation so that a written
// item is not left half-processed by an interrupt.
const trashTimeout = 30 * time.Second

// Outcome is the result of transferring one item to local disk.
type Outcome struct {
	// Path is the resolved local path, set even when the write failed.
	Path  string
	Bytes int64

	// ExportMimeType is set when the item was exported instead of downloaded.
	ExportMimeType string

	Err error
}

// Succeeded reports whether the transfer completed without error.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// ItemResult is the terminal record for one listed item.
type ItemResult struct {
	Item     provider.Item
	State    State
	Outcome  Outcome
	TrashErr error
}

// Err returns the error that determined the item's terminal state.
func (r ItemResult) Err() error {
	if r.Outcome.Err != nil {
		return r.Outcome.Err
	}
	return r.TrashErr
}

// Resolution describes how an item will be transferred.
type Resolution struct {
	// LocalName is the file name written under the output directory.
	LocalName string

	// Target is set when Exported is true.
	Target   export.Target
	Exported bool

	// Unmapped is true for a native document kind with no export mapping.
	Unmapped bool
}

// Processor transfers a single item and trashes it on success.
type Processor struct {
	provider provider.Provider
	policy   *export.Policy
	sink     *sink.Sink
	logger   *zap.Logger
}

// NewProcessor creates a processor. A nil policy uses export.DefaultPolicy
// and a nil logger discards log output.
func NewProcessor(p provider.Provider, policy *export.Policy, s *sink.Sink, logger *zap.Logger) *Processor {
	if policy == nil {
		policy = export.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{provider: p, policy: policy, sink: s, logger: logger}
}

// Resolve decides between export and download for item. It has no side
// effects.
func (p *Processor) Resolve(item provider.Item) Resolution {
	if target, ok := p.policy.Lookup(item.MimeType); ok {
		return Resolution{
			LocalName: export.FileName(item.Name, target),
			Target:    target,
			Exported:  true,
		}
	}
	return Resolution{
		LocalName: item.Name,
		Unmapped:  export.IsNativeDocument(item.MimeType),
	}
}

// Process transfers item and, only if the transfer succeeded, moves the
// remote item to the trash. Errors are recorded in the result, never
// returned.
func (p *Processor) Process(ctx context.Context, item provider.Item) ItemResult {
	res := ItemResult{Item: item, State: StatePending}
	res.advance(StateTransferring)
	log := p.logger.With(
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
		zap.String("mime_type", item.MimeType),
	)

	res.Outcome = p.transfer(ctx, item, log)
	if !res.Outcome.Succeeded() {
		res.advance(StateTransferFailed)
		log.Warn("Transfer failed",
			zap.String("path", res.Outcome.Path),
			zap.String("state", string(res.State)),
			zap.Error(res.Outcome.Err))
		return res
	}
	res.advance(StateTransferred)

	trashCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trashTimeout)
	defer cancel()
	if err := p.provider.Trash(trashCtx, item.ID); err != nil {
		res.advance(StateDeleteFailed)
		res.TrashErr = err
		log.Warn("Trash failed; local copy kept",
			zap.String("path", res.Outcome.Path),
			zap.String("state", string(res.State)),
			zap.Error(err))
		return res
	}

	res.advance(StateDeleted)
	log.Info("Item drained",
		zap.String("path", res.Outcome.Path),
		zap.Int64("bytes", res.Outcome.Bytes),
		zap.String("state", string(res.State)))
	return res
}

func (p *Processor) transfer(ctx context.Context, item provider.Item, log *zap.Logger) Outcome {
	resolved := p.Resolve(item)

	var out Outcome
	if path, err := p.sink.Resolve(resolved.LocalName); err == nil {
		out.Path = path
	} else {
		out.Err = err
		return out
	}

	var (
		body io.ReadCloser
		err  error
	)
	if resolved.Exported {
		out.ExportMimeType = resolved.Target.MimeType
		body, err = p.provider.Export(ctx, item.ID, resolved.Target.MimeType)
	} else {
		if resolved.Unmapped {
			log.Warn("No export mapping for native document kind; attempting direct download")
		}
		body, err = p.provider.Download(ctx, item.ID)
	}
	if err != nil {
		out.Err = err
		return out
	}

	_, n, err := p.sink.Write(ctx, resolved.LocalName, body)
	if closeErr := body.Close(); closeErr != nil {
		log.Debug("Closing transfer stream failed", zap.Error(closeErr))
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Bytes = n
	return out
}
