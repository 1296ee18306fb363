package drain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/drivedrain/pkg/export"
	"github.com/3leaps/drivedrain/pkg/match"
	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/sink"
)

// DefaultPageSize is the listing page size used when Config.PageSize is zero.
const DefaultPageSize = 100

// Config describes one drain run.
type Config struct {
	// FolderID is the remote folder whose direct children are drained.
	FolderID string

	// OutputDir receives the local copies. It is created if missing.
	OutputDir string

	// PageSize is the listing page size. Default: 100.
	PageSize int

	// Matcher filters items by display name. Nil drains every item.
	Matcher *match.Matcher
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.FolderID == "" {
		return errors.New("folder id is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page size must be non-negative, got %d", c.PageSize)
	}
	return nil
}

// Runner drains one folder, one item at a time.
//
// A Runner may be reused, but runs must not overlap.
type Runner struct {
	provider  provider.Provider
	processor *Processor
	sink      *sink.Sink
	cfg       Config
	writer    output.Writer
	logger    *zap.Logger

	onListed func(total int)
	onItem   func(ItemResult)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWriter sets the JSONL record writer. Default: output.Discard.
func WithWriter(w output.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.writer = w
		}
	}
}

// WithListedHook registers fn to be called once the listing completes,
// before the first item is processed.
func WithListedHook(fn func(total int)) Option {
	return func(r *Runner) { r.onListed = fn }
}

// WithItemHook registers fn to be called after each item reaches a
// terminal state.
func WithItemHook(fn func(ItemResult)) Option {
	return func(r *Runner) { r.onItem = fn }
}

// NewRunner creates a runner. A nil policy uses export.DefaultPolicy.
func NewRunner(p provider.Provider, policy *export.Policy, cfg Config, opts ...Option) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	r := &Runner{
		provider: p,
		sink:     sink.New(cfg.OutputDir),
		cfg:      cfg,
		writer:   output.Discard,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.processor = NewProcessor(p, policy, r.sink, r.logger)
	return r
}

// Run drains the configured folder.
//
// Only pre-flight conditions are fatal: an output directory that cannot be
// created or a listing that fails returns a *RunError and no summary. Once
// items are being processed every failure is recorded in the summary and
// Run returns a nil error. A zero-item folder yields a zero summary.
//
// If ctx is cancelled between items, Run stops and returns the partial
// summary together with the context error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	log := r.logger.With(zap.String("folder_id", r.cfg.FolderID))

	if err := r.sink.Ensure(); err != nil {
		return nil, r.fail(ctx, &RunError{Stage: StageOutputDir, FolderID: r.cfg.FolderID, Path: r.sink.Dir(), Err: err})
	}

	filtering := !r.cfg.Matcher.IsEmpty()
	if filtering {
		log.Info("Name filter active",
			zap.Strings("includes", r.cfg.Matcher.IncludePatterns()),
			zap.Strings("excludes", r.cfg.Matcher.ExcludePatterns()))
	}

	items, err := r.listAll(ctx)
	if err != nil {
		return nil, r.fail(ctx, &RunError{Stage: StageList, FolderID: r.cfg.FolderID, Err: err})
	}
	log.Info("Listing complete", zap.Int("items", len(items)))
	if r.onListed != nil {
		r.onListed(len(items))
	}

	summary := &Summary{FolderID: r.cfg.FolderID, Seen: len(items)}
	var runErr error
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			runErr = err
			log.Warn("Drain interrupted", zap.Int("processed", i), zap.Int("remaining", len(items)-i), zap.Error(err))
			break
		}

		var res ItemResult
		if !filtering || r.cfg.Matcher.Match(item.Name) {
			res = r.processor.Process(ctx, item)
		} else {
			res = ItemResult{Item: item, State: StatePending}
			res.advance(StateSkipped)
			log.Debug("Item skipped by filter", zap.String("item_id", item.ID), zap.String("name", item.Name))
		}
		summary.add(res)

		// The item may have been trashed after ctx was cancelled, so its
		// record is written regardless.
		if err := r.writer.WriteItem(context.WithoutCancel(ctx), itemRecord(res)); err != nil {
			log.Warn("Failed to write item record", zap.String("item_id", item.ID), zap.Error(err))
		}
		if r.onItem != nil {
			r.onItem(res)
		}
	}

	summary.Duration = time.Since(start)
	if err := r.writer.WriteSummary(ctx, summary.Record()); err != nil {
		log.Warn("Failed to write summary record", zap.Error(err))
	}
	log.Info("Drain complete",
		zap.Int("seen", summary.Seen),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("delete_failed", summary.DeleteFailed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("bytes", summary.BytesWritten),
		zap.Duration("duration", summary.Duration))

	return summary, runErr
}

// listAll collects every page of the folder listing.
func (r *Runner) listAll(ctx context.Context) ([]provider.Item, error) {
	var (
		items []provider.Item
		token string
		pages int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := r.provider.List(ctx, provider.ListOptions{
			FolderID:  r.cfg.FolderID,
			PageToken: token,
			PageSize:  r.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}
		pages++
		items = append(items, page.Items...)

		if err := r.writer.WriteProgress(ctx, &output.ProgressRecord{
			Phase:       output.PhaseListing,
			Pages:       pages,
			ItemsListed: len(items),
		}); err != nil {
			r.logger.Warn("Failed to write progress record", zap.Int("page", pages), zap.Error(err))
		}

		if page.NextPageToken == "" {
			return items, nil
		}
		if page.NextPageToken == token {
			return nil, fmt.Errorf("listing did not advance past page %d", pages)
		}
		token = page.NextPageToken
	}
}

func (r *Runner) fail(ctx context.Context, err *RunError) error {
	r.logger.Error("Drain aborted",
		zap.String("folder_id", err.FolderID),
		zap.String("stage", string(err.Stage)),
		zap.Error(err.Err))
	_ = r.writer.WriteError(context.WithoutCancel(ctx), &output.ErrorRecord{
		Code:     ErrorCode(err.Err),
		Message:  err.Error(),
		Stage:    string(err.Stage),
		FolderID: err.FolderID,
	})
	return err
}
