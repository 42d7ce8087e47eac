package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/internal/logger"
	"github.com/ppra-watch/tender-sentinel/internal/notify"
	"github.com/ppra-watch/tender-sentinel/internal/storage"
)

// Stage names one step of the monitoring run.
type Stage string

const (
	StageCollecting Stage = "collecting"
	StageDiffing    Stage = "diffing"
	StageNotifying  Stage = "notifying"
	StageCommitting Stage = "committing"
)

// StageError is a run-fatal failure attributed to one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Collector is the snapshot capability the runner consumes. The binding of
// source config and scope filter happens at wiring time.
type Collector interface {
	Collect(ctx context.Context) ([]domain.Tender, error)
}

// Dispatcher delivers a batch of tenders and reports every outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, tenders []domain.Tender, city string) *notify.DispatchReport
	Size() int
}

// Options configures one runner.
type Options struct {
	// City is the scope filter recorded in the summary and passed to
	// message formatting; the collector already applied it.
	City           string
	CollectTimeout time.Duration
}

// Summary is the outcome of one run.
type Summary struct {
	City       string                        `json:"city,omitempty"`
	Scraped    int                           `json:"scraped"`
	New        int                           `json:"new"`
	Duplicates int                           `json:"duplicates"`
	Rejected   int                           `json:"rejected"`
	Delivered  int                           `json:"delivered"`
	Partial    int                           `json:"partial"`
	Undeliver  int                           `json:"undelivered"`
	PerChannel map[string]notify.ChannelStats `json:"per_channel,omitempty"`
	Committed  bool                          `json:"committed"`
	StartedAt  time.Time                     `json:"started_at"`
	ElapsedMs  int64                         `json:"elapsed_ms"`
}

// Runner sequences one monitoring run:
// Collecting -> Diffing -> Notifying -> Committing -> Done.
//
// Ordering is deliberately notify-then-commit: a crash between the two can
// re-notify records on the next run (at-least-once delivery), but a tender
// is never silently recorded as seen before its notifications were
// attempted. The commit covers every new record regardless of delivery
// outcome, so persistently failing notifications cannot re-fire forever.
type Runner struct {
	collector  Collector
	store      storage.Store
	dispatcher Dispatcher
	opts       Options
	log        logger.Logger
}

// NewRunner wires a runner from its collaborators.
func NewRunner(c Collector, store storage.Store, d Dispatcher, opts Options, log logger.Logger) *Runner {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Runner{collector: c, store: store, dispatcher: d, opts: opts, log: log}
}

// Run executes the full state machine once. A non-nil error is stage-fatal
// and carries the failing stage; delivery failures are never fatal and live
// only in the summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r == nil || r.collector == nil || r.store == nil || r.dispatcher == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}

	start := time.Now()
	summary := &Summary{City: r.opts.City, StartedAt: start.UTC()}
	defer func() { summary.ElapsedMs = time.Since(start).Milliseconds() }()

	snapshot, err := r.collect(ctx)
	if err != nil {
		return summary, &StageError{Stage: StageCollecting, Err: err}
	}
	summary.Scraped = len(snapshot)
	r.log.InfoObj("collection completed", "collect_result", map[string]any{
		"scraped": len(snapshot),
		"city":    r.opts.City,
	})

	known, err := r.store.Load(ctx)
	if err != nil {
		return summary, &StageError{Stage: StageDiffing, Err: err}
	}
	diff := storage.Diff(snapshot, known)
	summary.New = len(diff.Fresh)
	summary.Duplicates = diff.Duplicates
	summary.Rejected = diff.Rejected
	r.log.InfoObj("diff completed", "diff_result", map[string]any{
		"known":      len(known),
		"new":        len(diff.Fresh),
		"duplicates": diff.Duplicates,
		"rejected":   diff.Rejected,
	})

	if len(diff.Fresh) == 0 {
		r.logSummary(summary)
		return summary, nil
	}

	r.log.InfoObj("dispatching notifications", "dispatch_meta", map[string]any{
		"records":  len(diff.Fresh),
		"channels": r.dispatcher.Size(),
	})
	report := r.dispatcher.Dispatch(ctx, diff.Fresh, r.opts.City)
	summary.Delivered, summary.Partial, summary.Undeliver = report.Counts()
	summary.PerChannel = report.PerChannel()
	if err := ctx.Err(); err != nil {
		// Cancelled before commit: store stays untouched, the run is
		// safely re-runnable (some records may be re-notified).
		return summary, &StageError{Stage: StageNotifying, Err: err}
	}

	if err := r.store.Commit(ctx, diff.Fresh); err != nil {
		return summary, &StageError{Stage: StageCommitting, Err: err}
	}
	summary.Committed = true

	r.logSummary(summary)
	return summary, nil
}

// DeliverAll is the dry-delivery entry point: it notifies every currently
// active tender in the snapshot without consulting or updating the store.
func (r *Runner) DeliverAll(ctx context.Context) (*Summary, error) {
	if r == nil || r.collector == nil || r.dispatcher == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}

	start := time.Now()
	summary := &Summary{City: r.opts.City, StartedAt: start.UTC()}
	defer func() { summary.ElapsedMs = time.Since(start).Milliseconds() }()

	snapshot, err := r.collect(ctx)
	if err != nil {
		return summary, &StageError{Stage: StageCollecting, Err: err}
	}
	summary.Scraped = len(snapshot)

	// Still drop unidentifiable and repeated rows; only the known-set
	// comparison is bypassed.
	diff := storage.Diff(snapshot, map[string]struct{}{})
	summary.New = len(diff.Fresh)
	summary.Duplicates = diff.Duplicates
	summary.Rejected = diff.Rejected

	r.log.InfoObj("dispatching notifications", "dispatch_meta", map[string]any{
		"records":  len(diff.Fresh),
		"channels": r.dispatcher.Size(),
	})
	report := r.dispatcher.Dispatch(ctx, diff.Fresh, r.opts.City)
	summary.Delivered, summary.Partial, summary.Undeliver = report.Counts()
	summary.PerChannel = report.PerChannel()
	if err := ctx.Err(); err != nil {
		return summary, &StageError{Stage: StageNotifying, Err: err}
	}

	r.logSummary(summary)
	return summary, nil
}

func (r *Runner) collect(ctx context.Context) ([]domain.Tender, error) {
	if r.opts.CollectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CollectTimeout)
		defer cancel()
	}
	return r.collector.Collect(ctx)
}

func (r *Runner) logSummary(s *Summary) {
	r.log.InfoObj("run summary", "run_summary", s)
}
