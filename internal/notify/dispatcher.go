package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/internal/logger"
	"github.com/ppra-watch/tender-sentinel/pkg/channels"
)

// Options controls retry and throttling behavior for a dispatcher.
type Options struct {
	// RetryMax is the number of in-run retries after the first attempt,
	// applied only to retryable failures.
	RetryMax     int
	RetryBackoff time.Duration
	// SendTimeout bounds each individual channel send.
	SendTimeout time.Duration
	// MinSendDelay is the global minimum gap between successive sends once
	// a batch exceeds DelayThreshold records. It throttles the overall
	// request rate, not each worker separately.
	MinSendDelay   time.Duration
	DelayThreshold int
}

const (
	defaultSendTimeout  = 30 * time.Second
	defaultRetryBackoff = time.Second
)

// Dispatcher delivers one message per tender per channel. Records are
// processed in input order; the channels of a single record run
// independently so one channel's failure never blocks another.
type Dispatcher struct {
	channels []channels.Channel
	opts     Options
	log      logger.Logger
}

// NewDispatcher builds a dispatcher over the given channels.
func NewDispatcher(chs []channels.Channel, opts Options, log logger.Logger) *Dispatcher {
	cp := make([]channels.Channel, 0, len(chs))
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		cp = append(cp, ch)
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Dispatcher{channels: cp, opts: opts, log: log}
}

// Size returns the number of active channels.
func (d *Dispatcher) Size() int {
	if d == nil {
		return 0
	}
	return len(d.channels)
}

// Dispatch sends every tender over every channel and reports each outcome.
// It never returns early on delivery failures; only context cancellation
// stops the pass, and the report then covers the records attempted so far.
func (d *Dispatcher) Dispatch(ctx context.Context, tenders []domain.Tender, city string) *DispatchReport {
	report := &DispatchReport{Records: make([]RecordReport, 0, len(tenders))}
	if d == nil || len(d.channels) == 0 || len(tenders) == 0 {
		return report
	}

	var limiter *rate.Limiter
	if d.opts.MinSendDelay > 0 && len(tenders) > d.opts.DelayThreshold {
		limiter = rate.NewLimiter(rate.Every(d.opts.MinSendDelay), 1)
	}

	for _, t := range tenders {
		if ctx.Err() != nil {
			break
		}

		msg := Format(t, city)
		rec := RecordReport{
			Identity: t.Identity(),
			Outcomes: make([]SendOutcome, len(d.channels)),
		}

		var wg sync.WaitGroup
		for i, ch := range d.channels {
			wg.Add(1)
			go func(i int, ch channels.Channel) {
				defer wg.Done()
				rec.Outcomes[i] = d.sendWithRetry(ctx, ch, msg, limiter)
			}(i, ch)
		}
		wg.Wait()

		report.Records = append(report.Records, rec)
		d.log.DebugObj("tender dispatched", "dispatch_record", map[string]any{
			"tender_number": t.Number,
			"status":        rec.Status().String(),
		})
	}

	return report
}

// sendWithRetry performs one delivery with bounded retries and backoff.
// Terminal failures are never retried.
func (d *Dispatcher) sendWithRetry(ctx context.Context, ch channels.Channel, msg channels.Message, limiter *rate.Limiter) SendOutcome {
	outcome := SendOutcome{ChannelID: ch.ID(), ChannelType: ch.Type()}

	for {
		outcome.Attempts++

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				outcome.Error = err.Error()
				return outcome
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		receipt, err := ch.Send(sendCtx, msg)
		cancel()

		if err == nil {
			outcome.Sent = true
			outcome.ReceiptID = receipt
			return outcome
		}

		outcome.Error = err.Error()
		d.log.WarnObj("channel send failed", "dispatch_send_error", map[string]any{
			"channel_id":    ch.ID(),
			"channel_type":  ch.Type(),
			"tender_number": msg.Tender.Number,
			"attempt":       outcome.Attempts,
			"retryable":     channels.Retryable(err),
			"error":         err.Error(),
		})

		if !channels.Retryable(err) || outcome.Attempts > d.opts.RetryMax {
			return outcome
		}

		backoff := time.Duration(outcome.Attempts) * d.opts.RetryBackoff
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcome
		case <-timer.C:
		}
	}
}
