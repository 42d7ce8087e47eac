package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/pkg/channels"
)

type stubChannel struct {
	mu       sync.Mutex
	id       string
	typ      string
	err      error
	failures int
	calls    int
	bodies   []string
}

func (s *stubChannel) ID() string   { return s.id }
func (s *stubChannel) Type() string { return s.typ }

func (s *stubChannel) Send(_ context.Context, msg channels.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.bodies = append(s.bodies, msg.Body)
	if s.err != nil && (s.failures == 0 || s.calls <= s.failures) {
		return "", s.err
	}
	return "receipt-1", nil
}

func (s *stubChannel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDispatchDeliversEveryRecordToEveryChannel(t *testing.T) {
	chA := &stubChannel{id: "tg1", typ: "telegram"}
	chB := &stubChannel{id: "mail1", typ: "email"}
	d := NewDispatcher([]channels.Channel{chA, chB}, Options{}, nil)

	tenders := []domain.Tender{{Number: "TS-1"}, {Number: "TS-2"}}
	report := d.Dispatch(context.Background(), tenders, "")

	if len(report.Records) != 2 {
		t.Fatalf("expected 2 record reports, got %d", len(report.Records))
	}
	delivered, partial, failed := report.Counts()
	if delivered != 2 || partial != 0 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d", delivered, partial, failed)
	}
	if chA.callCount() != 2 || chB.callCount() != 2 {
		t.Fatalf("every channel should see every record: %d and %d", chA.callCount(), chB.callCount())
	}
	if report.Records[0].Identity != "ts-1" || report.Records[1].Identity != "ts-2" {
		t.Fatalf("records out of order: %#v", report.Records)
	}
}

func TestDispatchChannelFailureDoesNotBlockOthers(t *testing.T) {
	bad := &stubChannel{id: "tg1", typ: "telegram", err: &channels.SendError{Reason: "unauthorized", Terminal: true}}
	good := &stubChannel{id: "hook1", typ: "webhook"}
	d := NewDispatcher([]channels.Channel{bad, good}, Options{}, nil)

	report := d.Dispatch(context.Background(), []domain.Tender{{Number: "TS-9"}}, "")

	if len(report.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(report.Records))
	}
	rec := report.Records[0]
	if rec.Status() != StatusPartial {
		t.Fatalf("expected partial status, got %s", rec.Status())
	}
	if good.callCount() != 1 {
		t.Fatalf("healthy channel was not attempted")
	}
	stats := report.PerChannel()
	if stats["tg1"].Failed != 1 || stats["hook1"].Sent != 1 {
		t.Fatalf("per-channel stats wrong: %#v", stats)
	}
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	// Fails twice, then succeeds.
	flaky := &stubChannel{id: "hook1", typ: "webhook", err: &channels.SendError{Reason: "status 503"}, failures: 2}
	d := NewDispatcher([]channels.Channel{flaky}, Options{
		RetryMax:     2,
		RetryBackoff: time.Millisecond,
	}, nil)

	report := d.Dispatch(context.Background(), []domain.Tender{{Number: "TS-5"}}, "")

	out := report.Records[0].Outcomes[0]
	if !out.Sent {
		t.Fatalf("expected eventual success, got %#v", out)
	}
	if out.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", out.Attempts)
	}
	if out.ReceiptID != "receipt-1" {
		t.Fatalf("receipt = %q", out.ReceiptID)
	}
}

func TestDispatchDoesNotRetryTerminalFailures(t *testing.T) {
	dead := &stubChannel{id: "mail1", typ: "email", err: &channels.SendError{Reason: "550 no such user", Terminal: true}}
	d := NewDispatcher([]channels.Channel{dead}, Options{
		RetryMax:     3,
		RetryBackoff: time.Millisecond,
	}, nil)

	report := d.Dispatch(context.Background(), []domain.Tender{{Number: "TS-6"}}, "")

	out := report.Records[0].Outcomes[0]
	if out.Sent {
		t.Fatalf("terminal failure must not be reported sent")
	}
	if out.Attempts != 1 {
		t.Fatalf("terminal failure must not be retried, got %d attempts", out.Attempts)
	}
	if dead.callCount() != 1 {
		t.Fatalf("channel called %d times", dead.callCount())
	}
}

func TestDispatchEnforcesMinimumSendDelayGlobally(t *testing.T) {
	chA := &stubChannel{id: "tg1", typ: "telegram"}
	chB := &stubChannel{id: "hook1", typ: "webhook"}
	d := NewDispatcher([]channels.Channel{chA, chB}, Options{
		MinSendDelay:   50 * time.Millisecond,
		DelayThreshold: 1,
	}, nil)

	tenders := []domain.Tender{{Number: "TS-1"}, {Number: "TS-2"}}
	start := time.Now()
	report := d.Dispatch(context.Background(), tenders, "")
	elapsed := time.Since(start)

	// 4 sends share one limiter: the first is free, the other 3 each wait.
	if elapsed < 150*time.Millisecond {
		t.Fatalf("sends not throttled globally across records and channels, finished in %v", elapsed)
	}
	delivered, _, _ := report.Counts()
	if delivered != 2 || chA.callCount() != 2 || chB.callCount() != 2 {
		t.Fatalf("throttling must not drop sends: delivered=%d calls=%d/%d", delivered, chA.callCount(), chB.callCount())
	}
}

func TestDispatchSmallBatchSkipsSendDelay(t *testing.T) {
	ch := &stubChannel{id: "tg1", typ: "telegram"}
	d := NewDispatcher([]channels.Channel{ch}, Options{
		MinSendDelay:   time.Second,
		DelayThreshold: 3,
	}, nil)

	start := time.Now()
	d.Dispatch(context.Background(), []domain.Tender{{Number: "TS-1"}, {Number: "TS-2"}}, "")

	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("batch at or under the threshold must not be throttled, took %v", elapsed)
	}
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	ch := &stubChannel{id: "tg1", typ: "telegram"}
	d := NewDispatcher([]channels.Channel{ch}, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.Dispatch(ctx, []domain.Tender{{Number: "TS-1"}, {Number: "TS-2"}}, "")
	if len(report.Records) != 0 {
		t.Fatalf("cancelled dispatch should attempt nothing, got %d records", len(report.Records))
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	d := NewDispatcher([]channels.Channel{&stubChannel{id: "tg1", typ: "telegram"}}, Options{}, nil)
	report := d.Dispatch(context.Background(), nil, "")
	if len(report.Records) != 0 {
		t.Fatalf("expected empty report, got %#v", report)
	}
}
