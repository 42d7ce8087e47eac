package collectors

import (
	"context"
	"errors"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/pkg/httpclient"
)

// ErrCollectionFailed reports that a source could not produce a snapshot at
// all: unreachable, or structurally unreadable. It is fatal for the run.
// An empty snapshot is not a collection failure.
var ErrCollectionFailed = errors.New("collection failed")

// Collector retrieves the full snapshot of currently active tenders from
// one source, optionally scoped to a city. Concrete implementations live in
// source-specific files (e.g., ppra.go).
type Collector interface {
	ID() string
	Collect(ctx context.Context, cfg Source, city string) ([]domain.Tender, error)
}

// CollectorRegistry resolves the collector implementation for a given source config.
type CollectorRegistry interface {
	CollectorFor(cfg Source) (Collector, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within collectors.
type HTTPClient = httpclient.Client
