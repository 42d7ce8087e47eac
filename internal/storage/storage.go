package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

// Package storage provides the durable seen-set behind deduplication.

// ErrStoreUnavailable reports that the backing medium cannot be read.
// A missing file is not unavailable; that is a first-run bootstrap.
var ErrStoreUnavailable = errors.New("seen-set store unavailable")

// ErrCommitFailed reports that a commit could not be made durable. The
// caller must not assume partial success.
var ErrCommitFailed = errors.New("seen-set commit failed")

// Store is the durable, append-only set of tender identities already
// notified by prior runs.
type Store interface {
	// Load returns every known identity. A store that has never been
	// written returns an empty set.
	Load(ctx context.Context) (map[string]struct{}, error)
	// Commit appends the tenders atomically; a crash mid-commit must leave
	// the store either untouched or fully committed. Identities already
	// present are left as-is (first write wins).
	Commit(ctx context.Context, tenders []domain.Tender) error
	Close() error
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// DiffResult partitions one snapshot against the known identity set.
type DiffResult struct {
	// Fresh holds the tenders absent from the known set, in snapshot order.
	Fresh []domain.Tender
	// Duplicates counts snapshot entries dropped because their identity was
	// already known or repeated earlier in the same snapshot.
	Duplicates int
	// Rejected counts entries dropped for having an empty identity; they
	// cannot be deduplicated safely and never reach the store.
	Rejected int
}

// Diff partitions snapshot preserving its order. It is a pure function of
// its inputs: within the snapshot the first occurrence of an identity wins,
// and an entry is fresh iff its identity is absent from known.
func Diff(snapshot []domain.Tender, known map[string]struct{}) DiffResult {
	res := DiffResult{Fresh: make([]domain.Tender, 0, len(snapshot))}
	seen := make(map[string]struct{}, len(snapshot))

	for _, t := range snapshot {
		id := t.Identity()
		if id == "" {
			res.Rejected++
			continue
		}
		if _, dup := seen[id]; dup {
			res.Duplicates++
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; ok {
			res.Duplicates++
			continue
		}
		res.Fresh = append(res.Fresh, t)
	}

	return res
}

type noopStore struct{}

func (noopStore) Load(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (noopStore) Commit(context.Context, []domain.Tender) error { return nil }
func (noopStore) Close() error                                  { return nil }
