package collectors

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ppra-watch/tender-sentinel/pkg/httpclient"
)

// collectorRegistry implements CollectorRegistry.
type collectorRegistry struct {
	collectorsByID   map[string]Collector
	collectorsByType map[string]Collector
	mu               sync.RWMutex
}

// NewCollectorRegistry builds a registry for the provided collector implementations keyed by source id.
func NewCollectorRegistry(collectors ...Collector) CollectorRegistry {
	return NewTypeCollectorRegistry(nil, collectors...)
}

// NewTypeCollectorRegistry builds a registry with optional type-based collectors and source-specific collectors.
func NewTypeCollectorRegistry(typeCollectors map[string]Collector, collectors ...Collector) CollectorRegistry {
	reg := &collectorRegistry{
		collectorsByID:   make(map[string]Collector),
		collectorsByType: make(map[string]Collector),
	}

	for _, c := range collectors {
		reg.registerIDCollector(c)
	}
	for typ, c := range typeCollectors {
		reg.registerTypeCollector(typ, c)
	}

	return reg
}

func (r *collectorRegistry) registerIDCollector(c Collector) {
	if c == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(c.ID()))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.collectorsByID[key] = c
	r.mu.Unlock()
}

func (r *collectorRegistry) registerTypeCollector(typ string, c Collector) {
	if c == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.collectorsByType[key] = c
	r.mu.Unlock()
}

// CollectorFor selects the collector for the given source based on its id or type.
func (r *collectorRegistry) CollectorFor(cfg Source) (Collector, error) {
	if r == nil {
		return nil, fmt.Errorf("collector registry is nil")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("source id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idKey := strings.ToLower(strings.TrimSpace(cfg.ID))
	if c, ok := r.collectorsByID[idKey]; ok {
		return c, nil
	}

	typeKey := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typeKey != "" {
		if c, ok := r.collectorsByType[typeKey]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no collector registered for source %q (type %q)", cfg.ID, cfg.Type)
}

// DefaultHTTPClient returns a tuned http.Client for source collectors.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// SourceTypePPRA is the listing type of the public procurement authority site.
const SourceTypePPRA = "ppra_listing"

// DefaultCollectorRegistry wires up known source collectors.
func DefaultCollectorRegistry(client HTTPClient) CollectorRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	typeCollectors := map[string]Collector{
		SourceTypePPRA: NewPPRACollector(client),
	}

	return NewTypeCollectorRegistry(typeCollectors)
}
