package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/config"
	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/internal/logger"
	"github.com/ppra-watch/tender-sentinel/internal/notify"
	"github.com/ppra-watch/tender-sentinel/internal/pipeline"
	"github.com/ppra-watch/tender-sentinel/internal/storage"
	"github.com/ppra-watch/tender-sentinel/pkg/channels"
	"github.com/ppra-watch/tender-sentinel/pkg/collectors"
)

// Monitor is the monitoring pipeline runtime. It owns the store handle for
// the duration of one run and releases it deterministically afterwards.
type Monitor struct {
	cfg    *config.Config
	runner *pipeline.Runner
	store  storage.Store
	log    logger.Logger
}

// NewMonitor builds a monitor runtime from config files.
func NewMonitor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	collector, err := buildCollector(cfg, log)
	if err != nil {
		return nil, err
	}

	dispatcher, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StoreType, cfg.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StoreType,
		"path": cfg.BoltPath,
	})

	runner := pipeline.NewRunner(collector, store, dispatcher, pipeline.Options{
		City:           cfg.City,
		CollectTimeout: cfg.CollectTimeout,
	}, log)

	return &Monitor{cfg: cfg, runner: runner, store: store, log: log}, nil
}

// Run executes one monitoring pass and returns its summary. The process is
// expected to be invoked per run by an external scheduler; overlapping
// invocations are not coordinated here.
func (m *Monitor) Run(ctx context.Context) (*pipeline.Summary, error) {
	if m == nil || m.runner == nil {
		return nil, fmt.Errorf("monitor is not initialized")
	}
	defer m.closeStore()

	return m.runner.Run(ctx)
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (m *Monitor) closeStore() {
	if m == nil || m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		m.log.ErrorObj("storage close failed", "error", err)
	}
}

// buildCollector loads the source registry and binds it, together with the
// city scope filter, into the capability the runner consumes.
func buildCollector(cfg *config.Config, log logger.Logger) (pipeline.Collector, error) {
	sourceReg, err := collectors.LoadRegistry(cfg.CollectorsFile)
	if err != nil {
		return nil, fmt.Errorf("load collectors registry: %w", err)
	}
	sources := sourceReg.All()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	sourceIDs := make([]string, 0, len(sources))
	for _, s := range sources {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	return &sourceCollector{
		registry: collectors.DefaultCollectorRegistry(nil),
		sources:  sources,
		city:     cfg.City,
		log:      log,
	}, nil
}

// buildDispatcher loads the channel registry, applies per-run destination
// overrides, and instantiates every enabled channel.
func buildDispatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*notify.Dispatcher, error) {
	channelReg, err := channels.LoadRegistry(cfg.ChannelsFile)
	if err != nil {
		return nil, fmt.Errorf("load channels registry: %w", err)
	}

	enabled := channels.ApplyOverrides(channelReg.Enabled(), cfg.PushTo, cfg.EmailTo)
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}

	built, err := channels.BuildAll(ctx, channels.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build channels: %w", err)
	}
	channelSummaries := make([]map[string]string, 0, len(enabled))
	for _, chCfg := range enabled {
		channelSummaries = append(channelSummaries, map[string]string{
			"id":   chCfg.ID,
			"type": chCfg.Type,
		})
	}
	log.InfoObj("channels registry loaded", "channels_meta", map[string]any{
		"count":    len(channelSummaries),
		"channels": channelSummaries,
	})

	return notify.NewDispatcher(built, notify.Options{
		RetryMax:       cfg.SendRetryMax,
		RetryBackoff:   cfg.SendRetryBackoff,
		SendTimeout:    cfg.SendTimeout,
		MinSendDelay:   cfg.SendDelay,
		DelayThreshold: cfg.SendDelayThreshold,
	}, log), nil
}

// sourceCollector aggregates every configured source into one snapshot,
// preserving source order. A failure of any source is fatal for the run;
// partial snapshots would make the diff claim tenders disappeared.
type sourceCollector struct {
	registry collectors.CollectorRegistry
	sources  []collectors.Source
	city     string
	log      logger.Logger
}

func (s *sourceCollector) Collect(ctx context.Context) ([]domain.Tender, error) {
	var snapshot []domain.Tender
	var errs []error

	for i, src := range s.sources {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(src.RequestDelay()):
			}
		}
		impl, err := s.registry.CollectorFor(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve collector for source %s: %w", src.ID, err))
			continue
		}
		tenders, err := impl.Collect(ctx, src, s.city)
		if err != nil {
			errs = append(errs, fmt.Errorf("collect source %s: %w", src.ID, err))
			continue
		}
		s.log.InfoObj("source collected", "source_result", map[string]any{
			"source_id": src.ID,
			"tenders":   len(tenders),
		})
		snapshot = append(snapshot, tenders...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snapshot, nil
}
