package app

import (
	"context"
	"fmt"

	"github.com/ppra-watch/tender-sentinel/internal/config"
	"github.com/ppra-watch/tender-sentinel/internal/logger"
	"github.com/ppra-watch/tender-sentinel/internal/pipeline"
)

// SendAll is the dry-delivery runtime. It collects a snapshot and delivers
// every record to every enabled channel without consulting or writing the
// seen-set, so the next monitor run is unaffected.
type SendAll struct {
	runner *pipeline.Runner
}

// NewSendAll builds a send-all runtime from config files. No store is opened.
func NewSendAll(ctx context.Context, cfg *config.Config, log logger.Logger) (*SendAll, error) {
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

	runner := pipeline.NewRunner(collector, nil, dispatcher, pipeline.Options{
		City:           cfg.City,
		CollectTimeout: cfg.CollectTimeout,
	}, log)

	return &SendAll{runner: runner}, nil
}

// Run collects once and delivers the whole snapshot.
func (s *SendAll) Run(ctx context.Context) (*pipeline.Summary, error) {
	if s == nil || s.runner == nil {
		return nil, fmt.Errorf("sendall is not initialized")
	}
	return s.runner.DeliverAll(ctx)
}
