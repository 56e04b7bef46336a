package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/scheduler"
	"github.com/arcmed/arcmed_backend/internal/service/document"
	"github.com/arcmed/arcmed_backend/internal/textextract"
	"github.com/arcmed/arcmed_backend/internal/worker"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// WorkerModule runs the NATS indexer and the auto-confirm scheduler
// alongside the API process.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterIndexer),
	fx.Invoke(RegisterScheduler),
)

type IndexerParams struct {
	fx.In

	Lc    fx.Lifecycle
	NC    *nats.Conn
	DB    *gorm.DB
	Store objstore.Store
	Box   *filecrypt.Box
	Cfg   *config.Config
}

func RegisterIndexer(p IndexerParams) {
	extractor := textextract.New(slog.Default())
	ix := worker.NewIndexer(p.DB, p.Store, p.Box, extractor, slog.Default(), p.Cfg.Pipeline.TempDir)

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ix.Subscribe(p.NC)
		},
		OnStop: func(ctx context.Context) error {
			ix.Close()
			return nil
		},
	})
}

type SchedulerParams struct {
	fx.In

	Lc    fx.Lifecycle
	DB    *gorm.DB
	Docs  document.Service
	Redis *redis.Client
	Met   *metrics.Metrics
	Cfg   *config.Config
}

func RegisterScheduler(p SchedulerParams) {
	sw := scheduler.New(p.DB, p.Docs, scheduler.NewRedisLocker(p.Redis), p.Met,
		slog.Default(), scheduler.ConfigFromCentral(p.Cfg))

	var cancel context.CancelFunc
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			go sw.Run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
