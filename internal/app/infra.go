// Package app wires the process together: infrastructure clients,
// application services, and background workers as fx modules.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/database"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
	"github.com/arcmed/arcmed_backend/pkg/observability"
	"github.com/arcmed/arcmed_backend/pkg/password"
	redispkg "github.com/arcmed/arcmed_backend/pkg/redis"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideDB),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideObjectStore),
	fx.Provide(ProvideCryptoBox),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideMetrics),
	fx.Provide(ProvideAuditSet),
	fx.Provide(ProvideAuditRecorder),
	fx.Provide(ProvidePasswordParams),
)

func ProvideDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewFromCentral(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return database.Close(db)
		},
	})
	return db, nil
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Nats.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

// ProvideObjectStore selects the archive backend: the production S3
// bucket or the local directory mirror.
func ProvideObjectStore(cfg *config.Config) (objstore.Store, error) {
	switch cfg.Storage.Backend {
	case "", "s3":
		return objstore.NewS3(cfg.Storage.S3)
	case "local":
		return objstore.NewLocal(cfg.Storage.LocalRoot)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// ProvideCryptoBox fails startup when the encryption key is absent:
// nothing may ever be written to the archive unencrypted.
func ProvideCryptoBox(cfg *config.Config) (*filecrypt.Box, error) {
	if cfg.Encryption.KeyHex == "" {
		return nil, fmt.Errorf("encryption.key_hex is required")
	}
	return filecrypt.NewFromHex(cfg.Encryption.KeyHex)
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideAuthorization(cfg *config.Config) (*authorize.Authorizer, error) {
	return authorize.NewFromFiles(
		cfg.Authorization.CasbinModelPath,
		cfg.Authorization.CasbinPolicyPath,
	)
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.New()
}

func ProvideAuditSet(cfg *config.Config) *logs.AuditSet {
	return logs.NewAuditSet(cfg)
}

func ProvideAuditRecorder(db *gorm.DB, set *logs.AuditSet) *audit.Recorder {
	return audit.NewRecorder(db, set)
}

func ProvidePasswordParams(cfg *config.Config) *password.Params {
	return password.FromCentralConfig(cfg.Password)
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.Tracing.OTLPInsecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
