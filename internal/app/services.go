package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/service/accounting"
	"github.com/arcmed/arcmed_backend/internal/service/auth"
	"github.com/arcmed/arcmed_backend/internal/service/document"
	"github.com/arcmed/arcmed_backend/internal/service/hospital"
	"github.com/arcmed/arcmed_backend/internal/service/patient"
	"github.com/arcmed/arcmed_backend/internal/service/upload"
	"github.com/arcmed/arcmed_backend/internal/service/user"
	"github.com/arcmed/arcmed_backend/internal/transform"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
	"github.com/arcmed/arcmed_backend/pkg/password"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvidePasetoManager,
		ProvideSessions,
		ProvideAuthService,
		ProvideUploadService,
		ProvideDocumentService,
		ProvidePatientService,
		ProvideHospitalService,
		ProvideUserService,
		ProvideAccountingService,
	),
)

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewManagerFromCentral(cfg)
}

func ProvideSessions(rdb *redis.Client) auth.Sessions {
	return auth.NewRedisSessions(rdb)
}

func ProvideAuthService(
	db *gorm.DB,
	tokens *pasetotoken.Manager,
	sessions auth.Sessions,
	params *password.Params,
	rec *audit.Recorder,
	cfg *config.Config,
) auth.Service {
	return auth.New(db, tokens, sessions, params, rec, slog.Default(), auth.ConfigFromCentral(cfg))
}

func ProvideUploadService(
	db *gorm.DB,
	store objstore.Store,
	box *filecrypt.Box,
	rec *audit.Recorder,
	met *metrics.Metrics,
	cfg *config.Config,
) upload.Service {
	tr := transform.New(slog.Default())
	return upload.New(db, store, box, tr, rec, met, slog.Default(), upload.ConfigFromCentral(cfg))
}

func ProvideDocumentService(
	db *gorm.DB,
	store objstore.Store,
	box *filecrypt.Box,
	authz *authorize.Authorizer,
	mailer *email.Client,
	nc *nats.Conn,
	rec *audit.Recorder,
	met *metrics.Metrics,
	cfg *config.Config,
) document.Service {
	return document.New(db, store, box, authz, mailer, nc, rec, met,
		slog.Default(), document.ConfigFromCentral(cfg))
}

func ProvidePatientService(db *gorm.DB, authz *authorize.Authorizer) patient.Service {
	return patient.New(db, authz, slog.Default())
}

func ProvideHospitalService(db *gorm.DB, authz *authorize.Authorizer) hospital.Service {
	return hospital.New(db, authz, slog.Default())
}

func ProvideUserService(db *gorm.DB, authz *authorize.Authorizer, params *password.Params) user.Service {
	return user.New(db, authz, params, slog.Default())
}

func ProvideAccountingService(
	db *gorm.DB,
	authz *authorize.Authorizer,
	rec *audit.Recorder,
	met *metrics.Metrics,
	cfg *config.Config,
) accounting.Service {
	return accounting.New(db, authz, rec, met, slog.Default(), cfg)
}
