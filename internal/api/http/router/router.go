package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
	"github.com/arcmed/arcmed_backend/internal/api/http/middleware"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/service/accounting"
	"github.com/arcmed/arcmed_backend/internal/service/auth"
	"github.com/arcmed/arcmed_backend/internal/service/document"
	"github.com/arcmed/arcmed_backend/internal/service/hospital"
	"github.com/arcmed/arcmed_backend/internal/service/patient"
	"github.com/arcmed/arcmed_backend/internal/service/upload"
	"github.com/arcmed/arcmed_backend/internal/service/user"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg           *config.Config
	Met           *metrics.Metrics
	Sessions      auth.Sessions
	AuthSvc       auth.Service
	UploadSvc     upload.Service
	DocumentSvc   document.Service
	PatientSvc    patient.Service
	HospitalSvc   hospital.Service
	UserSvc       user.Service
	AccountingSvc accounting.Service
	PasetoMgr     *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Sessions)

	authH := handler.NewAuthHandler(r.p.AuthSvc)
	fileH := handler.NewFileHandler(r.p.UploadSvc, r.p.DocumentSvc)
	patientH := handler.NewPatientHandler(r.p.PatientSvc)
	hospitalH := handler.NewHospitalHandler(r.p.HospitalSvc)
	userH := handler.NewUserHandler(r.p.UserSvc)
	accountingH := handler.NewAccountingHandler(r.p.AccountingSvc)

	api := app.Group("/api/v1")

	r.registerAuthRoutes(api, authH, authRequired)
	r.registerPatientRoutes(api, patientH, fileH, authRequired)
	r.registerFileRoutes(api, fileH, authRequired)
	r.registerHospitalRoutes(api, hospitalH, authRequired)
	r.registerUserRoutes(api, userH, authRequired)
	r.registerAccountingRoutes(api, accountingH, authRequired)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(
			promhttp.HandlerFor(r.p.Met.Registry, promhttp.HandlerOpts{})))
	}
}
