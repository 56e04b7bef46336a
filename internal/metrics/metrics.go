// Package metrics exposes the process counters on a prometheus registry
// served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec

	UploadsStarted    prometheus.Counter
	UploadsCompleted  prometheus.Counter
	UploadsFailed     prometheus.Counter
	UploadsCancelled  prometheus.Counter
	PipelineStage     *prometheus.CounterVec
	FilesConfirmed    prometheus.Counter
	AutoConfirmSweeps prometheus.Counter
	RestorePolls      prometheus.Counter
	RestoreCompleted  prometheus.Counter
	EmailsSent        prometheus.Counter
	InvoicesCreated   prometheus.Counter
	InvoicesDeleted   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcmed_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		UploadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_uploads_started_total",
			Help: "Upload pipelines dispatched.",
		}),
		UploadsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_uploads_completed_total",
			Help: "Upload pipelines that reached completed.",
		}),
		UploadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_uploads_failed_total",
			Help: "Upload pipelines that ended failed.",
		}),
		UploadsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_uploads_cancelled_total",
			Help: "Upload pipelines stopped by cancellation.",
		}),
		PipelineStage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcmed_pipeline_stage_total",
			Help: "Pipeline stage transitions.",
		}, []string{"stage"}),
		FilesConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_files_confirmed_total",
			Help: "Draft files promoted to confirmed.",
		}),
		AutoConfirmSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_auto_confirm_sweeps_total",
			Help: "Auto-confirm scheduler sweeps executed.",
		}),
		RestorePolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_restore_polls_total",
			Help: "Cold-storage restore poll iterations.",
		}),
		RestoreCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_restore_completed_total",
			Help: "Restores that became available and were emailed.",
		}),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_emails_sent_total",
			Help: "Notification emails dispatched.",
		}),
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_invoices_created_total",
			Help: "Invoices generated.",
		}),
		InvoicesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcmed_invoices_deleted_total",
			Help: "Invoices deleted with number recycling.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.UploadsStarted, m.UploadsCompleted, m.UploadsFailed, m.UploadsCancelled,
		m.PipelineStage, m.FilesConfirmed, m.AutoConfirmSweeps,
		m.RestorePolls, m.RestoreCompleted, m.EmailsSent,
		m.InvoicesCreated, m.InvoicesDeleted,
	)

	return m
}
