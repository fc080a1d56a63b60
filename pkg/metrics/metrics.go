package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opsledger"

var (
	// EventsIngested conta eventos canônicos gravados no ledger
	EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_ingested_total",
		Help:      "Canonical events written to the ledger by provider and source",
	}, []string{"provider", "source"})

	// EventsSkipped conta eventos descartados (duplicados ou tipo desconhecido)
	EventsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Events skipped during ingestion by provider and reason",
	}, []string{"provider", "reason"})

	// ProviderSyncFailures conta falhas por provedor durante o sync
	ProviderSyncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_sync_failures_total",
		Help:      "Provider sync failures by provider",
	}, []string{"provider"})

	// SnapshotsComputed conta snapshots materializados por gatilho
	SnapshotsComputed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_computed_total",
		Help:      "Snapshots computed by trigger",
	}, []string{"trigger"})

	// SnapshotDuration mede o tempo de cálculo de um snapshot
	SnapshotDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "snapshot_duration_seconds",
		Help:      "Time spent computing a snapshot",
	})

	// ReceiptsWritten conta recibos anexados à cadeia por tipo de ação
	ReceiptsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipts_written_total",
		Help:      "Receipts appended to the ledger by action type",
	}, []string{"action_type"})

	// WebhookRejects conta webhooks rejeitados por assinatura inválida
	WebhookRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_rejects_total",
		Help:      "Webhook deliveries rejected by provider and reason",
	}, []string{"provider", "reason"})

	// HTTPRequests conta requisições atendidas pela API
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by method and status code",
	}, []string{"method", "status"})

	// HTTPDuration mede a latência das requisições
	HTTPDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
	})
)

func init() {
	prometheus.MustRegister(
		EventsIngested, EventsSkipped, ProviderSyncFailures,
		SnapshotsComputed, SnapshotDuration,
		ReceiptsWritten, WebhookRejects,
		HTTPRequests, HTTPDuration,
	)
}

// Handler expõe o endpoint /metrics no formato Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}
