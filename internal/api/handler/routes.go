package handler

import (
	"net/http"

	"github.com/opsledger/finance-ledger-api/internal/api/handler/router"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authenticating"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authority"
	"github.com/opsledger/finance-ledger-api/internal/usecases/explaining"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
	"github.com/opsledger/finance-ledger-api/pkg/metrics"
	"github.com/opsledger/finance-ledger-api/pkg/middleware"
)

const officeBase = "/v1/tenants/:tenant_id/offices/:office_id"

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: metrics.Handler(),
		},
	}
}

// Snapshots agrupa as rotas de leitura e recomputação do snapshot
func Snapshots(service snapshotting.Snapshotter) []router.Route {
	return []router.Route{
		{
			Path:        officeBase + "/snapshot",
			Method:      http.MethodGet,
			Handler:     GetSnapshot(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/snapshot/compute",
			Method:      http.MethodPost,
			Handler:     ComputeSnapshot(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/exceptions",
			Method:      http.MethodGet,
			Handler:     GetExceptions(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
	}
}

// Explaining agrupa as rotas de transparência: linha do tempo, explicação
// de métricas, ciclo de vida e saúde das conexões
func Explaining(service explaining.Explainer) []router.Route {
	return []router.Route{
		{
			Path:        officeBase + "/timeline",
			Method:      http.MethodGet,
			Handler:     GetTimeline(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/explain",
			Method:      http.MethodGet,
			Handler:     ExplainMetric(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/lifecycle",
			Method:      http.MethodGet,
			Handler:     GetLifecycle(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/connections/status",
			Method:      http.MethodGet,
			Handler:     GetConnectionsStatus(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
	}
}

// AuthorityFlow agrupa o fluxo de propostas: criação, fila, decisão e
// execução
func AuthorityFlow(service authority.Authority) []router.Route {
	return []router.Route{
		{
			Path:        officeBase + "/proposals",
			Method:      http.MethodPost,
			Handler:     CreateProposal(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ApproverOnly()},
		},
		{
			Path:        officeBase + "/authority-queue",
			Method:      http.MethodGet,
			Handler:     GetAuthorityQueue(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/authority-queue/:id/approve",
			Method:      http.MethodPost,
			Handler:     ApproveProposal(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ApproverOnly()},
		},
		{
			Path:        officeBase + "/authority-queue/:id/deny",
			Method:      http.MethodPost,
			Handler:     DenyProposal(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ApproverOnly()},
		},
		{
			Path:        officeBase + "/actions/execute",
			Method:      http.MethodPost,
			Handler:     ExecuteAction(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ApproverOnly()},
		},
	}
}

// Receipts agrupa as rotas de auditoria da cadeia de recibos
func Receipts(service receipting.Receipter) []router.Route {
	return []router.Route{
		{
			Path:        officeBase + "/receipts",
			Method:      http.MethodGet,
			Handler:     ListReceipts(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
		{
			Path:        officeBase + "/receipts/verify",
			Method:      http.MethodGet,
			Handler:     VerifyReceiptChain(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.ReadAccess()},
		},
	}
}

// Ingestion agrupa o poll manual por escritório e os webhooks dos
// provedores. Webhooks não passam pelo JWT; a assinatura HMAC autentica.
func Ingestion(service ingesting.Ingester) []router.Route {
	return []router.Route{
		{
			Path:        officeBase + "/sync",
			Method:      http.MethodPost,
			Handler:     TriggerOfficeSync(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:    officeBase + "/webhooks/:provider",
			Method:  http.MethodPost,
			Handler: ReceiveWebhook(service),
		},
	}
}

func Authentication(service authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/token",
			Method:  http.MethodPost,
			Handler: IssueToken(service),
		},
		{
			Path:        "/v1/service-accounts",
			Method:      http.MethodPost,
			Handler:     CreateServiceAccount(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}

// SyncJobs agrupa os controles manuais dos agendadores
func SyncJobs(services SyncJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/sync/:type/run",
			Method:      http.MethodPost,
			Handler:     RunSyncJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/sync/status",
			Method:      http.MethodGet,
			Handler:     GetSyncStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}
