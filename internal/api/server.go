package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/internal/api/handler"
	"github.com/opsledger/finance-ledger-api/internal/api/handler/router"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/scheduler"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authenticating"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authority"
	"github.com/opsledger/finance-ledger-api/internal/usecases/explaining"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
	"github.com/opsledger/finance-ledger-api/pkg/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Server struct {
	httpServer *http.Server
}

func New(
	config *config.Config,
	snapshotService snapshotting.Snapshotter,
	explainService explaining.Explainer,
	authorityService authority.Authority,
	receiptService receipting.Receipter,
	ingestService ingesting.Ingester,
	authenticator authenticating.Authenticator,
	providerSyncService *scheduler.ProviderSyncService,
	snapshotRefreshService *scheduler.SnapshotRefreshService,
) (*Server, error) {
	// Inicializar o struct com os agendadores expostos pelos controles manuais
	syncServices := handler.SyncJobServices{
		ProviderSyncService:    providerSyncService,
		SnapshotRefreshService: snapshotRefreshService,
	}

	rt := router.New(
		router.WithRoutes(handler.Healthcheck()...),
		router.WithRoutes(handler.Authentication(authenticator)...),
		router.WithRoutes(handler.Snapshots(snapshotService)...),
		router.WithRoutes(handler.Explaining(explainService)...),
		router.WithRoutes(handler.AuthorityFlow(authorityService)...),
		router.WithRoutes(handler.Receipts(receiptService)...),
		router.WithRoutes(handler.Ingestion(ingestService)...),
		router.WithRoutes(handler.SyncJobs(syncServices)...),
	)

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(),
		middleware.MetricsMiddleware(),
		middleware.AuthMiddleware(authenticator),
	}

	handler := alice.New(middlewares...).Then(rt)

	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	return srv, nil
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		logrus.WithFields(logrus.Fields{
			"address": s.httpServer.Addr,
		}).Info("Servidor iniciando")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Erro durante a execução do servidor")
		}
	}()

	// Canal para aguardar sinais de término
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Aguardar pelo sinal ou pelo cancelamento do contexto
	select {
	case <-done:
		logrus.Info("Sinal de interrupção recebido")
	case <-ctx.Done():
		logrus.Info("Contexto de aplicação cancelado")
	}

	// Define timeout para desligamento
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Log de início do desligamento
	logrus.WithFields(logrus.Fields{
		"timeout": "15s",
	}).Info("Iniciando desligamento gracioso do servidor")

	if err := s.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	logrus.Info("Servidor desligado com sucesso")
	return nil
}

func (s Server) Shutdown(ctx context.Context) error {
	logrus.Info("Executando operações de limpeza antes do desligamento")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return err
	}

	logrus.Info("Servidor HTTP desligado com sucesso")
	return nil
}
