package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/infrastructure/database/postgres"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul/contaazulclient"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia/conveniaclient"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme/pagarmeclient"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/pluggyclient"
	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/api"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/scheduler"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authenticating"
	"github.com/opsledger/finance-ledger-api/internal/usecases/authority"
	"github.com/opsledger/finance-ledger-api/internal/usecases/explaining"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/reconciling"
	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	eventRepo := repository.NewFinanceEventRepository(pgConn)
	connectionRepo := repository.NewConnectionRepository(pgConn)
	cursorRepo := repository.NewSyncCursorRepository(pgConn)
	snapshotRepo := repository.NewSnapshotRepository(pgConn)
	receiptRepo := repository.NewReceiptRepository(pgConn)
	serviceAccountRepo := repository.NewServiceAccountRepository(pgConn)

	authenticator := authenticating.NewService(serviceAccountRepo, cfg)

	receiptService := receipting.NewService(receiptRepo)

	reconciler, err := reconciling.NewService(cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	// Os quatro provedores de eventos financeiros: banco, pagamentos,
	// contabilidade e folha
	pluggyIntegrator := pluggy.New(cfg, pluggyclient.NewClient(cfg))
	pagarmeIntegrator := pagarme.New(cfg, pagarmeclient.NewClient(cfg))
	contaazulIntegrator := contaazul.New(cfg, contaazulclient.NewClient(cfg))
	conveniaIntegrator := convenia.New(cfg, conveniaclient.NewClient(cfg))

	ingestService := ingesting.NewService(
		cfg,
		eventRepo,
		connectionRepo,
		cursorRepo,
		receiptService,
		pluggyIntegrator,
		pagarmeIntegrator,
		contaazulIntegrator,
		conveniaIntegrator,
	)

	snapshotService := snapshotting.NewService(
		cfg,
		eventRepo,
		snapshotRepo,
		connectionRepo,
		reconciler,
		receiptService,
	)

	authorityService := authority.NewService(cfg, eventRepo, receiptService)

	explainService := explaining.NewService(cfg, eventRepo, connectionRepo, snapshotService)

	// Inicializa os agendadores de sincronização e pré-aquecimento
	providerSyncService := scheduler.NewProviderSyncService(
		connectionRepo,
		ingestService,
		cfg,
	)

	snapshotRefreshService := scheduler.NewSnapshotRefreshService(
		connectionRepo,
		snapshotService,
		cfg,
	)

	// Inicia os agendadores em background
	if err := providerSyncService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de sincronização de provedores")
	} else {
		logrus.Info("Agendador de sincronização de provedores iniciado com sucesso")
	}

	if err := snapshotRefreshService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de snapshots")
	} else {
		logrus.Info("Agendador de snapshots iniciado com sucesso")
	}

	server, err := api.New(
		cfg,
		snapshotService,
		explainService,
		authorityService,
		receiptService,
		ingestService,
		authenticator,
		providerSyncService,
		snapshotRefreshService,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
