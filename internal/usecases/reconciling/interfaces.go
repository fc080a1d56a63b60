package reconciling

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// Reconciler deriva exceções a partir do conjunto de eventos. As derivações
// são funções puras: nada é persistido e cada snapshot recomputa tudo,
// então não existe estado "resolvido" para envelhecer.
type Reconciler interface {
	// DeriveMismatches roda os quatro detectores de divergência entre
	// provedores sobre a janela de eventos informada
	DeriveMismatches(events []*domain.FinanceEvent, asOf time.Time) []domain.Exception

	// Surface aplica as regras de piso de caixa e previsão negativa sobre os
	// números do snapshot e devolve a lista final ordenada por severidade
	Surface(mismatches []domain.Exception, cashPosition, forecastNet, projectedBalance decimal.Decimal, asOf time.Time) []domain.Exception
}
