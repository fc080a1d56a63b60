package receipting

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/log"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

// Tentativas de anexação antes de desistir quando a ponta da cadeia está
// em disputa com outra gravação concorrente
const chainAppendAttempts = 3

type Service struct {
	receiptRepository repository.ReceiptRepository
}

func NewService(receiptRepository repository.ReceiptRepository) Receipter {
	return &Service{
		receiptRepository: receiptRepository,
	}
}

// Record calcula os hashes canônicos de inputs/outputs, lê a ponta da
// cadeia e anexa o novo recibo. Se outro recibo chegar primeiro, relê a
// ponta e tenta de novo.
func (s *Service) Record(ctx context.Context, scope domain.OfficeScope, input ReceiptInput) (*domain.Receipt, error) {
	receiptID, err := utils.GenerateLedgerID("rcp")
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar id do recibo: %w", err)
	}

	inputsHash, err := utils.HashCanonical(input.Inputs)
	if err != nil {
		return nil, fmt.Errorf("erro ao canonicalizar inputs do recibo: %w", err)
	}

	outputsHash, err := utils.HashCanonical(input.Outputs)
	if err != nil {
		return nil, fmt.Errorf("erro ao canonicalizar outputs do recibo: %w", err)
	}

	receipt := &domain.Receipt{
		ReceiptID:        receiptID,
		TenantID:         scope.TenantID,
		OfficeID:         scope.OfficeID,
		ActionType:       input.ActionType,
		InputsHash:       inputsHash,
		OutputsHash:      outputsHash,
		PolicyDecisionID: input.PolicyDecisionID,
		CorrelationID:    log.GetCorrelationID(ctx),
		Metadata:         input.Metadata,
		CreatedAt:        time.Now().UTC(),
	}

	for attempt := 0; attempt < chainAppendAttempts; attempt++ {
		latest, err := s.receiptRepository.GetLatest(ctx, scope.TenantID, scope.OfficeID)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler a ponta da cadeia de recibos: %w", err)
		}

		receipt.PrevHash = domain.ReceiptGenesisHash
		if latest != nil {
			receipt.PrevHash = latest.EntryHash
		}

		receipt.EntryHash, err = receipt.ComputeEntryHash()
		if err != nil {
			return nil, fmt.Errorf("erro ao calcular hash do recibo: %w", err)
		}

		err = s.receiptRepository.Append(ctx, receipt)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, repository.ErrChainConflict) {
			return nil, fmt.Errorf("erro ao gravar recibo: %w", err)
		}

		log.ForContext(ctx).WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"attempt":   attempt + 1,
		}).Warn("Conflito na ponta da cadeia de recibos, tentando novamente")
	}

	return nil, ErrChainExhausted
}

func (s *Service) GetReceipt(ctx context.Context, scope domain.OfficeScope, receiptID string) (*domain.Receipt, error) {
	receipt, err := s.receiptRepository.GetByID(ctx, scope.TenantID, scope.OfficeID, receiptID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar recibo: %w", err)
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}

	return receipt, nil
}

func (s *Service) ListReceipts(ctx context.Context, scope domain.OfficeScope, limit, offset int) ([]*domain.Receipt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.receiptRepository.List(ctx, scope.TenantID, scope.OfficeID, limit, offset)
}

// Verify rehash de inputs/outputs candidatos e comparação com os hashes
// gravados na criação. Qualquer campo alterado muda o hash canônico.
func (s *Service) Verify(ctx context.Context, scope domain.OfficeScope, receiptID string, inputs, outputs any) (bool, error) {
	receipt, err := s.GetReceipt(ctx, scope, receiptID)
	if err != nil {
		return false, err
	}

	inputsHash, err := utils.HashCanonical(inputs)
	if err != nil {
		return false, fmt.Errorf("erro ao canonicalizar inputs candidatos: %w", err)
	}

	outputsHash, err := utils.HashCanonical(outputs)
	if err != nil {
		return false, fmt.Errorf("erro ao canonicalizar outputs candidatos: %w", err)
	}

	return inputsHash == receipt.InputsHash && outputsHash == receipt.OutputsHash, nil
}

// VerifyChain reverifica o encadeamento completo: cada elo deve apontar o
// hash do anterior e o conteúdo de cada recibo deve reproduzir seu hash.
func (s *Service) VerifyChain(ctx context.Context, scope domain.OfficeScope) (*domain.ReceiptVerification, error) {
	chain, err := s.receiptRepository.ListChain(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar a cadeia de recibos: %w", err)
	}

	prevHash := domain.ReceiptGenesisHash
	for i, receipt := range chain {
		if receipt.PrevHash != prevHash {
			receiptID := receipt.ReceiptID
			return &domain.ReceiptVerification{
				Valid:        false,
				CheckedCount: i,
				BrokenAt:     &receiptID,
				Reason:       "encadeamento divergente do recibo anterior",
			}, nil
		}

		expected, err := receipt.ComputeEntryHash()
		if err != nil {
			return nil, fmt.Errorf("erro ao recalcular hash do recibo %s: %w", receipt.ReceiptID, err)
		}
		if expected != receipt.EntryHash {
			receiptID := receipt.ReceiptID
			return &domain.ReceiptVerification{
				Valid:        false,
				CheckedCount: i,
				BrokenAt:     &receiptID,
				Reason:       "conteúdo do recibo não reproduz o hash gravado",
			}, nil
		}

		prevHash = receipt.EntryHash
	}

	return &domain.ReceiptVerification{
		Valid:        true,
		CheckedCount: len(chain),
	}, nil
}
