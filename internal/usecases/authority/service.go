package authority

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/pkg/log"
	"github.com/opsledger/finance-ledger-api/pkg/metrics"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

type Service struct {
	cfg             *config.Config
	eventRepository repository.FinanceEventRepository
	receipter       receipting.Receipter
}

func NewService(
	cfg *config.Config,
	eventRepository repository.FinanceEventRepository,
	receipter receipting.Receipter,
) Authority {
	return &Service{
		cfg:             cfg,
		eventRepository: eventRepository,
		receipter:       receipter,
	}
}

func (s *Service) CreateProposal(ctx context.Context, scope domain.OfficeScope, input CreateProposalInput) (*ProposalResult, error) {
	logger := log.ForContext(ctx)

	title := strings.TrimSpace(input.Title)
	actionType := strings.TrimSpace(input.ActionType)
	if title == "" && actionType == "" {
		return nil, ErrMissingTitle
	}
	if title == "" {
		title = actionType
	}
	if actionType == "" {
		actionType = domain.ProposalActionAdjustment
	}

	riskTier := strings.TrimSpace(input.RiskTier)
	if riskTier == "" {
		riskTier = domain.DeclaredTierDefault
	}
	currency := input.Currency
	if currency == "" {
		currency = "BRL"
	}

	correlationID := strings.TrimSpace(input.CorrelationID)
	if correlationID == "" {
		correlationID = log.GetCorrelationID(ctx)
	}

	if correlationID != "" {
		existing, err := s.eventRepository.GetProposalByCorrelationID(ctx, scope.TenantID, scope.OfficeID, correlationID)
		if err != nil {
			return nil, fmt.Errorf("erro ao consultar proposta por correlation id: %w", err)
		}
		if existing != nil {
			return s.replayCreate(existing)
		}
	}

	id, err := utils.GenerateLedgerID("prp")
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar o identificador da proposta: %w", err)
	}

	definingInputs := input.Inputs
	if definingInputs == nil {
		definingInputs = map[string]any{
			"title":       title,
			"action_type": actionType,
			"amount":      input.Amount.String(),
			"currency":    currency,
		}
	}
	inputsHash, err := utils.HashCanonical(definingInputs)
	if err != nil {
		return nil, fmt.Errorf("erro ao canonicalizar os insumos da proposta: %w", err)
	}

	meta := domain.ProposalMetadata{
		Title:            title,
		ActionType:       actionType,
		RiskTier:         riskTier,
		RequiredApproval: true,
		InputsHash:       inputsHash,
		CorrelationID:    correlationID,
	}
	if !input.Amount.IsZero() {
		meta.Amount = input.Amount.String()
	}
	metadata, err := meta.ToMap()
	if err != nil {
		return nil, fmt.Errorf("erro ao montar a metadata da proposta: %w", err)
	}

	// O correlation id vira a chave de idempotência no banco: criações
	// concorrentes com o mesmo id convergem para uma única linha
	providerEventID := "proposal:" + id
	if correlationID != "" {
		providerEventID = "proposal:" + correlationID
	}

	now := time.Now().UTC()
	event := &domain.FinanceEvent{
		ID:              id,
		TenantID:        scope.TenantID,
		OfficeID:        scope.OfficeID,
		Provider:        domain.ProviderAuthority,
		ProviderEventID: providerEventID,
		EventType:       domain.EventProposalCreated,
		OccurredAt:      now,
		Amount:          input.Amount,
		Currency:        currency,
		Status:          domain.ProposalStatusPending,
		EntityRefs:      []string{"proposal:" + id},
		Metadata:        metadata,
		RawHash:         inputsHash,
		CreatedAt:       now,
	}

	inserted, err := s.eventRepository.Insert(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("erro ao persistir a proposta: %w", err)
	}
	if !inserted {
		existing, err := s.eventRepository.GetByProviderEventID(ctx, scope.TenantID, scope.OfficeID, domain.ProviderAuthority, providerEventID)
		if err != nil {
			return nil, fmt.Errorf("erro ao recuperar a proposta concorrente: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("proposta duplicada não encontrada após conflito de inserção")
		}
		return s.replayCreate(existing)
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptProposalCreate,
		Inputs: map[string]any{
			"proposal_id": id,
			"title":       title,
			"action_type": actionType,
			"amount":      input.Amount.String(),
			"inputs_hash": inputsHash,
		},
		Outputs: map[string]any{
			"status":    domain.ProposalStatusPending,
			"risk_tier": riskTier,
		},
	})
	if err != nil {
		logger.WithFields(log.Fields{
			"proposal_id": id,
			"error":       err.Error(),
		}).Error("Falha ao gravar recibo da criação de proposta")
		return nil, ErrReceiptUnavailable
	}
	metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptProposalCreate).Inc()

	if err := s.eventRepository.AttachReceipt(ctx, scope.TenantID, scope.OfficeID, []string{id}, receipt.ReceiptID); err != nil {
		logger.WithFields(log.Fields{
			"proposal_id": id,
			"receipt_id":  receipt.ReceiptID,
			"error":       err.Error(),
		}).Warn("Falha ao anexar recibo à proposta")
	}

	proposal, err := domain.ProposalFromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("erro ao projetar a proposta criada: %w", err)
	}

	logger.WithFields(log.Fields{
		"proposal_id": id,
		"action_type": actionType,
		"amount":      input.Amount.String(),
	}).Info("Proposta criada")

	return &ProposalResult{Proposal: proposal, ReceiptID: receipt.ReceiptID}, nil
}

func (s *Service) replayCreate(event *domain.FinanceEvent) (*ProposalResult, error) {
	proposal, err := domain.ProposalFromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("erro ao projetar a proposta existente: %w", err)
	}

	result := &ProposalResult{Proposal: proposal, Replayed: true}
	if event.ReceiptID != nil {
		result.ReceiptID = *event.ReceiptID
	}
	return result, nil
}

func (s *Service) Approve(ctx context.Context, scope domain.OfficeScope, proposalID, approver string) (*TransitionResult, error) {
	return s.transition(ctx, scope, proposalID, domain.ProposalStatusApproved, approver, "")
}

func (s *Service) Deny(ctx context.Context, scope domain.OfficeScope, proposalID, denier, reason string) (*TransitionResult, error) {
	return s.transition(ctx, scope, proposalID, domain.ProposalStatusDenied, denier, reason)
}

// transition aplica o CAS pending->target. Quem perde a corrida relê o
// status vigente e devolve o desfecho idempotente correspondente.
func (s *Service) transition(ctx context.Context, scope domain.OfficeScope, proposalID, target, actor, reason string) (*TransitionResult, error) {
	logger := log.ForContext(ctx)

	event, err := s.eventRepository.GetByID(ctx, scope.TenantID, scope.OfficeID, proposalID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar a proposta: %w", err)
	}
	if event == nil || event.EventType != domain.EventProposalCreated {
		return nil, ErrProposalNotFound
	}

	if outcome, done, err := resolveSettled(event, target); done {
		return outcome, err
	}

	now := time.Now().UTC()
	patch := map[string]any{}
	if target == domain.ProposalStatusApproved {
		patch["approved_by"] = actor
		patch["approved_at"] = now.Format(time.RFC3339)
	} else {
		patch["denied_by"] = actor
		patch["denied_at"] = now.Format(time.RFC3339)
		if reason != "" {
			patch["deny_reason"] = reason
		}
	}

	swapped, err := s.eventRepository.UpdateProposalStatus(ctx, scope.TenantID, scope.OfficeID, proposalID, domain.ProposalStatusPending, target, patch)
	if err != nil {
		return nil, fmt.Errorf("erro ao atualizar o status da proposta: %w", err)
	}
	if !swapped {
		current, err := s.eventRepository.GetByID(ctx, scope.TenantID, scope.OfficeID, proposalID)
		if err != nil {
			return nil, fmt.Errorf("erro ao reler a proposta após corrida: %w", err)
		}
		if current == nil {
			return nil, ErrProposalNotFound
		}
		if outcome, done, err := resolveSettled(current, target); done {
			return outcome, err
		}
		return nil, ErrStatusConflict
	}

	event.Status = target
	for key, value := range patch {
		if event.Metadata == nil {
			event.Metadata = map[string]any{}
		}
		event.Metadata[key] = value
	}

	receiptAction := domain.ReceiptProposalApprove
	if target == domain.ProposalStatusDenied {
		receiptAction = domain.ReceiptProposalDeny
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: receiptAction,
		Inputs: map[string]any{
			"proposal_id": proposalID,
			"actor":       actor,
			"from_status": domain.ProposalStatusPending,
			"reason":      reason,
		},
		Outputs: map[string]any{
			"status": target,
		},
	})
	if err != nil {
		logger.WithFields(log.Fields{
			"proposal_id": proposalID,
			"target":      target,
			"error":       err.Error(),
		}).Error("Falha ao gravar recibo da transição de autoridade")
		return nil, ErrReceiptUnavailable
	}
	metrics.ReceiptsWritten.WithLabelValues(receiptAction).Inc()

	if err := s.eventRepository.AttachReceipt(ctx, scope.TenantID, scope.OfficeID, []string{proposalID}, receipt.ReceiptID); err != nil {
		logger.WithFields(log.Fields{
			"proposal_id": proposalID,
			"receipt_id":  receipt.ReceiptID,
			"error":       err.Error(),
		}).Warn("Falha ao anexar recibo à proposta")
	}

	proposal, err := domain.ProposalFromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("erro ao projetar a proposta: %w", err)
	}

	logger.WithFields(log.Fields{
		"proposal_id": proposalID,
		"status":      target,
		"actor":       actor,
	}).Info("Proposta transicionada")

	return &TransitionResult{Proposal: proposal, Changed: true, ReceiptID: receipt.ReceiptID}, nil
}

// resolveSettled trata propostas já decididas: reaplicar a mesma decisão é
// um no-op sem novo recibo, aplicar a decisão oposta é conflito
func resolveSettled(event *domain.FinanceEvent, target string) (*TransitionResult, bool, error) {
	switch event.Status {
	case domain.ProposalStatusPending:
		return nil, false, nil
	case target:
		proposal, err := domain.ProposalFromEvent(event)
		if err != nil {
			return nil, true, fmt.Errorf("erro ao projetar a proposta: %w", err)
		}
		return &TransitionResult{Proposal: proposal, Changed: false}, true, nil
	default:
		return nil, true, ErrStatusConflict
	}
}

func (s *Service) Execute(ctx context.Context, scope domain.OfficeScope, proposalID, approver string) (*ExecutionResult, error) {
	logger := log.ForContext(ctx)

	event, err := s.eventRepository.GetByID(ctx, scope.TenantID, scope.OfficeID, proposalID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar a proposta: %w", err)
	}
	if event == nil || event.EventType != domain.EventProposalCreated {
		return nil, ErrProposalNotFound
	}

	switch event.Status {
	case domain.ProposalStatusDenied:
		return nil, ErrStatusConflict
	case domain.ProposalStatusPending:
		// Executar uma pendente aprova no caminho, com o recibo da
		// aprovação incluído
		if _, err := s.Approve(ctx, scope, proposalID, approver); err != nil {
			return nil, err
		}
		event, err = s.eventRepository.GetByID(ctx, scope.TenantID, scope.OfficeID, proposalID)
		if err != nil {
			return nil, fmt.Errorf("erro ao reler a proposta aprovada: %w", err)
		}
		if event == nil || event.Status != domain.ProposalStatusApproved {
			return nil, ErrStatusConflict
		}
	}

	proposal, err := domain.ProposalFromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("erro ao projetar a proposta: %w", err)
	}

	decisionID, err := utils.GenerateLedgerID("pol")
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar o identificador da decisão: %w", err)
	}

	tier, allowed := domain.PolicyTierForAmount(proposal.Amount)
	decision := &domain.PolicyDecision{
		ID:          decisionID,
		ProposalID:  proposalID,
		Allowed:     allowed,
		RiskTier:    tier,
		Amount:      proposal.Amount,
		EvaluatedAt: time.Now().UTC(),
	}

	if !allowed {
		decision.Reason = "valor acima do limite de execução automática"
		logger.WithFields(log.Fields{
			"proposal_id": proposalID,
			"risk_tier":   tier,
			"amount":      proposal.Amount.String(),
		}).Info("Execução bloqueada pela política")
		return &ExecutionResult{Proposal: proposal, PolicyDecision: decision, Allowed: false}, nil
	}
	decision.Reason = "valor dentro do limite da faixa " + tier

	executionID, err := utils.GenerateLedgerID("evt")
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar o identificador da execução: %w", err)
	}

	rawHash, err := utils.HashCanonical(map[string]any{
		"proposal_id":        proposalID,
		"policy_decision_id": decisionID,
		"approved_by":        approver,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao canonicalizar a execução: %w", err)
	}

	now := time.Now().UTC()
	executionEvent := &domain.FinanceEvent{
		ID:              executionID,
		TenantID:        scope.TenantID,
		OfficeID:        scope.OfficeID,
		Provider:        domain.ProviderAuthority,
		ProviderEventID: "exec:" + proposalID,
		EventType:       domain.EventActionExecuted,
		OccurredAt:      now,
		Amount:          proposal.Amount,
		Currency:        proposal.Currency,
		Status:          domain.EventStatusRecorded,
		EntityRefs:      []string{"proposal:" + proposalID},
		Metadata: map[string]any{
			"proposal_id":        proposalID,
			"action_type":        proposal.Meta.ActionType,
			"approved_by":        approver,
			"policy_decision_id": decisionID,
			"policy_tier":        tier,
		},
		RawHash:   rawHash,
		CreatedAt: now,
	}

	inserted, err := s.eventRepository.Insert(ctx, executionEvent)
	if err != nil {
		return nil, fmt.Errorf("erro ao persistir o evento de execução: %w", err)
	}
	if !inserted {
		// Execução repetida da mesma proposta: devolve o registro original
		existing, err := s.eventRepository.GetByProviderEventID(ctx, scope.TenantID, scope.OfficeID, domain.ProviderAuthority, "exec:"+proposalID)
		if err != nil {
			return nil, fmt.Errorf("erro ao recuperar a execução existente: %w", err)
		}
		result := &ExecutionResult{
			Proposal:       proposal,
			PolicyDecision: decision,
			Allowed:        true,
			Replayed:       true,
		}
		if existing != nil {
			result.ExecutionEventID = existing.ID
			if existing.ReceiptID != nil {
				result.ReceiptID = *existing.ReceiptID
			}
		}
		return result, nil
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptActionExecute,
		Inputs: map[string]any{
			"proposal_id": proposalID,
			"approved_by": approver,
			"amount":      proposal.Amount.String(),
			"inputs_hash": proposal.Meta.InputsHash,
		},
		Outputs: map[string]any{
			"execution_event_id": executionID,
			"policy_tier":        tier,
			"allowed":            true,
		},
		PolicyDecisionID: &decisionID,
	})
	if err != nil {
		logger.WithFields(log.Fields{
			"proposal_id":        proposalID,
			"execution_event_id": executionID,
			"error":              err.Error(),
		}).Error("Falha ao gravar recibo da execução")
		return nil, ErrReceiptUnavailable
	}
	metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptActionExecute).Inc()

	if err := s.eventRepository.AttachReceipt(ctx, scope.TenantID, scope.OfficeID, []string{executionID}, receipt.ReceiptID); err != nil {
		logger.WithFields(log.Fields{
			"execution_event_id": executionID,
			"receipt_id":         receipt.ReceiptID,
			"error":              err.Error(),
		}).Warn("Falha ao anexar recibo ao evento de execução")
	}

	// Registra o vínculo da execução na metadata da proposta aprovada
	linkage := map[string]any{
		"execution_event_id": executionID,
		"policy_decision_id": decisionID,
	}
	if _, err := s.eventRepository.UpdateProposalStatus(ctx, scope.TenantID, scope.OfficeID, proposalID, domain.ProposalStatusApproved, domain.ProposalStatusApproved, linkage); err != nil {
		logger.WithFields(log.Fields{
			"proposal_id": proposalID,
			"error":       err.Error(),
		}).Warn("Falha ao registrar o vínculo de execução na proposta")
	}

	logger.WithFields(log.Fields{
		"proposal_id":        proposalID,
		"execution_event_id": executionID,
		"policy_tier":        tier,
		"amount":             proposal.Amount.String(),
	}).Info("Ação executada")

	return &ExecutionResult{
		Proposal:         proposal,
		PolicyDecision:   decision,
		Allowed:          true,
		ExecutionEventID: executionID,
		ReceiptID:        receipt.ReceiptID,
	}, nil
}

func (s *Service) ListQueue(ctx context.Context, scope domain.OfficeScope, status string) ([]*domain.Proposal, error) {
	logger := log.ForContext(ctx)

	if status != "" && !domain.IsValidProposalStatus(status) {
		return nil, ErrInvalidStatus
	}

	events, err := s.eventRepository.ListProposals(ctx, scope.TenantID, scope.OfficeID, status)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar propostas: %w", err)
	}

	proposals := make([]*domain.Proposal, 0, len(events))
	for _, event := range events {
		proposal, err := domain.ProposalFromEvent(event)
		if err != nil {
			logger.WithFields(log.Fields{
				"proposal_id": event.ID,
				"error":       err.Error(),
			}).Warn("Proposta com metadata ilegível ignorada")
			continue
		}
		proposals = append(proposals, proposal)
	}

	return proposals, nil
}
