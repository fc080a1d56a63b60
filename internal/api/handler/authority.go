package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/internal/usecases/authority"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

var validate = validator.New()

// validationDetails converte os erros do validator no mapa campo->regra
// devolvido no envelope de erro
func validationDetails(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	details := make(map[string]string)
	for _, fieldError := range validationErrors {
		details[fieldError.Field()] = fieldError.Tag()
	}
	return details
}

// CreateProposalRequest é o corpo de criação de uma proposta de ação.
// Título ou tipo de ação precisam vir preenchidos.
type CreateProposalRequest struct {
	Title         string          `json:"title" validate:"required_without=ActionType,max=200"`
	ActionType    string          `json:"action_type" validate:"omitempty,oneof=payment_release transfer adjustment"`
	RiskTier      string          `json:"risk_tier" validate:"omitempty,max=20"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	CorrelationID string          `json:"correlation_id" validate:"omitempty,max=120"`
	Inputs        map[string]any  `json:"inputs"`
}

// DenyProposalRequest é o corpo opcional da negação, carregando o motivo
type DenyProposalRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// ExecuteActionRequest identifica a proposta a executar. ApprovedBy é
// opcional; sem ele a conta autenticada assume a autoria.
type ExecuteActionRequest struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	ApprovedBy string `json:"approved_by" validate:"omitempty,max=120"`
}

// CreateProposal registra uma intenção de ação como evento pendente no
// ledger. Repetir o mesmo correlation_id devolve a proposta existente.
func CreateProposal(service authority.Authority) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		var request CreateProposalRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
			return
		}

		if err := validate.Struct(request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Requisição inválida", validationDetails(err))
			return
		}

		result, err := service.CreateProposal(r.Context(), scope, authority.CreateProposalInput{
			Title:         request.Title,
			ActionType:    request.ActionType,
			RiskTier:      request.RiskTier,
			Amount:        request.Amount,
			Currency:      request.Currency,
			CorrelationID: request.CorrelationID,
			Inputs:        request.Inputs,
		})
		if err != nil {
			if errors.Is(err, authority.ErrMissingTitle) {
				apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, err.Error(), nil)
				return
			}
			if errors.Is(err, authority.ErrReceiptUnavailable) {
				apiErrors.WriteError(w, apiErrors.ErrReceiptWrite, err.Error(), nil)
				return
			}

			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("authority: failed to create proposal")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao criar a proposta", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"proposal_id": result.Proposal.ID,
			"replayed":    result.Replayed,
		}).Info("authority: proposal created")

		w.Header().Set("Content-Type", "application/json")
		if !result.Replayed {
			w.WriteHeader(http.StatusCreated)
		}
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithField("error", err.Error()).Error("authority: failed to encode response")
		}
	})
}

// GetAuthorityQueue lista as propostas do escritório, opcionalmente
// filtradas por status
func GetAuthorityQueue(service authority.Authority) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		status := r.URL.Query().Get("status")

		proposals, err := service.ListQueue(r.Context(), scope, status)
		if err != nil {
			if errors.Is(err, authority.ErrInvalidStatus) {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Status inválido. Valores aceitos: pending, approved, denied", nil)
				return
			}

			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("authority: failed to list queue")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao listar a fila de autoridade", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"proposals": proposals,
			"total":     len(proposals),
		}); err != nil {
			logger.WithField("error", err.Error()).Error("authority: failed to encode response")
		}
	})
}

// ApproveProposal move uma proposta pendente para aprovada. Reaprovar é um
// no-op; aprovar uma proposta negada devolve conflito.
func ApproveProposal(service authority.Authority) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		proposalID := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if proposalID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Identificador da proposta ausente", nil)
			return
		}

		result, err := service.Approve(r.Context(), scope, proposalID, callerID(r))
		if err != nil {
			writeTransitionError(w, logger, scope.TenantID, proposalID, "approve", err)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"proposal_id": proposalID,
			"changed":     result.Changed,
		}).Info("authority: proposal approved")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithField("error", err.Error()).Error("authority: failed to encode response")
		}
	})
}

// DenyProposal é o simétrico de ApproveProposal, com motivo opcional
func DenyProposal(service authority.Authority) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		proposalID := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if proposalID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Identificador da proposta ausente", nil)
			return
		}

		// O corpo é opcional; sem corpo a negação fica sem motivo registrado
		var request DenyProposalRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&request)
		}
		if err := validate.Struct(request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Requisição inválida", validationDetails(err))
			return
		}

		result, err := service.Deny(r.Context(), scope, proposalID, callerID(r), request.Reason)
		if err != nil {
			writeTransitionError(w, logger, scope.TenantID, proposalID, "deny", err)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"proposal_id": proposalID,
			"changed":     result.Changed,
		}).Info("authority: proposal denied")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithField("error", err.Error()).Error("authority: failed to encode response")
		}
	})
}

// ExecuteAction roda a proposta pelo portão de política e, quando
// permitida, grava o evento de execução com o recibo da decisão
func ExecuteAction(service authority.Authority) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		var request ExecuteActionRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
			return
		}

		if err := validate.Struct(request); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Requisição inválida", validationDetails(err))
			return
		}

		approver := request.ApprovedBy
		if approver == "" {
			approver = callerID(r)
		}

		result, err := service.Execute(r.Context(), scope, request.ProposalID, approver)
		if err != nil {
			writeTransitionError(w, logger, scope.TenantID, request.ProposalID, "execute", err)
			return
		}

		// Negação pela política é um resultado de primeira classe, não um
		// erro interno: o chamador recebe a decisão completa
		if !result.Allowed {
			logger.WithFields(log.Fields{
				"tenant_id":   scope.TenantID,
				"office_id":   scope.OfficeID,
				"proposal_id": request.ProposalID,
				"risk_tier":   result.PolicyDecision.RiskTier,
			}).Warn("authority: execution denied by policy")

			apiErrors.WriteError(w, apiErrors.ErrPolicyDenied, "Execução negada pela política de risco", result.PolicyDecision)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"proposal_id": request.ProposalID,
			"receipt_id":  result.ReceiptID,
			"replayed":    result.Replayed,
		}).Info("authority: action executed")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithField("error", err.Error()).Error("authority: failed to encode response")
		}
	})
}

// writeTransitionError traduz os erros do fluxo de autoridade para o
// envelope da API
func writeTransitionError(w http.ResponseWriter, logger log.Logger, tenantID, proposalID, operation string, err error) {
	switch {
	case errors.Is(err, authority.ErrProposalNotFound):
		apiErrors.WriteError(w, apiErrors.ErrProposalNotFound, "Proposta não encontrada: "+proposalID, nil)
	case errors.Is(err, authority.ErrStatusConflict):
		apiErrors.WriteError(w, apiErrors.ErrStateConflict, "A transição conflita com a decisão já registrada", nil)
	case errors.Is(err, authority.ErrReceiptUnavailable):
		apiErrors.WriteError(w, apiErrors.ErrReceiptWrite, err.Error(), nil)
	default:
		logger.WithFields(log.Fields{
			"tenant_id":   tenantID,
			"proposal_id": proposalID,
			"operation":   operation,
			"error":       err.Error(),
		}).Error("authority: transition failed")

		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao processar a transição", nil)
	}
}
