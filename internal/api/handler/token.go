package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/internal/usecases/authenticating"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
)

type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type CreateAccountRequest struct {
	Name      string   `json:"name" validate:"required,max=120"`
	TenantID  string   `json:"tenant_id" validate:"required,max=64"`
	OfficeIDs []string `json:"office_ids"`
	Scopes    []string `json:"scopes" validate:"required,min=1,dive,oneof=read approve admin"`
}

type CreateAccountResponse struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Name         string   `json:"name"`
	TenantID     string   `json:"tenant_id"`
	OfficeIDs    []string `json:"office_ids"`
	Scopes       []string `json:"scopes"`
}

// IssueToken troca credenciais de cliente por um JWT com escopo de tenant
func IssueToken(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TokenRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		if req.ClientID == "" || req.ClientSecret == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "client_id e client_secret são obrigatórios", nil)
			return
		}

		token, err := service.IssueToken(r.Context(), req.ClientID, req.ClientSecret)
		if err != nil {
			handleTokenError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(token)
	}
}

// CreateServiceAccount registra uma conta de serviço. O segredo em claro
// aparece apenas nesta resposta; só o hash fica gravado.
func CreateServiceAccount(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAccountRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		if err := validate.Struct(req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Requisição inválida", validationDetails(err))
			return
		}

		account, secret, err := service.CreateServiceAccount(r.Context(), authenticating.CreateAccountInput{
			Name:      req.Name,
			TenantID:  req.TenantID,
			OfficeIDs: req.OfficeIDs,
			Scopes:    req.Scopes,
		})
		if err != nil {
			logrus.Error(err)

			if errors.Is(err, authenticating.ErrMissingRequiredData) {
				apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, err.Error(), nil)
				return
			}

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao criar a conta de serviço", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateAccountResponse{
			ClientID:     account.ClientID,
			ClientSecret: secret,
			Name:         account.Name,
			TenantID:     account.TenantID,
			OfficeIDs:    account.OfficeIDs,
			Scopes:       account.Scopes,
		})
	}
}

// handleTokenError traduz as falhas de autenticação para o envelope da API
func handleTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authenticating.ErrInvalidCredentials):
		apiErrors.WriteError(w, apiErrors.ErrInvalidCredentials, "Credenciais inválidas", nil)

	case errors.Is(err, authenticating.ErrAccountDisabled):
		apiErrors.WriteError(w, apiErrors.ErrAccountDisabled, "Conta de serviço desativada", nil)

	case errors.Is(err, authenticating.ErrMissingRequiredData):
		apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "client_id e client_secret são obrigatórios", nil)

	default:
		logrus.Error(err)
		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno ao emitir o token", nil)
	}
}
