package apiErrors

import (
	"encoding/json"
	"net/http"
)

// Códigos de erro expostos pela API
const (
	// Erros de autenticação (1000-1999)
	ErrInvalidCredentials    = "AUTH_001" // Credenciais inválidas
	ErrInvalidToken          = "AUTH_002" // Token inválido ou expirado
	ErrInsufficientPrivilege = "AUTH_003" // Escopo insuficiente para a operação
	ErrInvalidSignature      = "AUTH_004" // Assinatura HMAC de webhook inválida
	ErrAccountDisabled       = "AUTH_005" // Conta de serviço desativada

	// Erros de validação (2000-2999)
	ErrInvalidRequest      = "VAL_001" // Requisição inválida
	ErrMissingRequiredData = "VAL_002" // Dados obrigatórios ausentes
	ErrInvalidFormat       = "VAL_003" // Formato de dados inválido

	// Recursos não encontrados (3000-3999)
	ErrProposalNotFound = "NTF_001" // Proposta inexistente
	ErrUnknownMetric    = "NTF_002" // Métrica desconhecida no explain
	ErrResourceNotFound = "NTF_003" // Recurso inexistente

	// Conflitos de estado (4000-4999)
	ErrStateConflict = "CNF_001" // Transição de estado conflitante

	// Política de autoridade
	ErrPolicyDenied = "POL_001" // Ação negada pela política de risco

	// Falhas de upstream
	ErrUpstreamProvider = "UPS_001" // Falha na consulta ao provedor externo

	// Erros do servidor (5000-5999)
	ErrInternalServer    = "SRV_001" // Erro interno do servidor
	ErrDatabaseOperation = "SRV_002" // Erro de operação de banco de dados
	ErrReceiptWrite      = "SRV_003" // Falha ao registrar o recibo da operação
)

// Mapeamento de códigos de erro para status HTTP
var httpStatusMap = map[string]int{
	ErrInvalidCredentials:    http.StatusUnauthorized,
	ErrInvalidToken:          http.StatusUnauthorized,
	ErrInsufficientPrivilege: http.StatusForbidden,
	ErrInvalidSignature:      http.StatusUnauthorized,
	ErrAccountDisabled:       http.StatusForbidden,
	ErrInvalidRequest:        http.StatusBadRequest,
	ErrMissingRequiredData:   http.StatusBadRequest,
	ErrInvalidFormat:         http.StatusBadRequest,
	ErrProposalNotFound:      http.StatusNotFound,
	ErrUnknownMetric:         http.StatusNotFound,
	ErrResourceNotFound:      http.StatusNotFound,
	ErrStateConflict:         http.StatusConflict,
	ErrPolicyDenied:          http.StatusForbidden,
	ErrUpstreamProvider:      http.StatusBadGateway,
	ErrInternalServer:        http.StatusInternalServerError,
	ErrDatabaseOperation:     http.StatusInternalServerError,
	ErrReceiptWrite:          http.StatusInternalServerError,
}

// APIError representa um erro de API padronizado
type APIError struct {
	Code    string `json:"code"`              // Código de erro para o cliente
	Message string `json:"message,omitempty"` // Mensagem descritiva (opcional)
	Details any    `json:"details,omitempty"` // Detalhes adicionais (opcional)
}

// WriteError escreve o erro padronizado para a resposta HTTP
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	status, exists := httpStatusMap[code]
	if !exists {
		status = http.StatusInternalServerError
	}

	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}

// StatusFor devolve o status HTTP associado a um código de erro
func StatusFor(code string) int {
	if status, exists := httpStatusMap[code]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// FromError cria um erro de API a partir de um erro Go
// Útil para quando você quer envolver um erro existente em um erro de API
func FromError(err error, code string) APIError {
	if err == nil {
		return APIError{
			Code:    ErrInternalServer,
			Message: "Erro desconhecido",
		}
	}

	return APIError{
		Code:    code,
		Message: err.Error(),
	}
}
