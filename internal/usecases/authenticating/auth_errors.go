package authenticating

import (
	"errors"
	"fmt"
)

// Erros de autenticação de contas de serviço
var (
	ErrInvalidCredentials  = errors.New("credenciais inválidas")
	ErrAccountDisabled     = errors.New("conta de serviço desativada")
	ErrInvalidToken        = errors.New("token inválido")
	ErrExpiredToken        = errors.New("token expirado")
	ErrMissingRequiredData = errors.New("dados obrigatórios ausentes")
	ErrDatabaseOperation   = errors.New("erro ao realizar operação no banco de dados")
)

// AuthError é um erro com contexto adicional para autenticação
type AuthError struct {
	Err      error  // Erro base
	Code     string // Código de erro para API
	ClientID string // Conta de serviço envolvida (quando aplicável)
	Details  string // Detalhes adicionais
}

// Error implementa a interface error
func (e *AuthError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

// Unwrap retorna o erro subjacente
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsCredentialsError verifica se o erro está relacionado a credenciais inválidas
func IsCredentialsError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountDisabled)
}

// IsTokenError verifica se o erro está relacionado ao token de acesso
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken)
}

// NewAuthError cria um novo erro de autenticação
func NewAuthError(baseErr error, code string, details string) *AuthError {
	return &AuthError{
		Err:     baseErr,
		Code:    code,
		Details: details,
	}
}

// NewAccountAuthError cria um novo erro de autenticação com contexto da conta
func NewAccountAuthError(baseErr error, code string, clientID string, details string) *AuthError {
	return &AuthError{
		Err:      baseErr,
		Code:     code,
		ClientID: clientID,
		Details:  details,
	}
}
