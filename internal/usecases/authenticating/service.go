package authenticating

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

const (
	defaultTokenTTL = 60 * time.Minute
	secretLength    = 32
)

// TokenResult é a resposta da emissão de token por client credentials
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateAccountInput reúne os campos de criação de uma conta de serviço
type CreateAccountInput struct {
	Name      string
	TenantID  string
	OfficeIDs []string
	Scopes    []string
}

type Authenticator interface {
	// IssueToken troca client_id/client_secret por um JWT com os escopos e
	// offices da conta de serviço
	IssueToken(ctx context.Context, clientID, clientSecret string) (*TokenResult, error)

	// ValidateToken confere assinatura e validade e devolve as claims
	ValidateToken(tokenString string) (*domain.Claims, error)

	// CreateServiceAccount registra uma conta e devolve o segredo em claro
	// uma única vez
	CreateServiceAccount(ctx context.Context, input CreateAccountInput) (*domain.ServiceAccount, string, error)
}

type Service struct {
	accountRepository repository.ServiceAccountRepository
	cfg               *config.Config
}

func NewService(accountRepository repository.ServiceAccountRepository, cfg *config.Config) Authenticator {
	return &Service{
		accountRepository: accountRepository,
		cfg:               cfg,
	}
}

func (s *Service) IssueToken(ctx context.Context, clientID, clientSecret string) (*TokenResult, error) {
	if clientID == "" || clientSecret == "" {
		return nil, NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "client_id e client_secret são obrigatórios")
	}

	account, err := s.accountRepository.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, NewAuthError(err, apiErrors.ErrDatabaseOperation, "Erro ao consultar a conta de serviço")
	}

	// Conta inexistente e segredo incorreto respondem igual
	if account == nil {
		return nil, NewAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, "Credenciais inválidas")
	}

	if !account.Active {
		return nil, NewAccountAuthError(ErrAccountDisabled, apiErrors.ErrAccountDisabled, clientID, "Conta desativada")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte(clientSecret)); err != nil {
		return nil, NewAccountAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, clientID, "Credenciais inválidas")
	}

	ttl := defaultTokenTTL
	if s.cfg.Auth.TokenTTLMinutes > 0 {
		ttl = time.Duration(s.cfg.Auth.TokenTTLMinutes) * time.Minute
	}
	expiresAt := time.Now().Add(ttl)

	token, err := generateJWT(account, s.cfg.Auth.Secret, expiresAt)
	if err != nil {
		return nil, NewAuthError(err, apiErrors.ErrInternalServer, "Erro ao gerar token de autenticação")
	}

	logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"tenant_id": account.TenantID,
	}).Info("Token emitido para conta de serviço")

	return &TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func generateJWT(account *domain.ServiceAccount, secret string, expiresAt time.Time) (string, error) {
	claims := domain.Claims{
		ClientID:  account.ClientID,
		TenantID:  account.TenantID,
		OfficeIDs: account.OfficeIDs,
		Scopes:    account.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ClientID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Auth.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) CreateServiceAccount(ctx context.Context, input CreateAccountInput) (*domain.ServiceAccount, string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.TenantID == "" {
		return nil, "", NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "Nome e tenant são obrigatórios")
	}

	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read"}
	}

	clientID, err := utils.GenerateLedgerID("cli")
	if err != nil {
		return nil, "", NewAuthError(err, apiErrors.ErrInternalServer, "Erro ao gerar client_id")
	}

	secret, err := generateClientSecret(secretLength)
	if err != nil {
		return nil, "", NewAuthError(err, apiErrors.ErrInternalServer, "Erro ao gerar o segredo")
	}

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", NewAuthError(err, apiErrors.ErrInternalServer, "Erro ao proteger o segredo")
	}

	account := &domain.ServiceAccount{
		ClientID:   clientID,
		Name:       name,
		SecretHash: string(hashedSecret),
		TenantID:   input.TenantID,
		OfficeIDs:  input.OfficeIDs,
		Scopes:     scopes,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.accountRepository.Create(ctx, account); err != nil {
		return nil, "", NewAuthError(err, apiErrors.ErrDatabaseOperation, "Erro ao criar a conta de serviço")
	}

	logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"tenant_id": input.TenantID,
		"scopes":    scopes,
	}).Info("Conta de serviço criada")

	return account, secret, nil
}

// generateClientSecret gera um segredo alfanumérico forte com o comprimento
// pedido
func generateClientSecret(length int) (string, error) {
	if length < 16 {
		length = 16
	}

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	secret := make([]byte, length)
	for i := range secret {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		secret[i] = charset[n.Int64()]
	}

	return string(secret), nil
}
