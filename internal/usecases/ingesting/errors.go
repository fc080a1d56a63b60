package ingesting

import "errors"

var (
	// ErrUnknownProvider indica um provedor sem integrador registrado
	ErrUnknownProvider = errors.New("provedor desconhecido")

	// ErrInvalidSignature indica que a assinatura HMAC do webhook não
	// confere com o segredo compartilhado do provedor
	ErrInvalidSignature = errors.New("assinatura do webhook inválida")

	// ErrMalformedPayload indica um corpo de webhook que não pôde ser
	// interpretado pelo integrador do provedor
	ErrMalformedPayload = errors.New("payload do webhook malformado")
)
