package authority

import "github.com/pkg/errors"

var (
	ErrMissingTitle       = errors.New("a proposta exige título ou tipo de ação")
	ErrInvalidStatus      = errors.New("status de proposta desconhecido")
	ErrProposalNotFound   = errors.New("proposta não encontrada")
	ErrStatusConflict     = errors.New("a transição conflita com a decisão já registrada")
	ErrReceiptUnavailable = errors.New("a transição não foi concluída de forma durável: falha ao gravar o recibo")
)
