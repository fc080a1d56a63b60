package receipting

import "errors"

var (
	// ErrReceiptNotFound indica que o recibo não existe no escopo informado
	ErrReceiptNotFound = errors.New("recibo não encontrado")

	// ErrChainExhausted indica que a gravação perdeu a corrida pela ponta da
	// cadeia em todas as tentativas
	ErrChainExhausted = errors.New("não foi possível anexar o recibo: cadeia em disputa")
)
