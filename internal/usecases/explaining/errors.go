package explaining

import "github.com/pkg/errors"

var (
	ErrUnknownMetric  = errors.New("métrica sem explicação disponível")
	ErrEntityNotFound = errors.New("nenhum evento encontrado para a entidade")
)
