package snapshotting

import "github.com/pkg/errors"

var (
	ErrSnapshotNotFound = errors.New("nenhum snapshot disponível para o escritório")
)
