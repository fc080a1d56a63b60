package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Comprimento maior para identificadores do ledger, onde colisão corrompe a cadeia
const ledgerIDLength = 14

// GenerateLedgerID gera um identificador prefixado para entidades do ledger
// (ex.: rcp_..., prop_..., pol_...)
func GenerateLedgerID(prefix string) (string, error) {
	id, err := gonanoid.Generate(characters, ledgerIDLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, id), nil
}
