package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCanonical(t *testing.T) {
	// A mesma estrutura montada em ordens diferentes precisa gerar o mesmo
	// hash, senão a cadeia de recibos quebra entre execuções
	first, err := HashCanonical(map[string]any{
		"amount":   "4500.00",
		"currency": "BRL",
		"refs":     []string{"invoice:inv_501"},
	})
	require.NoError(t, err)

	second, err := HashCanonical(map[string]any{
		"refs":     []string{"invoice:inv_501"},
		"currency": "BRL",
		"amount":   "4500.00",
	})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	changed, err := HashCanonical(map[string]any{
		"amount":   "4500.01",
		"currency": "BRL",
		"refs":     []string{"invoice:inv_501"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestCanonicalJSONPreservesLargeNumbers(t *testing.T) {
	canonical, err := CanonicalJSON(map[string]any{"external_id": 9007199254740993})
	require.NoError(t, err)

	// Sem UseNumber o valor passaria por float64 e perderia o último dígito
	assert.Contains(t, string(canonical), "9007199254740993")
}

func TestVerifyHMAC(t *testing.T) {
	payload := []byte(`{"event":"transaction.posted","id":"tx_103"}`)
	secret := "segredo-do-webhook"

	signature := SignHMAC(payload, secret)
	assert.Len(t, signature, 64)

	assert.True(t, VerifyHMAC(payload, secret, signature))
	assert.False(t, VerifyHMAC(payload, "outro-segredo", signature))
	assert.False(t, VerifyHMAC([]byte(`{"event":"adulterado"}`), secret, signature))
	assert.False(t, VerifyHMAC(payload, secret, "assinatura-invalida"))
}
