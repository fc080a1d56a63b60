package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON serializa qualquer valor em JSON determinístico
// (chaves de mapa ordenadas), para que o mesmo conteúdo gere sempre os
// mesmos bytes
func CanonicalJSON(in any) ([]byte, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	var normalized any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&normalized); err != nil {
		return nil, err
	}

	return json.Marshal(normalized)
}

// HashCanonical calcula o SHA-256 hexadecimal da forma canônica do valor
func HashCanonical(in any) (string, error) {
	canonical, err := CanonicalJSON(in)
	if err != nil {
		return "", err
	}

	return HashBytes(canonical), nil
}

// HashBytes calcula o SHA-256 hexadecimal de um payload bruto
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SignHMAC assina um payload com HMAC-SHA256 e devolve o hex da assinatura
func SignHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compara uma assinatura candidata com a esperada em tempo
// constante
func VerifyHMAC(payload []byte, secret, signature string) bool {
	expected := SignHMAC(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
