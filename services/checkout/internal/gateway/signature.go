package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Signature computes the notification signature:
// hex(SHA512(order_id + status_code + gross_amount + server_key)).
func Signature(reference, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(reference + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(reference, statusCode, grossAmount, serverKey, signature string) bool {
	if signature == "" || serverKey == "" {
		return false
	}
	expected := Signature(reference, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
