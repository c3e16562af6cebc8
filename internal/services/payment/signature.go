package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// En-têtes posés par Cashfree sur chaque webhook.
const (
	HeaderSignature = "x-webhook-signature"
	HeaderTimestamp = "x-webhook-timestamp"
)

// Sign calcule base64(HMAC-SHA256(secret, timestamp + rawBody)).
func Sign(rawBody []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature vérifie l'authenticité d'un webhook.
// rawBody doit être exactement les octets reçus : un corps re-sérialisé ne vérifie plus.
func VerifySignature(rawBody []byte, timestamp, signature, secret string) bool {
	if timestamp == "" || signature == "" || secret == "" {
		return false
	}
	expected := Sign(rawBody, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
