package util

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/osinthub/search-api/internal/domain/apikey"
)

const keyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKeyValue produces a new API key value in the portal's format:
// the fixed prefix followed by 32 random alphanumeric characters.
func GenerateKeyValue() (string, error) {
	secret := make([]byte, apikey.KeySecretLength)
	max := big.NewInt(int64(len(keyCharset)))
	for i := range secret {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate key secret: %w", err)
		}
		secret[i] = keyCharset[n.Int64()]
	}
	return apikey.KeyValuePrefix + string(secret), nil
}
