package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
)

// HashPassword returns a base64 HMAC-SHA256 of password keyed by a fresh
// random salt, along with that salt.
func HashPassword(password string) (hash, salt string) {
	salt = uuid.NewString()
	return computeHash(password, salt), salt
}

// VerifyPassword reports whether password matches the stored hash and salt.
func VerifyPassword(storedHash, salt, password string) bool {
	return hmac.Equal([]byte(computeHash(password, salt)), []byte(storedHash))
}

func computeHash(password, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
