package hash

import "golang.org/x/crypto/bcrypt"

// bcrypt only looks at the first 72 bytes of its input. Longer passwords are
// truncated here on purpose, for both hashing and verification, so the two
// paths always agree on what was hashed.
const maxPasswordBytes = 72

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword(truncate(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// CheckPassword returns false for accounts without a password hash
// (google-only accounts) instead of erroring.
func CheckPassword(hash *string, password string) bool {
	if hash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), truncate(password)) == nil
}
