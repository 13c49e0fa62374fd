package password

import "golang.org/x/crypto/bcrypt"

// Hash derives a bcrypt hash from the plaintext password. The plaintext is
// never stored; callers persist only the returned hash.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether the plaintext password matches the stored hash.
// bcrypt's comparison is constant-time over the derived digests.
func Verify(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
