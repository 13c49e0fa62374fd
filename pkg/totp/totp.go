// Package totp validates time-based one-time passwords for the MFA login
// branch. Codes are the RFC 6238 defaults: 30 second period, 6 digits, SHA1.
// Validation accepts exactly one period of clock drift in either direction
// (skew=1); a code older or newer than that is rejected.
package totp

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period     = 30
	secretSize = 20
	skew       = 1
)

// Verify reports whether code is valid for the base32-encoded secret at the
// given time. Malformed input counts as an invalid code, not an error.
func Verify(code, secret string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// GenerateSecret creates a fresh shared secret for MFA enrollment and the
// otpauth:// provisioning URL authenticator apps consume.
func GenerateSecret(issuer, accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  secretSize,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Code computes the current code for a secret. Used by tests and enrollment
// confirmation; production validation goes through Verify.
func Code(secret string, now time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, now.UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
