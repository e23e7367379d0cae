package security

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// totpIssuer is shown by authenticator apps next to the account name.
const totpIssuer = "Martabak Juara Admin"

// GenerateTOTPSecret creates a TOTP key for an admin and returns its secret and otpauth URL.
func GenerateTOTPSecret(username string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a six digit code against the secret at the current time.
func ValidateTOTP(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// TOTPCodeAt returns the code for secret at t.
func TOTPCodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCode(secret, t)
}
