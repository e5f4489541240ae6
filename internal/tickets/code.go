package tickets

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 8
	maxCodeAttempts = 5
)

// generateTicketCode returns 8 random characters from A-Z0-9
func generateTicketCode() (string, error) {
	code := make([]byte, codeLength)
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))

	for i := range code {
		num, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// normalizeCode upper-cases a typed code and reports whether it is well formed
func normalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return code, false
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return code, false
		}
	}
	return code, true
}
