package password

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	tempPasswordLength = 12

	// Ambiguous characters (0/O, 1/l/I) are excluded because temp
	// passwords are read out to agents over the phone when email fails.
	tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	bcryptCost = 12
)

// GenerateTemp produces a random temporary password for agent
// onboarding.
func GenerateTemp() (string, error) {
	out := make([]byte, tempPasswordLength)
	alphabetLen := big.NewInt(int64(len(tempPasswordAlphabet)))

	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}

	return string(out), nil
}

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
