package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"fulfillment/internal/core/domain/model/order"
)

// RandomCodeGenerator issues uniformly distributed numeric codes from crypto/rand.
type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() RandomCodeGenerator {
	return RandomCodeGenerator{}
}

var codeSpace = big.NewInt(1_000_000)

// Generate returns a zero-padded six-digit code.
func (RandomCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", order.HandoverCodeLength, n.Int64()), nil
}

// FixedCodeGenerator always returns the same code. Useful for fixtures and demos.
type FixedCodeGenerator string

func (g FixedCodeGenerator) Generate() (string, error) {
	return string(g), nil
}
