// Package codegen produces the short public codes printed on QR session
// artifacts.
package codegen

import (
	"crypto/rand"
	"strings"
)

// Alphabet holds 32 uppercase letters and digits with 0, O, 1 and I removed.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a code.
const Length = 6

// MaxAttempts bounds how many candidate codes a caller checks for existence
// before accepting the last one.
const MaxAttempts = 5

// Generator produces candidate codes. Uniqueness is the caller's concern.
type Generator interface {
	Generate() (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Generate() (string, error) { return f() }

type randomGenerator struct{}

// NewRandom returns a Generator backed by crypto/rand.
func NewRandom() Generator {
	return randomGenerator{}
}

func (randomGenerator) Generate() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	code := make([]byte, Length)
	for i := range code {
		// 256 is a multiple of 32 so the modulo keeps the distribution flat.
		code[i] = Alphabet[int(b[i])%len(Alphabet)]
	}
	return string(code), nil
}

// Valid reports whether code has the right length and only uses Alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

// Normalize upper-cases and trims user-typed codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
