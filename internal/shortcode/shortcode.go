// Package shortcode generates random short code candidates.
//
// Candidates are not unique on their own. Callers insert them and retry on a
// uniqueness violation reported by the store.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of characters a short code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// DefaultLength is used when a non-positive length is configured.
	DefaultLength = 6
	// MaxLength is the longest code the store accepts.
	MaxLength = 10
)

// Generator produces short codes of a fixed length.
type Generator struct {
	length int
}

// NewGenerator returns a Generator for codes of the given length.
// Lengths outside (0, MaxLength] fall back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length <= 0 || length > MaxLength {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length returns the length of generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new candidate, each character chosen uniformly from Alphabet.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
