// Package id generates opaque identifiers for encounter records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random v4 UUID rendered as 26 lowercase base32 characters.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}

// Generator produces identifiers. Tests substitute a deterministic sequence.
type Generator func() (string, error)

// Sequence returns a Generator yielding prefix-1, prefix-2, and so on.
func Sequence(prefix string) Generator {
	next := 0
	return func() (string, error) {
		next++
		return fmt.Sprintf("%s-%d", prefix, next), nil
	}
}
