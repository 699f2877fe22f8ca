// Package names generates Docker-style random project names for launches.
package names

import (
	"fmt"

	"github.com/docker/docker/pkg/namesgenerator"
)

// ExistsFn checks if a name is already taken.
type ExistsFn func(name string) bool

// Generate returns a random adjective_surname name (e.g. "focused_turing").
// The character set is valid for compose project names.
func Generate() string {
	return namesgenerator.GetRandomName(0)
}

// GenerateUnique returns a name existsFn rejects no more than maxAttempts
// times.
func GenerateUnique(existsFn ExistsFn, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	for range maxAttempts {
		name := Generate()
		if !existsFn(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique name after %d attempts", maxAttempts)
}
