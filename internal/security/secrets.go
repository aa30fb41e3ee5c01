package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

const (
	// MinSecretLength is the recommended minimum length for signing secrets.
	// Shorter secrets are accepted (senders choose them) but reported.
	MinSecretLength = 32

	// MinEntropy is the Shannon entropy below which a secret is reported.
	MinEntropy = 3.5

	generatedSecretBytes = 36
)

var placeholderSecrets = map[string]bool{
	"replace-with-secret":     true,
	"github-webhook-password": true,
	"webhook-secret":          true,
	"topsecret":               true,
	"secret":                  true,
	"password":                true,
	"changeme":                true,
}

// SecretWarnings lists the weaknesses of a signing secret. An empty result
// means the secret looks strong.
func SecretWarnings(secret string) []string {
	var warnings []string

	if len(secret) < MinSecretLength {
		warnings = append(warnings, fmt.Sprintf("secret is short (%d characters, recommended at least %d)", len(secret), MinSecretLength))
	}

	lower := strings.ToLower(secret)
	if placeholderSecrets[lower] || strings.Contains(lower, "replace") || strings.Contains(lower, "changeme") {
		warnings = append(warnings, "secret appears to be a placeholder value")
	}

	if secret != "" && isSequential(secret) {
		warnings = append(warnings, "secret is mostly sequential characters")
	}

	if entropy := calculateEntropy(secret); entropy < MinEntropy {
		warnings = append(warnings, fmt.Sprintf("secret has low entropy (%.2f < %.2f)", entropy, MinEntropy))
	}

	return warnings
}

// GenerateSecret creates a random 48-character URL-safe signing secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, generatedSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// calculateEntropy computes the Shannon entropy of a string.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	var entropy float64
	length := float64(len(s))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// isSequential reports whether more than 70% of neighbouring characters are
// consecutive ("12345678", "abcdef").
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	return float64(sequential) > float64(len(s))*0.7
}
