package config

import (
	"os"
	"strings"
)

// APIKeyEnvVar is the environment variable holding the Gemini credential.
const APIKeyEnvVar = "GEMINI_API_KEY"

// APIKeyFromEnv returns the credential from the environment, trimmed.
// An empty string means no credential is configured.
func APIKeyFromEnv() string {
	return strings.TrimSpace(os.Getenv(APIKeyEnvVar))
}

// ValidAPIKey reports whether a credential looks plausible.
// This is a format sniff, not an authentication check.
func ValidAPIKey(key string) bool {
	return len(strings.TrimSpace(key)) >= 10
}
