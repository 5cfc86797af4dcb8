package llm

import (
	"os"
	"strings"
)

// placeholderKey is what setup scripts write before a real key exists.
// Treating it as configured would send garbage credentials upstream.
const placeholderKey = "test_key"

// fallbackKeyEnv is consulted when a profile's own variables are unset.
const fallbackKeyEnv = "OPENAI_API_KEY"

// ResolveKey returns the usable API key for p, or ok=false when none of
// its environment variables carries a real value.
func ResolveKey(p Profile) (string, bool) {
	for _, env := range p.KeyEnvVars {
		if key := realKey(os.Getenv(env)); key != "" {
			return key, true
		}
	}
	if key := realKey(os.Getenv(fallbackKeyEnv)); key != "" {
		return key, true
	}
	return "", false
}

func realKey(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == placeholderKey {
		return ""
	}
	return v
}
