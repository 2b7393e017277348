package state

import "strings"

// Keys matching these substrings never land in the state file in the
// clear. The tunnel auth token is the motivating case.
var sensitiveKeyPatterns = []string{
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"KEY",
	"CREDENTIAL",
	"AUTH",
	"PRIVATE",
	"PASSPHRASE",
}

const redactedValue = "[REDACTED]"

// SanitizeEnv returns a copy of env with sensitive values redacted.
func SanitizeEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if isSensitiveKey(k) {
			out[k] = redactedValue
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
