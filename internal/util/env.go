package util

import (
	"os"
	"strings"
)

// Getenv returns the first non-empty value among the named environment variables
func Getenv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
