// Package config loads pipeline settings from files, flags and MOSAIC_
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the current user's home directory and
// then substitutes $VAR references. Paths such as ~alice/db are not rewritten.
// If the home directory is unknown the ~ is kept.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/') {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	return os.ExpandEnv(path)
}
