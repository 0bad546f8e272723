// Package env reads configuration from the process environment, with file
// indirection for secret-bearing variables.
package env

import (
	"io/fs"
	"os"
	"strings"
)

// GetenvFS returns the value of the environment variable named by key. When
// key is unset or empty but key_FILE names a file, that file is read from
// fsys and its contents, trimmed of surrounding whitespace, are returned
// instead. Otherwise the default, if given, is returned.
func GetenvFS(fsys fs.FS, key string, def ...string) string {
	val := fromEnvOrFile(fsys, key)
	if val == "" && len(def) > 0 {
		return def[0]
	}

	return val
}

func fromEnvOrFile(fsys fs.FS, key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	p := os.Getenv(key + "_FILE")
	if p == "" {
		return ""
	}

	b, err := fs.ReadFile(fsys, strings.TrimPrefix(p, "/"))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(b))
}
