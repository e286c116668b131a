package config

import (
	"os"
	"strings"
)

// An EnvMap is a [Map] that reads from environment variables. Keys are mapped to environment
// variable names by replacing hyphens ('-') with underscores ('_'), replacing periods ('.') with
// two underscores ("__"), and transforming the key to UPPER-CASE. A non-empty Prefix is joined
// to the name with a single underscore.
type EnvMap struct {
	Prefix string
}

func (m EnvMap) Lookup(key string) (string, bool) {
	return os.LookupEnv(m.Name(key))
}

// Name returns the environment variable name for key.
func (m EnvMap) Name(key string) string {
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, ".", "__")
	key = strings.ToUpper(key)
	if m.Prefix == "" {
		return key
	}
	return strings.ToUpper(m.Prefix) + "_" + key
}
