package config

import (
	"bufio"
	"os"
	"strings"
)

// loadEnvFiles applies KEY=VALUE pairs from the given files when they exist.
// Variables already present in the environment are left alone, so a shell
// export always beats a stale .env entry. Read errors are ignored.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			key, val, ok := parseEnvLine(scanner.Text())
			if !ok {
				continue
			}
			if _, set := os.LookupEnv(key); set {
				continue
			}
			_ = os.Setenv(key, val)
		}
		_ = f.Close()
	}
}

// parseEnvLine reads one line of a .env file. It accepts an optional "export "
// prefix, single or double quoted values, and " #" comments after unquoted values.
func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
		return key, val[1 : n-1], true
	}
	if i := strings.Index(val, " #"); i >= 0 {
		val = strings.TrimSpace(val[:i])
	}
	return key, val, true
}
