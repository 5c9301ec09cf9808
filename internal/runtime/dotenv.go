// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envPair is one NAME=value entry read from a dotenv file.
type envPair struct {
	Name  string
	Value string
}

// loadEnvFile reads a dotenv file and returns its entries in declaration
// order. Relative paths resolve against baseDir. A trailing '?' marks the
// file optional: a missing optional file yields no entries and no error.
func loadEnvFile(path, baseDir string) ([]envPair, error) {
	optional := strings.HasSuffix(path, "?")
	if optional {
		path = strings.TrimSuffix(path, "?")
	}
	full := filepath.FromSlash(path)
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, full)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return parseEnvFile(content, path)
}

// parseEnvFile parses dotenv content:
//
//   - blank lines and # comments are skipped
//   - an optional "export " prefix is ignored
//   - NAME=value, with double quotes processing \n, \r, \t, \\, and \",
//     single quotes literal, and unquoted values stripped of trailing
//     " #" comments
//
// filename only decorates error messages.
func parseEnvFile(content []byte, filename string) ([]envPair, error) {
	var pairs []envPair
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		name, raw, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: missing '='", filename, i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%s:%d: empty variable name", filename, i+1)
		}
		value, err := parseEnvFileValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		pairs = append(pairs, envPair{Name: name, Value: value})
	}
	return pairs, nil
}

func parseEnvFileValue(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	switch raw[0] {
	case '"':
		if len(raw) < 2 || raw[len(raw)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return unescapeEnvValue(raw[1 : len(raw)-1])
	case '\'':
		if len(raw) < 2 || raw[len(raw)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		return raw[1 : len(raw)-1], nil
	}
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw, nil
}

func unescapeEnvValue(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("trailing backslash")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
