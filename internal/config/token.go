package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenFile holds the API bearer token inside the data directory.
const tokenFile = "token"

// EnsureAPIToken returns the bearer token used by the HTTP API,
// generating and persisting a new one on first run.
func EnsureAPIToken(dataDir string) (string, error) {
	token, err := GetAPIToken(dataDir)
	if err == nil {
		return token, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token = hex.EncodeToString(buf)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	p := filepath.Join(dataDir, tokenFile)
	if err := os.WriteFile(p, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing token file: %w", err)
	}
	return token, nil
}

// GetAPIToken reads the persisted bearer token. The error satisfies
// os.IsNotExist when no token has been generated yet.
func GetAPIToken(dataDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, tokenFile))
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}
