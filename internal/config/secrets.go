// File: secrets.go
package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
)

// SessionSecretEnv names the variable the cookie signing key is read from.
const SessionSecretEnv = "CAPTCHA_SESSION_SECRET"

const sessionKeyBytes = 32

// ResolveSecret reads a secret using the *_FILE convention: envName+"_FILE"
// points at a file and wins over envName itself. Empty when neither is set;
// a secret file holding only whitespace is an error.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret from %s=%s: %w", fileEnv, path, err)
		}
		secret := strings.TrimSpace(string(content))
		if secret == "" {
			return "", fmt.Errorf("%w: %s=%s is empty", ErrInvalid, fileEnv, path)
		}
		return secret, nil
	}
	return os.Getenv(envName), nil
}

// SessionKey returns the cookie signing key. Without a configured secret a
// random key is made and generated is true; sessions signed with it do not
// survive a restart.
func (c *Config) SessionKey() (key []byte, generated bool, err error) {
	if c.Server.SessionSecret != "" {
		return []byte(c.Server.SessionSecret), false, nil
	}
	key = make([]byte, sessionKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate session key: %w", err)
	}
	return key, true, nil
}
