// ABOUTME: Bearer credential lookup for the orchestrator API, read fresh at each connection open.
// ABOUTME: Checks RUNBOARD_TOKEN first, then the token file under the user config dir.
package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCredential is returned when no bearer token can be found. Callers
// treat this as fatal for the connection attempt: there is no point
// retrying a request that will be rejected the same way.
var ErrNoCredential = errors.New("no bearer credential available")

// CredentialSource supplies a bearer token at the moment a connection is
// opened. Reading at open time (rather than at client construction) means a
// token refreshed on disk is picked up by the next reconnect.
type CredentialSource interface {
	Token() (string, error)
}

// EnvFileCredentials resolves the token from the RUNBOARD_TOKEN environment
// variable, falling back to ~/.config/runboard/token. This is the CLI
// analogue of the browser's session storage.
type EnvFileCredentials struct {
	// Path overrides the default token file location. Empty means
	// $XDG_CONFIG_HOME/runboard/token (or ~/.config/runboard/token).
	Path string
}

// Token implements CredentialSource.
func (c EnvFileCredentials) Token() (string, error) {
	if tok := os.Getenv("RUNBOARD_TOKEN"); tok != "" {
		return tok, nil
	}

	path := c.Path
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", ErrNoCredential
		}
		path = filepath.Join(dir, "runboard", "token")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", ErrNoCredential
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNoCredential
	}
	return tok, nil
}

// StaticCredentials returns a fixed token. Used by the demo command and tests.
type StaticCredentials string

// Token implements CredentialSource.
func (c StaticCredentials) Token() (string, error) {
	if c == "" {
		return "", ErrNoCredential
	}
	return string(c), nil
}
