package secret

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvProvider reads credentials from the process environment.
type EnvProvider struct{}

// NewEnvProvider creates an environment provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(ref)); v != "" {
		return v, nil
	}
	return "", ErrNotSet
}

func (p *EnvProvider) Close() error { return nil }

// LoadDotEnv loads variables from the given files (".env" when none are
// named). Missing files are ignored and variables already present in the
// environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("secret: load %s: %w", path, err)
		}
	}
	return nil
}
