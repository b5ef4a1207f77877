package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// sections are the nested config groups env keys can address. An env key
// starting with one of these maps its first underscore to a dot, so
// FITREP_STORAGE_MAX_BYTES reaches storage.max_bytes while flat keys like
// FITREP_LOG_LEVEL stay intact.
var sections = []string{"http_", "storage_", "durability_", "dedupe_"}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FITREP_CONFIG is set
//  3. env (prefix FITREP_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("FITREP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %q: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider("FITREP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "fitrep_")
		for _, sec := range sections {
			if strings.HasPrefix(s, sec) {
				return strings.Replace(s, "_", ".", 1)
			}
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
