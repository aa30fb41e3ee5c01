package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"hookbox/internal/security"
	"hookbox/internal/webhook"
)

// File is the on-disk layout of the webhook definitions file.
type File struct {
	Webhooks []map[string]any `yaml:"webhooks"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML definitions file, expands ${VAR} references from the
// environment and resolves every entry. The first invalid entry fails the
// whole load.
func Load(path string, reg *Registry) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, reg)
}

// Parse resolves a YAML definitions document.
func Parse(data []byte, reg *Registry) (*Set, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	configs := make([]*webhook.Config, 0, len(file.Webhooks))
	for i, raw := range file.Webhooks {
		cfg, err := Resolve(expandEnv(raw).(map[string]any), reg)
		if err != nil {
			return nil, fmt.Errorf("webhooks[%d]: %w", i, err)
		}
		if err := security.ValidateConfigName(cfg.Name); err != nil {
			return nil, fmt.Errorf("webhooks[%d]: %w", i, err)
		}
		configs = append(configs, cfg)
	}

	return NewSet(configs...)
}

// expandEnv replaces ${VAR} in every string value. Unset variables expand to
// the empty string, which makes required keys fail as missing.
func expandEnv(v any) any {
	switch x := v.(type) {
	case string:
		return envPattern.ReplaceAllStringFunc(x, func(ref string) string {
			return os.Getenv(envPattern.FindStringSubmatch(ref)[1])
		})
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = expandEnv(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = expandEnv(val)
		}
		return out
	default:
		return v
	}
}
