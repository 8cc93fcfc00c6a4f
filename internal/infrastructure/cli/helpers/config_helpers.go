package helpers

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/gadget-go/internal/app"
	configapp "github.com/doeshing/gadget-go/internal/application/config"
	"github.com/doeshing/gadget-go/internal/domain"
	configinfra "github.com/doeshing/gadget-go/internal/infrastructure/config"
)

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates cfg, backs up the current file and writes.
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := os.Stat(loader.Path()); err == nil {
		if _, err := loader.Backup(); err != nil {
			return fmt.Errorf("failed to create configuration backup: %w", err)
		}
	}
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ConfigToMap renders cfg through its YAML tags so keys match the file.
func ConfigToMap(cfg domain.Config) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}
	return out, nil
}

// MapToConfig is the inverse of ConfigToMap.
func MapToConfig(m map[string]interface{}) (domain.Config, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal updated map: %w", err)
	}
	var cfg domain.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("failed to unmarshal to config: %w", err)
	}
	return cfg, nil
}

// ParseYAMLValue reads input as a YAML scalar or collection, falling back to
// the literal string.
func ParseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil || parsed == nil {
		return input
	}
	return parsed
}

// LookupPath walks a dotted key such as "remote.read_timeout".
func LookupPath(root map[string]interface{}, key string) (interface{}, bool) {
	var node interface{} = root
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

// SetPath replaces the value at an existing dotted key. Unknown keys are
// rejected so typos do not silently vanish on the next load.
func SetPath(root map[string]interface{}, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts {
		current, ok := node[part]
		if !ok {
			return fmt.Errorf("unknown key %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if _, isSection := current.(map[string]interface{}); isSection {
				return fmt.Errorf("%s is a section, set one of its keys instead", key)
			}
			node[part] = value
			return nil
		}
		child, ok := current.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	return fmt.Errorf("empty key")
}
