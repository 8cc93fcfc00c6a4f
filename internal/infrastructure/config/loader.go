package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/gadget-go/assets"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/pkg/filesystem"
	"github.com/doeshing/gadget-go/internal/ports"
)

// FileLoader loads YAML configuration from ~/.gadget/config.yaml (overridable
// via GADGET_CONFIG) and applies GADGET_* environment overrides on top.
type FileLoader struct {
	overridePath string
	lookupEnv    func() map[string]string
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, err
	}

	cfg, err := l.readFile(path)
	if err != nil {
		return domain.Config{}, err
	}

	opts := env.Options{}
	if l.lookupEnv != nil {
		opts.Environment = l.lookupEnv()
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return domain.Config{}, fmt.Errorf("parse env: %w", err)
	}

	return hydrateDefaults(cfg), nil
}

// LoadFile reads the file without environment overrides, for commands that
// rewrite it.
func (l *FileLoader) LoadFile(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, err
	}
	cfg, err := l.readFile(path)
	if err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) readFile(path string) (domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := writeConfig(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the resolved path.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

// Path returns the config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := os.Getenv("GADGET_CONFIG"); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

func writeConfig(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Reset overwrites the config with defaults and returns the default snapshot.
func (l *FileLoader) Reset() (domain.Config, error) {
	cfg := DefaultConfig()
	if err := l.Save(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Backup copies the current config file to a timestamped backup.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

// DefaultConfig is written on first run.
func DefaultConfig() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		// The embedded file is fixed at build time; keep the binary usable anyway.
		cfg = domain.Config{ConfigFormatVersion: "1"}
	}
	return cfg
}

// Hydrated fills every unset field of cfg with its default.
func Hydrated(cfg domain.Config) domain.Config {
	return hydrateDefaults(cfg)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	def := DefaultConfig()
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = def.ConfigFormatVersion
	}
	if cfg.Dispatch.Cooldown == 0 {
		cfg.Dispatch.Cooldown = def.Dispatch.Cooldown
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = def.Cache.TTL
	}
	if cfg.Remote.ConnectTimeout == 0 {
		cfg.Remote.ConnectTimeout = def.Remote.ConnectTimeout
	}
	if cfg.Remote.ReadTimeout == 0 {
		cfg.Remote.ReadTimeout = def.Remote.ReadTimeout
	}
	if cfg.Remote.WriteTimeout == 0 {
		cfg.Remote.WriteTimeout = def.Remote.WriteTimeout
	}
	if cfg.Link.Mode == "" {
		cfg.Link.Mode = def.Link.Mode
	}
	if cfg.Link.Framing == "" {
		cfg.Link.Framing = def.Link.Framing
	}
	if cfg.Link.ServiceUUID == "" {
		cfg.Link.ServiceUUID = def.Link.ServiceUUID
	}
	if cfg.Push.URL == "" {
		cfg.Push.URL = def.Push.URL
	}
	if cfg.Push.Topic == "" {
		cfg.Push.Topic = def.Push.Topic
	}
	if cfg.Push.ClientPrefix == "" {
		cfg.Push.ClientPrefix = def.Push.ClientPrefix
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	cfg.Store.Path = filesystem.ExpandHome(cfg.Store.Path)
	if cfg.Connectivity.Timeout == 0 {
		cfg.Connectivity.Timeout = def.Connectivity.Timeout
	}
	if cfg.Connectivity.TTL == 0 {
		cfg.Connectivity.TTL = def.Connectivity.TTL
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
