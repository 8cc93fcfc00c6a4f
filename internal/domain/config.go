package domain

import "time"

// Config mirrors ~/.gadget/config.yaml. Fields tagged with env can be
// overridden from the environment.
type Config struct {
	ConfigFormatVersion string               `yaml:"config_format_version"`
	Dispatch            DispatchSettings     `yaml:"dispatch"`
	Cache               CacheSettings        `yaml:"cache"`
	Remote              RemoteSettings       `yaml:"remote"`
	Link                LinkSettings         `yaml:"link"`
	Push                PushSettings         `yaml:"push"`
	Store               StoreSettings        `yaml:"store"`
	Connectivity        ConnectivitySettings `yaml:"connectivity"`
	Log                 LogSettings          `yaml:"log"`
}

// DispatchSettings controls submission pacing.
type DispatchSettings struct {
	Cooldown time.Duration `yaml:"cooldown" env:"GADGET_COOLDOWN"`
}

// CacheSettings bounds the response cache.
type CacheSettings struct {
	MaxEntries int           `yaml:"max_entries" env:"GADGET_CACHE_MAX_ENTRIES"`
	TTL        time.Duration `yaml:"ttl" env:"GADGET_CACHE_TTL"`
}

// RemoteSettings configures the HTTP relay.
type RemoteSettings struct {
	Endpoint       string        `yaml:"endpoint" env:"GADGET_REMOTE_ENDPOINT"`
	TokenEnv       string        `yaml:"token_env"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"GADGET_REMOTE_CONNECT_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"GADGET_REMOTE_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"GADGET_REMOTE_WRITE_TIMEOUT"`
}

// LinkSettings configures the short-range link.
type LinkSettings struct {
	Enabled     bool   `yaml:"enabled" env:"GADGET_LINK_ENABLED"`
	Mode        string `yaml:"mode" env:"GADGET_LINK_MODE"`
	Address     string `yaml:"address" env:"GADGET_LINK_ADDRESS"`
	Channel     uint8  `yaml:"channel" env:"GADGET_LINK_CHANNEL"`
	Device      string `yaml:"device" env:"GADGET_LINK_DEVICE"`
	ServiceUUID string `yaml:"service_uuid"`
	Framing     string `yaml:"framing" env:"GADGET_LINK_FRAMING"`
}

// PushSettings configures the broker connection for gadget-initiated messages.
type PushSettings struct {
	Enabled      bool   `yaml:"enabled" env:"GADGET_PUSH_ENABLED"`
	URL          string `yaml:"url" env:"GADGET_PUSH_URL"`
	Topic        string `yaml:"topic" env:"GADGET_PUSH_TOPIC"`
	Durable      string `yaml:"durable" env:"GADGET_PUSH_DURABLE"`
	ClientPrefix string `yaml:"client_prefix"`
}

// StoreSettings locates the command database.
type StoreSettings struct {
	Path string `yaml:"path" env:"GADGET_STORE_PATH"`
}

// ConnectivitySettings tunes the reachability probe.
type ConnectivitySettings struct {
	Timeout time.Duration `yaml:"timeout"`
	TTL     time.Duration `yaml:"ttl"`
}

// LogSettings selects the log level.
type LogSettings struct {
	Level string `yaml:"level" env:"GADGET_LOG_LEVEL"`
}
