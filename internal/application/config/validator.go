package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/doeshing/gadget-go/internal/domain"
)

// Validate ensures config structure is consistent. All problems are joined
// into the returned error.
func Validate(cfg domain.Config) error {
	var errs []error
	if cfg.Dispatch.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("dispatch.cooldown must be >= 0"))
	}
	errs = append(errs, validateCache(cfg.Cache)...)
	errs = append(errs, validateRemote(cfg.Remote)...)
	errs = append(errs, validateLink(cfg.Link)...)
	errs = append(errs, validatePush(cfg.Push)...)
	if strings.TrimSpace(cfg.Store.Path) == "" {
		errs = append(errs, fmt.Errorf("store.path must be set"))
	}
	return errors.Join(errs...)
}

func validateCache(cache domain.CacheSettings) []error {
	var errs []error
	if cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be > 0"))
	}
	if cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be >= 0"))
	}
	return errs
}

func validateRemote(remote domain.RemoteSettings) []error {
	var errs []error
	if remote.Endpoint != "" {
		u, err := url.Parse(remote.Endpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("remote.endpoint invalid: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("remote.endpoint must be http or https, got %q", u.Scheme))
		}
	}
	for name, d := range map[string]int64{
		"connect_timeout": int64(remote.ConnectTimeout),
		"read_timeout":    int64(remote.ReadTimeout),
		"write_timeout":   int64(remote.WriteTimeout),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("remote.%s must be > 0", name))
		}
	}
	return errs
}

func validateLink(link domain.LinkSettings) []error {
	if !link.Enabled {
		return nil
	}
	var errs []error
	switch link.Mode {
	case domain.LinkModeRFCOMM:
		if link.Address == "" {
			errs = append(errs, fmt.Errorf("link.address is required for rfcomm mode"))
		}
		if link.Channel == 0 || link.Channel > 30 {
			errs = append(errs, fmt.Errorf("link.channel must be between 1 and 30"))
		}
	case domain.LinkModeDevice:
		if link.Device == "" {
			errs = append(errs, fmt.Errorf("link.device is required for device mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("link.mode must be rfcomm|device, got %q", link.Mode))
	}
	switch link.Framing {
	case "", domain.FramingNone, domain.FramingNewline, domain.FramingLength:
	default:
		errs = append(errs, fmt.Errorf("link.framing must be none|newline|length, got %q", link.Framing))
	}
	if link.ServiceUUID != "" {
		if _, err := uuid.Parse(link.ServiceUUID); err != nil {
			errs = append(errs, fmt.Errorf("link.service_uuid invalid: %w", err))
		}
	}
	return errs
}

func validatePush(push domain.PushSettings) []error {
	if !push.Enabled {
		return nil
	}
	var errs []error
	if push.URL == "" {
		errs = append(errs, fmt.Errorf("push.url is required when push is enabled"))
	}
	if push.Topic == "" {
		errs = append(errs, fmt.Errorf("push.topic is required when push is enabled"))
	}
	if push.Durable != "" && strings.ContainsAny(push.Durable, ". *>") {
		errs = append(errs, fmt.Errorf("push.durable must not contain '.', '*', '>' or spaces"))
	}
	return errs
}
