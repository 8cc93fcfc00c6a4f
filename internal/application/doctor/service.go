package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// PendingCounter reports commands still in flight.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// Pinger checks that a broker answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Store          PendingCounter
	Connectivity   ports.ConnectivityProbe
	Link           ports.LinkTransport
	Push           Pinger
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded %s", cfg.ConfigFormatVersion)))

	if s.Store != nil {
		if n, err := s.Store.CountPending(ctx); err != nil {
			checks = append(checks, fail("Command store", err.Error()))
		} else if n > 0 {
			checks = append(checks, warn("Command store", fmt.Sprintf("%s open, %d command(s) still pending", cfg.Store.Path, n)))
		} else {
			checks = append(checks, ok("Command store", fmt.Sprintf("%s open", cfg.Store.Path)))
		}
	} else {
		checks = append(checks, fail("Command store", "store not initialized"))
	}

	var state domain.ConnectivityState
	if s.Connectivity != nil {
		state = s.Connectivity.State(ctx)
	}
	checks = append(checks, remoteCheck(cfg.Remote, state))
	checks = append(checks, linkCheck(cfg.Link, s.Link))
	checks = append(checks, s.pushCheck(ctx, cfg.Push))

	if !state.InternetReachable && (s.Link == nil || !s.Link.IsConnected()) {
		checks = append(checks, fail("Transports", "no transport available; commands will be rejected"))
	}

	return domain.HealthReport{Checks: checks}, nil
}

func remoteCheck(settings domain.RemoteSettings, state domain.ConnectivityState) domain.HealthCheck {
	switch {
	case settings.Endpoint == "":
		return warn("Remote relay", "remote.endpoint not set")
	case !state.InternetReachable:
		return warn("Remote relay", fmt.Sprintf("%s unreachable", settings.Endpoint))
	case settings.TokenEnv != "" && os.Getenv(settings.TokenEnv) == "":
		return warn("Remote relay", fmt.Sprintf("reachable, but %s is empty", settings.TokenEnv))
	default:
		return ok("Remote relay", fmt.Sprintf("%s reachable", settings.Endpoint))
	}
}

func linkCheck(settings domain.LinkSettings, link ports.LinkTransport) domain.HealthCheck {
	switch {
	case !settings.Enabled:
		return warn("Short-range link", "disabled")
	case link == nil || !link.IsConnected():
		return warn("Short-range link", fmt.Sprintf("%s not connected", linkTarget(settings)))
	default:
		return ok("Short-range link", fmt.Sprintf("connected to %s", linkTarget(settings)))
	}
}

func linkTarget(settings domain.LinkSettings) string {
	if settings.Mode == domain.LinkModeDevice {
		return settings.Device
	}
	return fmt.Sprintf("%s channel %d", settings.Address, settings.Channel)
}

func (s *Service) pushCheck(ctx context.Context, settings domain.PushSettings) domain.HealthCheck {
	if !settings.Enabled {
		return warn("Push channel", "disabled")
	}
	if s.Push == nil {
		return warn("Push channel", "not initialized")
	}
	if err := s.Push.Ping(ctx); err != nil {
		return warn("Push channel", fmt.Sprintf("%s: %v", settings.URL, err))
	}
	return ok("Push channel", fmt.Sprintf("%s answering on %s", settings.URL, settings.Topic))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
