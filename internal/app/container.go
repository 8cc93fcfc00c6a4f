package app

import (
	"context"
	"errors"
	"fmt"

	configapp "github.com/doeshing/gadget-go/internal/application/config"
	"github.com/doeshing/gadget-go/internal/application/dispatch"
	"github.com/doeshing/gadget-go/internal/application/doctor"
	"github.com/doeshing/gadget-go/internal/application/reconcile"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/infrastructure/cache"
	"github.com/doeshing/gadget-go/internal/infrastructure/config"
	"github.com/doeshing/gadget-go/internal/infrastructure/connectivity"
	"github.com/doeshing/gadget-go/internal/infrastructure/cooldown"
	"github.com/doeshing/gadget-go/internal/infrastructure/link"
	"github.com/doeshing/gadget-go/internal/infrastructure/push"
	"github.com/doeshing/gadget-go/internal/infrastructure/remote"
	"github.com/doeshing/gadget-go/internal/infrastructure/store"
	"github.com/doeshing/gadget-go/internal/pkg/logger"
	"github.com/doeshing/gadget-go/internal/ports"
)

// Options controls how the container is assembled.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.Logger

	Dispatcher    *dispatch.Service
	Reconciler    *reconcile.Reconciler
	DoctorService *doctor.Service

	CommandStore ports.CommandRepository
	CacheStore   ports.CacheRepository
	Probe        *connectivity.Probe
	Remote       *remote.HTTPTransport
	// Link and Push are nil when disabled in config.
	Link *link.Link
	Push *push.NATSChannel

	linkPort  ports.LinkTransport
	pushPort  ports.PushChannel
	configErr error
}

// Ready returns the config validation error, if any. Commands that talk to
// the gadget refuse to run until it is fixed.
func (c *Container) Ready() error {
	return c.configErr
}

// BuildContainer constructs the dependency graph. The link is built but not
// connected; callers that dispatch call ConnectLink first.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// An invalid config still yields a container so that config commands can
	// inspect and repair it; Ready reports the problem to everything else.
	var configErr error
	if err := configapp.Validate(cfg); err != nil {
		configErr = fmt.Errorf("invalid config %s: %w", cfgLoader.Path(), err)
	}

	log := logger.NewStderr(cfg.Log.Level, opts.Verbose)

	commandStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	responseCache := cache.NewLRUCache(cfg.Cache)
	relay := remote.NewHTTPTransport(cfg.Remote)

	c := &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		CommandStore:   commandStore,
		CacheStore:     responseCache,
		Remote:         relay,
		configErr:      configErr,
	}

	var (
		linkPort ports.LinkTransport
		pushPort ports.PushChannel
	)
	if cfg.Link.Enabled && configErr == nil {
		l, err := link.FromSettings(cfg.Link)
		if err != nil {
			_ = commandStore.Close()
			return nil, fmt.Errorf("link: %w", err)
		}
		c.Link = l
		linkPort = l
	}
	if cfg.Push.Enabled && configErr == nil {
		c.Push = push.NewNATSChannel(cfg.Push, log)
		pushPort = c.Push
	}

	c.linkPort, c.pushPort = linkPort, pushPort
	c.Probe = connectivity.NewProbe(cfg.Remote.Endpoint, cfg.Connectivity, linkPort, pushPort)

	c.Dispatcher = &dispatch.Service{
		Store:        commandStore,
		Cache:        responseCache,
		Cooldown:     cooldown.NewGate(cfg.Dispatch.Cooldown),
		Remote:       relay,
		Link:         linkPort,
		Connectivity: c.Probe,
		Logger:       log,
	}

	c.Reconciler = &reconcile.Reconciler{
		Store:  commandStore,
		Cache:  responseCache,
		Logger: log,
	}

	c.DoctorService = &doctor.Service{
		ConfigProvider: cfgLoader,
		Store:          commandStore,
		Connectivity:   c.Probe,
		Link:           linkPort,
	}
	if c.Push != nil {
		c.DoctorService.Push = c.Push
	}

	return c, nil
}

// ConnectLink opens the short-range link when it is enabled. A failure is
// logged and leaves the link disconnected; dispatch then skips it.
func (c *Container) ConnectLink(ctx context.Context) {
	if c.Link == nil || c.Link.IsConnected() {
		return
	}
	if err := c.Link.Connect(ctx); err != nil {
		c.Logger.Warn("short-range link unavailable", map[string]interface{}{"error": err.Error()})
	}
}

// GoOffline stops the dispatcher from using the remote relay. The link is
// still checked on every submission.
func (c *Container) GoOffline() {
	if c.Dispatcher == nil {
		return
	}
	c.Dispatcher.Connectivity = connectivity.NewOfflineProbe(c.Config.Connectivity, c.linkPort, c.pushPort)
}

// Close waits for in-flight dispatches, then releases the link and the store.
func (c *Container) Close() error {
	if c.Dispatcher != nil {
		c.Dispatcher.Wait()
	}
	var errs []error
	if c.Link != nil {
		errs = append(errs, c.Link.Close())
	}
	if c.CommandStore != nil {
		errs = append(errs, c.CommandStore.Close())
	}
	return errors.Join(errs...)
}
