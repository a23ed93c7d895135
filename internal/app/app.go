package app

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"ovpnconf/internal/render"
	"ovpnconf/internal/system"
	"ovpnconf/internal/validator"
	"ovpnconf/models"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyRunning = errors.New("already running")

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultPollAttempts = 50

	// DefaultListenPort is the daemon port when local-port is unset.
	DefaultListenPort uint16 = 1194
)

type LinkManager interface {
	LinkExists(name string) (bool, error)
	AddrAssigned(addr netip.Addr) (bool, error)
	SetAlias(name, alias string) error
	SetUp(name string) error
}

type ProcessControl interface {
	Stop(ctx context.Context, pidfile string) error
	Start(ctx context.Context, pidfile, name, configFile string) error
}

type Filesystem interface {
	MkdirAll(dir string) error
	WriteConfig(path string, data []byte) error
	WriteSecret(path string, data []byte) error
	Protect(path string) error
	Remove(path string) error
	List(dir string) ([]string, error)
}

// Firewall opens and closes the listen port of one tunnel.
type Firewall interface {
	Open(name, protocol string, port uint16) error
	Close(name string) error
}

type Option func(*App)

func WithLinks(l LinkManager) Option {
	return func(a *App) { a.links = l }
}

func WithProcess(p ProcessControl) Option {
	return func(a *App) { a.process = p }
}

func WithFilesystem(fs Filesystem) Option {
	return func(a *App) { a.files = fs }
}

func WithFirewall(fw Firewall) Option {
	return func(a *App) { a.firewall = fw }
}

func WithValidator(v *validator.Validator) Option {
	return func(a *App) { a.validator = v }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *App) { a.log = l }
}

func WithPolling(interval time.Duration, attempts int) Option {
	return func(a *App) {
		a.pollInterval = interval
		a.pollAttempts = attempts
	}
}

// App ties validation, rendering and the host side effects together.
type App struct {
	paths     models.Paths
	validator *validator.Validator
	renderer  *render.Renderer

	links    LinkManager
	process  ProcessControl
	files    Filesystem
	firewall Firewall

	log          zerolog.Logger
	pollInterval time.Duration
	pollAttempts int
}

func New(paths models.Paths, opts ...Option) *App {
	a := &App{
		paths:        paths,
		renderer:     render.New(paths),
		log:          log.Logger,
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.files == nil {
		a.files = &system.Files{}
	}
	if a.validator == nil {
		vopts := []validator.Option{validator.WithLogger(a.log)}
		if a.links != nil {
			vopts = append(vopts, validator.WithAddrOracle(a.links))
		}
		a.validator = validator.New(vopts...)
	}
	return a
}

func (a *App) Paths() models.Paths {
	return a.paths
}

// Check validates cfg and returns the refined copy.
func (a *App) Check(cfg *models.TunnelConfig) (*models.TunnelConfig, error) {
	return a.validator.Validate(cfg)
}

// Render validates cfg and renders its files. Deleted tunnels render nothing.
func (a *App) Render(cfg *models.TunnelConfig) (*models.TunnelConfig, *render.Result, error) {
	refined, err := a.Check(cfg)
	if err != nil {
		return nil, nil, err
	}
	if refined.Deleted {
		return refined, nil, nil
	}
	res, err := a.renderer.Render(refined)
	if err != nil {
		return nil, nil, err
	}
	return refined, res, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
