package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"ovpnconf/internal/render"
	"ovpnconf/models"
	"ovpnconf/models/config"
)

// Apply validates cfg, materializes its files and (re)starts the daemon.
// Disabled and deleted tunnels are stopped and their files removed.
func (a *App) Apply(ctx context.Context, cfg *models.TunnelConfig) error {
	refined, res, err := a.Render(cfg)
	if err != nil {
		return err
	}

	intf := refined.Interface
	l := a.log.With().Str("interface", intf).Str("mode", string(refined.Mode)).Logger()
	live := !refined.Deleted && !refined.Disabled

	if live {
		err = a.generate(refined, res)
		if err != nil {
			return err
		}
	}

	pidfile := a.paths.PIDFile(intf)
	if a.process != nil {
		err = a.process.Stop(ctx, pidfile)
		if err != nil {
			l.Error().Err(err).Str("path", pidfile).Msg("failed to stop daemon")
		}
	}
	err = a.files.Remove(pidfile)
	if err != nil {
		l.Warn().Err(err).Str("path", pidfile).Msg("failed to remove pid file")
	}

	if !live {
		l.Info().Bool("deleted", refined.Deleted).Msg("tunnel stopped")
		return a.teardown(refined)
	}

	if a.process == nil || a.links == nil {
		return a.applyFirewall(refined)
	}

	err = a.waitLink(ctx, intf, false)
	if err != nil {
		return err
	}

	err = a.process.Start(ctx, pidfile, a.paths.DaemonName(intf), a.paths.ConfigFile(intf))
	if err != nil {
		l.Error().Err(err).Msg("failed to start daemon")
		return nil
	}

	err = a.waitLink(ctx, intf, true)
	if err != nil {
		return err
	}

	if refined.Description != "" {
		err = a.links.SetAlias(intf, refined.Description)
		if err != nil {
			l.Debug().Err(err).Msg("failed to set interface alias")
		}
	}
	if refined.DeviceType == models.DeviceTap {
		err = a.links.SetUp(intf)
		if err != nil {
			l.Warn().Err(err).Msg("failed to bring interface up")
		}
	}

	l.Info().Msg("tunnel applied")
	return a.applyFirewall(refined)
}

// ApplyIntent applies every instance picked by selectors from the intent.
// Failures of one instance do not stop the others.
func (a *App) ApplyIntent(ctx context.Context, cfg *config.Config, selectors []models.Selector) error {
	return a.applyNames(ctx, cfg, SelectInstances(cfg, selectors))
}

func (a *App) applyNames(ctx context.Context, cfg *config.Config, names []string) error {
	var errs []error
	for _, name := range names {
		t, err := BuildTunnel(cfg, name)
		if err == nil {
			err = a.Apply(ctx, t)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) generate(cfg *models.TunnelConfig, res *render.Result) error {
	intf := cfg.Interface
	for _, dir := range []string{
		a.paths.ConfigDir,
		a.paths.StatusDir(),
		a.paths.CCDRoot(),
		a.paths.CCDDir(intf),
	} {
		err := a.files.MkdirAll(dir)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", dir, err)
		}
	}

	secrets := []string{cfg.SharedSecretFile}
	if cfg.TLS != nil {
		secrets = append(secrets, cfg.TLS.Key, cfg.TLS.AuthKey, cfg.TLS.CryptKey)
	}
	for _, path := range secrets {
		err := a.files.Protect(path)
		if err != nil {
			return fmt.Errorf("failed to protect secret: %w", err)
		}
	}

	credfile := a.paths.CredentialFile(intf)
	var err error
	if cfg.Auth != nil {
		err = a.files.WriteSecret(credfile, []byte(cfg.Auth.Username+"\n"+cfg.Auth.Password))
	} else {
		err = a.files.Remove(credfile)
	}
	if err != nil {
		return fmt.Errorf("failed to update credential file: %w", err)
	}

	ccd := a.paths.CCDDir(intf)
	existing, err := a.files.List(ccd)
	if err != nil {
		return fmt.Errorf("failed to list client overrides: %w", err)
	}
	for _, name := range existing {
		if _, ok := res.Clients[name]; ok {
			continue
		}
		err = a.files.Remove(filepath.Join(ccd, name))
		if err != nil {
			return fmt.Errorf("failed to remove stale client override: %w", err)
		}
	}
	for _, name := range res.ClientNames() {
		err = a.files.WriteConfig(filepath.Join(ccd, name), []byte(res.Clients[name]))
		if err != nil {
			return fmt.Errorf("failed to write client override: %w", err)
		}
	}

	err = a.files.WriteConfig(a.paths.ConfigFile(intf), []byte(res.Main))
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	a.log.Debug().Str("interface", intf).Str("path", a.paths.ConfigFile(intf)).Msg("config written")
	return nil
}

func (a *App) teardown(cfg *models.TunnelConfig) error {
	intf := cfg.Interface
	var errs []error

	errs = append(errs, a.files.Remove(a.paths.ConfigFile(intf)))
	errs = append(errs, a.files.Remove(a.paths.CredentialFile(intf)))

	ccd := a.paths.CCDDir(intf)
	names, err := a.files.List(ccd)
	errs = append(errs, err)
	for _, name := range names {
		errs = append(errs, a.files.Remove(filepath.Join(ccd, name)))
	}
	errs = append(errs, a.files.Remove(ccd))

	if a.firewall != nil {
		errs = append(errs, a.firewall.Close(intf))
	}
	return errors.Join(errs...)
}

// waitLink polls until the interface exists (present) or is gone (!present).
// Running out of attempts is logged, not returned.
func (a *App) waitLink(ctx context.Context, intf string, present bool) error {
	l := a.log.With().Str("interface", intf).Logger()
	for attempt := 1; attempt <= a.pollAttempts; attempt++ {
		exists, err := a.links.LinkExists(intf)
		if err != nil {
			l.Warn().Err(err).Msg("failed to look up interface")
		} else if exists == present {
			return nil
		}
		l.Trace().Int("attempt", attempt).Bool("present", present).Msg("waiting for interface")
		err = sleep(ctx, a.pollInterval)
		if err != nil {
			return err
		}
	}
	if present {
		l.Warn().Msg("interface did not appear after daemon start")
	} else {
		l.Warn().Msg("interface still present after daemon stop")
	}
	return nil
}

func (a *App) applyFirewall(cfg *models.TunnelConfig) error {
	if a.firewall == nil {
		return nil
	}
	proto, port, ok := ListenPort(cfg)
	if !ok || !cfg.Firewall.OpenPort {
		return a.firewall.Close(cfg.Interface)
	}
	err := a.firewall.Open(cfg.Interface, proto, port)
	if err != nil {
		return fmt.Errorf("failed to open firewall port: %w", err)
	}
	return nil
}

// ListenPort returns the protocol and port the daemon listens on. Client
// mode and tcp-active tunnels do not listen.
func ListenPort(cfg *models.TunnelConfig) (string, uint16, bool) {
	if cfg.Mode == models.ModeClient || cfg.Protocol == models.ProtocolTCPActive {
		return "", 0, false
	}
	proto := "udp"
	if cfg.Protocol == models.ProtocolTCPPassive {
		proto = "tcp"
	}
	port := DefaultListenPort
	if cfg.Local.Port != nil {
		port = *cfg.Local.Port
	}
	return proto, port, true
}

// Vanished returns the names present in prev but absent from next.
func Vanished(prev, next []string) []string {
	var out []string
	for _, name := range prev {
		if !slices.Contains(next, name) {
			out = append(out, name)
		}
	}
	return out
}
