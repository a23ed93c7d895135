package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ovpnconf/internal/api"
	v1 "ovpnconf/internal/api/v1"
	"ovpnconf/internal/app"
	"ovpnconf/internal/logbuffer"
	netfilterHelper "ovpnconf/netfilter-helper"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const logBufferSize = 500

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the selected instances without touching the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadIntent(cmd, opts)
			if err != nil {
				return err
			}
			a := opts.dryRunApp()

			var errs []error
			for _, name := range app.SelectInstances(cfg, opts.parsedSelectors()) {
				t, err := app.BuildTunnel(cfg, name)
				if err == nil {
					_, err = a.Check(t)
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
			}
			return errors.Join(errs...)
		},
	}
}

func renderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Print the files the selected instances would be written to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadIntent(cmd, opts)
			if err != nil {
				return err
			}
			a := opts.dryRunApp()
			paths := a.Paths()
			out := cmd.OutOrStdout()

			for _, name := range app.SelectInstances(cfg, opts.parsedSelectors()) {
				t, err := app.BuildTunnel(cfg, name)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				_, res, err := a.Render(t)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				if res == nil {
					fmt.Fprintf(out, "# %s is deleted\n", name)
					continue
				}
				writeRendered(out, paths.ConfigFile(name), res.Main)
				for _, client := range res.ClientNames() {
					writeRendered(out, filepath.Join(paths.CCDDir(name), client), res.Clients[client])
				}
			}
			return nil
		},
	}
}

func writeRendered(w io.Writer, path, text string) {
	fmt.Fprintf(w, "==> %s <==\n%s\n", path, text)
}

func applyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Write configuration and (re)start the selected instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadIntent(cmd, opts)
			if err != nil {
				return err
			}
			a, err := opts.liveApp()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			return a.ApplyIntent(ctx, cfg, opts.parsedSelectors())
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Apply the intent and re-apply it whenever the file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			foldSettings(cmd, opts)
			a, err := opts.liveApp()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			return app.NewWatcher(a, opts.intentPath, opts.parsedSelectors()).Run(ctx)
		},
	}
}

func serveCmd(opts *options) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dry-run API on a unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			foldSettings(cmd, opts)
			logs := logbuffer.NewRingBuffer(logBufferSize)
			app.SetupLogging(opts.logLevel, logs)

			sock := opts.socketPath()
			if err := os.MkdirAll(filepath.Dir(sock), 0755); err != nil {
				return fmt.Errorf("failed to create socket directory: %w", err)
			}

			var watcher *app.Watcher
			if watch {
				a, err := opts.liveApp()
				if err != nil {
					return err
				}
				watcher = app.NewWatcher(a, opts.intentPath, opts.parsedSelectors())
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			handler := v1.NewHandler(opts.dryRunApp(), logs)
			g.Go(func() error {
				return api.Serve(ctx, sock, v1.NewRouter(handler))
			})
			if watcher != nil {
				g.Go(func() error {
					return watcher.Run(ctx)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Also apply the intent and watch it for changes")
	return cmd
}

func cleanupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove every firewall chain created for tunnels",
		RunE: func(cmd *cobra.Command, args []string) error {
			foldSettings(cmd, opts)
			nh, err := netfilterHelper.New(opts.chainPrefix, opts.disableIPv4, opts.disableIPv6)
			if err != nil {
				return err
			}
			removed, err := nh.CleanIPTables()
			for _, chain := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", chain)
			}
			return err
		},
	}
}

// foldSettings applies the intent settings when the file is readable. Long
// running commands start even while the intent is missing.
func foldSettings(cmd *cobra.Command, opts *options) {
	cfg, err := app.ReadIntent(opts.intentPath)
	if err != nil {
		log.Warn().Err(err).Str("path", opts.intentPath).Msg("intent settings not loaded")
		return
	}
	applySettings(cmd, opts, cfg.Settings)
}

