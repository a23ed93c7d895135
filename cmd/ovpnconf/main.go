package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ovpnconf/constant"
	"ovpnconf/internal/app"
	"ovpnconf/internal/system"
	"ovpnconf/models"
	"ovpnconf/models/config"
	netfilterHelper "ovpnconf/netfilter-helper"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	defaultIntentPath  = "/etc/ovpnconf/intent.yaml"
	defaultChainPrefix = "OVPN_"
)

// options are the persistent flags shared by every command.
type options struct {
	intentPath  string
	selectors   []string
	logLevel    string
	root        string
	chainPrefix string
	socket      string
	disableIPv4 bool
	disableIPv6 bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "ovpnconf",
		Short:         "Validate, render and apply OpenVPN tunnel configuration",
		Version:       constant.Version + " (" + constant.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.SetupLogging(opts.logLevel)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.intentPath, "config", "c", defaultIntentPath, "Path to the intent file (YAML)")
	f.StringSliceVarP(&opts.selectors, "interface", "i", nil, `Instances to act on: wildcard, "re:<regexp>" or "=<name>"`)
	f.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic, nolevel, disabled)")
	f.StringVar(&opts.root, "root", "", "Prefix for every written path")
	f.StringVar(&opts.chainPrefix, "chain-prefix", defaultChainPrefix, "Prefix of the iptables chains opened for tunnels")
	f.StringVar(&opts.socket, "socket", "", "API socket path (default <run dir>/"+constant.SocketName+")")
	f.BoolVar(&opts.disableIPv4, "disable-ipv4", false, "Do not manage iptables")
	f.BoolVar(&opts.disableIPv6, "disable-ipv6", false, "Do not manage ip6tables")

	rootCmd.AddCommand(
		validateCmd(opts),
		renderCmd(opts),
		applyCmd(opts),
		watchCmd(opts),
		serveCmd(opts),
		cleanupCmd(opts),
		remoteCmd(opts),
	)
	return rootCmd
}

// loadIntent reads the intent and folds its settings into opts. Flags given
// on the command line win.
func loadIntent(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := app.ReadIntent(opts.intentPath)
	if err != nil {
		return nil, err
	}
	applySettings(cmd, opts, cfg.Settings)
	return cfg, nil
}

func applySettings(cmd *cobra.Command, opts *options, s *config.Settings) {
	if s == nil {
		return
	}
	flags := cmd.Flags()
	if s.LogLevel != nil && !flags.Changed("log-level") {
		opts.logLevel = *s.LogLevel
		app.SetLogLevel(opts.logLevel)
	}
	if s.ChainPrefix != nil && !flags.Changed("chain-prefix") {
		opts.chainPrefix = *s.ChainPrefix
	}
	if s.DisableIPv4 != nil && !flags.Changed("disable-ipv4") {
		opts.disableIPv4 = *s.DisableIPv4
	}
	if s.DisableIPv6 != nil && !flags.Changed("disable-ipv6") {
		opts.disableIPv6 = *s.DisableIPv6
	}
}

func (o *options) paths() models.Paths {
	return models.DefaultPaths().WithRoot(o.root)
}

func (o *options) socketPath() string {
	if o.socket != "" {
		return o.socket
	}
	return filepath.Join(o.paths().RunDir, constant.SocketName)
}

func (o *options) parsedSelectors() []models.Selector {
	out := make([]models.Selector, 0, len(o.selectors))
	for _, s := range o.selectors {
		out = append(out, models.ParseSelector(s))
	}
	return out
}

// dryRunApp validates and renders only. The netlink oracle is kept so
// local-host checks see the real host.
func (o *options) dryRunApp() *app.App {
	return app.New(o.paths(), app.WithLinks(system.NewNetlink()), app.WithLogger(log.Logger))
}

// liveApp wires every host collaborator. A firewall that cannot be set up is
// logged and left out.
func (o *options) liveApp() (*app.App, error) {
	paths := o.paths()
	files, err := system.NewFiles(paths.User, paths.Group, paths.ConfigGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file owners: %w", err)
	}

	appOpts := []app.Option{
		app.WithLinks(system.NewNetlink()),
		app.WithProcess(system.NewStartStopDaemon(paths.StartStopDaemon, paths.DaemonBinary)),
		app.WithFilesystem(files),
		app.WithLogger(log.Logger),
	}

	nh, err := o.netfilter()
	if err != nil {
		log.Warn().Err(err).Msg("firewall management disabled")
	} else if nh != nil {
		appOpts = append(appOpts, app.WithFirewall(nh))
	}
	return app.New(paths, appOpts...), nil
}

func (o *options) netfilter() (*netfilterHelper.NetfilterHelper, error) {
	if o.disableIPv4 && o.disableIPv6 {
		return nil, nil
	}
	return netfilterHelper.New(o.chainPrefix, o.disableIPv4, o.disableIPv6)
}
