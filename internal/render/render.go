// Package render projects a validated tunnel configuration onto the daemon's
// configuration syntax: one main file plus one override file per client.
package render

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"ovpnconf/internal/cipher"
	"ovpnconf/models"
)

var (
	ErrNoConfig = errors.New("no tunnel configuration")
	ErrDeleted  = errors.New("tunnel is deleted")
)

const header = "### Autogenerated by ovpnconf ###"

// Result holds the rendered texts. Clients is keyed by client name.
type Result struct {
	Main    string
	Clients map[string]string
}

// ClientNames returns the client override names in sorted order.
func (r *Result) ClientNames() []string {
	names := make([]string, 0, len(r.Clients))
	for name := range r.Clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Renderer struct {
	paths models.Paths
}

func New(paths models.Paths) *Renderer {
	return &Renderer{paths: paths}
}

func (r *Renderer) Render(cfg *models.TunnelConfig) (*Result, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if cfg.Deleted {
		return nil, ErrDeleted
	}

	res := &Result{
		Main:    unescape(r.Main(cfg).String()),
		Clients: make(map[string]string, len(cfg.Clients)),
	}
	for _, client := range cfg.Clients {
		res.Clients[client.Name] = unescape(Client(client).String())
	}
	return res, nil
}

// Main builds the main configuration file of cfg.
func (r *Renderer) Main(cfg *models.TunnelConfig) *Builder {
	b := &Builder{}
	intf := cfg.Interface

	b.Raw(header)
	b.Comment("", "See https://community.openvpn.net/openvpn/wiki/Openvpn24ManPage", "for individual keyword definition")
	b.Blank()
	if cfg.Description != "" {
		b.Comment(cfg.Description)
		b.Blank()
	}

	b.Add("verb", "3")
	b.Add("status", r.paths.StatusFile(intf), "30")
	b.Add("writepid", r.paths.PIDFile(intf))
	b.Blank()

	b.Add("dev-type", string(deviceType(cfg)))
	b.Add("dev", intf)
	b.Value("user", r.paths.User)
	b.Value("group", r.paths.Group)
	b.Add("persist-key")
	b.Value("iproute", r.paths.IPRouteHelper)
	b.Blank()

	b.Add("proto", protoToken(cfg.Protocol))
	if cfg.Local.Host.IsValid() {
		b.Add("local", cfg.Local.Host.String())
	}
	b.Uint("lport", cfg.Local.Port)
	b.Uint("rport", cfg.Remote.Port)
	for _, remote := range cfg.Remote.Hosts {
		b.Add("remote", remote)
	}
	b.Value("secret", cfg.SharedSecretFile)
	b.AddIf(cfg.PersistentTunnel, "persist-tun")
	b.Blank()

	switch cfg.Mode {
	case models.ModeClient:
		r.clientMode(b)
	case models.ModeServer:
		r.serverMode(b, cfg)
	case models.ModeSiteToSite:
		r.siteToSiteMode(b, cfg)
	}
	b.Blank()

	r.credentials(b, cfg)
	b.Blank()

	if cfg.RedirectGateway != models.RedirectGatewayNone {
		b.Push("redirect-gateway", string(cfg.RedirectGateway))
	}
	b.AddIf(cfg.CompressLZO, "compress", "lzo")
	b.Value("auth", cfg.Hash)
	encryption(b, cfg.Encryption)

	if cfg.Auth != nil {
		b.Add("auth-user-pass", r.paths.CredentialFile(intf))
		b.Add("auth-retry", "nointeract")
	}
	if len(cfg.Clients) > 0 {
		b.Add("client-config-dir", r.paths.CCDDir(intf))
	}
	b.Blank()

	b.Comment("Legacy X.509 subject formatting for older plug-ins and scripts.")
	b.Add("compat-names")

	if len(cfg.ExtraOptions) > 0 {
		b.Blank()
		for _, opt := range cfg.ExtraOptions {
			b.Raw(opt)
		}
	}
	return b
}

func (r *Renderer) clientMode(b *Builder) {
	b.Comment("", "OpenVPN Client mode", "")
	b.Add("client")
	b.Add("nobind")
}

func (r *Renderer) serverMode(b *Builder, cfg *models.TunnelConfig) {
	b.Comment("", "OpenVPN Server mode", "")
	b.Add("mode", "server")
	b.Add("tls-server")
	interval, restart := keepAlive(cfg.KeepAlive)
	b.Add("keepalive", interval, restart)
	b.Add("management", r.paths.ManagementSocket, "unix")

	switch cfg.Server.Topology {
	case models.TopologyPointToPoint:
		b.Add("topology", "p2p")
	case models.TopologySubnet:
		b.Add("topology", "subnet")
	}

	for _, ns := range cfg.Server.NameServers {
		b.Push("dhcp-option", "DNS", ns.String())
	}
	for _, route := range cfg.Server.PushRoutes {
		b.Push("route", models.RouteArgs(route))
	}
	if cfg.Server.Domain != "" {
		b.Push("dhcp-option", "DOMAIN", cfg.Server.Domain)
	}
	if cfg.Server.MaxConnections != nil {
		b.Add("max-clients", strconv.FormatUint(uint64(*cfg.Server.MaxConnections), 10))
	}

	if cfg.IsBridged() {
		b.Add("server-bridge", "nogw")
	} else if cfg.Server.Subnet.IsValid() {
		b.Add("server", models.RouteArgs(cfg.Server.Subnet))
	}
	b.AddIf(cfg.Server.RejectUnconfiguredClients, "ccd-exclusive")
}

func (r *Renderer) siteToSiteMode(b *Builder, cfg *models.TunnelConfig) {
	b.Comment("", "OpenVPN site-2-site mode", "")
	interval, restart := keepAlive(cfg.KeepAlive)
	b.Add("ping", interval)
	b.Add("ping-restart", restart)

	local := cfg.Local
	if !local.Address.IsValid() {
		return
	}
	switch {
	case local.SubnetMask.IsValid():
		b.Add("ifconfig", local.Address.String(), local.SubnetMask.String())
	case cfg.Remote.Address.IsValid():
		b.Add("ifconfig", local.Address.String(), cfg.Remote.Address.String())
	}
}

func (r *Renderer) credentials(b *Builder, cfg *models.TunnelConfig) {
	tls := cfg.TLS
	if tls == nil {
		return
	}
	b.Value("ca", tls.CACert)
	b.Value("cert", tls.Cert)
	b.Value("key", tls.Key)
	b.Value("tls-crypt", tls.CryptKey)
	b.Value("crl-verify", tls.CRL)
	b.Value("tls-version-min", tls.MinVersion)
	b.Value("dh", tls.DH)
	b.Value("tls-auth", tls.AuthKey)

	switch tls.Role {
	case models.TLSRoleActive:
		b.Add("tls-client")
	case models.TLSRolePassive:
		b.Add("tls-server")
	}
}

func encryption(b *Builder, enc models.Encryption) {
	if suite, ok := cipher.Lookup(enc.Cipher); ok {
		b.Add("cipher", suite.Cipher)
		if suite.KeySize > 0 {
			b.Add("keysize", strconv.Itoa(suite.KeySize))
		}
	}
	if len(enc.NCPCiphers) > 0 {
		b.Value("ncp-ciphers", cipher.NCPList(enc.NCPCiphers))
	}
	b.AddIf(enc.DisableNCP, "ncp-disable")
}

// Client builds the override file of one client.
func Client(c models.ClientOverride) *Builder {
	b := &Builder{}
	b.Raw(header)
	b.Blank()
	if c.IP.IsValid() && c.RemoteNetmask.IsValid() {
		b.Add("ifconfig-push", c.IP.String(), c.RemoteNetmask.String())
	}
	for _, route := range c.PushRoutes {
		b.Push("route", models.RouteArgs(route))
	}
	for _, subnet := range c.Subnets {
		b.Add("iroute", models.RouteArgs(subnet))
	}
	b.AddIf(c.Disabled, "disable")
	return b
}

func protoToken(p models.Protocol) string {
	switch p {
	case models.ProtocolTCPActive:
		return "tcp-client"
	case models.ProtocolTCPPassive:
		return "tcp-server"
	}
	return "udp"
}

func deviceType(cfg *models.TunnelConfig) models.DeviceType {
	if cfg.DeviceType == "" {
		return models.DeviceTun
	}
	return cfg.DeviceType
}

func keepAlive(k models.KeepAlive) (string, string) {
	interval, restart := uint32(models.DefaultPingInterval), uint32(models.DefaultPingRestart)
	if k.Interval > 0 && k.Restart > 0 {
		interval, restart = k.Interval, k.Restart
	}
	return strconv.FormatUint(uint64(interval), 10), strconv.FormatUint(uint64(restart), 10)
}

func unescape(text string) string {
	return strings.ReplaceAll(text, "&quot;", `"`)
}
