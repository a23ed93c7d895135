// Package validator checks a tunnel configuration against the ordered rule
// set of its operating mode. The first violated rule wins.
package validator

import (
	"net/netip"
	"strings"

	"ovpnconf/internal/credential"
	"ovpnconf/models"

	"github.com/rs/zerolog"
)

// AddrOracle reports whether an address is assigned to a local interface.
type AddrOracle interface {
	AddrAssigned(addr netip.Addr) (bool, error)
}

type Option func(*Validator)

func WithInspector(i credential.Inspector) Option {
	return func(v *Validator) { v.inspector = i }
}

func WithAddrOracle(o AddrOracle) Option {
	return func(v *Validator) { v.oracle = o }
}

// WithLogger sets the logger advisory conditions are written to.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) { v.log = l }
}

type Validator struct {
	inspector credential.Inspector
	oracle    AddrOracle
	log       zerolog.Logger
}

func New(opts ...Option) *Validator {
	v := &Validator{
		inspector: credential.NewFileInspector(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Group is one step of the evaluation order.
type Group struct {
	Name  string
	Check func(v *Validator, c *models.TunnelConfig) error
}

// Groups lists the rule groups applied to a live (not deleted) tunnel, in
// evaluation order.
var Groups = []Group{
	{"mode", checkMode},
	{"ncp", checkNCP},
	{"mode-block", checkModeBlock},
	{"addressing", checkAddressing},
	{"non-server", checkNonServer},
	{"local-host", checkLocalHost},
	{"tcp-active", checkTCPActive},
	{"secret-tls", checkSecretOrTLS},
	{"shared-secret", checkSharedSecret},
	{"tls", checkTLS},
	{"auth", checkAuth},
	{"client-subnet", checkClientSubnet},
}

// Validate returns a refined copy of cfg or a *Failure naming the first
// violated rule. cfg itself is never modified.
func (v *Validator) Validate(cfg *models.TunnelConfig) (*models.TunnelConfig, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	c := cfg.Clone()

	if c.Deleted {
		if c.IsBridged() {
			return nil, fail(RuleDeletedBridgeMember, "Can not delete %s as it is a member interface of bridge %s!",
				c.Interface, strings.Join(c.BridgeMembers, ", "))
		}
		return c, nil
	}

	v.fillDH(c)

	for _, g := range Groups {
		if err := g.Check(v, c); err != nil {
			return nil, err
		}
	}

	deriveNetmasks(c)
	return c, nil
}

// fillDH selects ECDH when an EC key is configured without parameters.
func (v *Validator) fillDH(c *models.TunnelConfig) {
	if c.TLS == nil || c.TLS.DH != "" {
		return
	}
	if v.isECKey(c) {
		c.TLS.DH = models.DHNone
	}
}

func (v *Validator) isECKey(c *models.TunnelConfig) bool {
	return c.TLS != nil && v.inspector.Contains(c.TLS.Key, credential.HeaderECPrivateKey)
}

func checkMode(_ *Validator, c *models.TunnelConfig) error {
	if !c.Mode.Valid() {
		return fail(RuleModeMissing, "Must specify OpenVPN operation mode")
	}
	return nil
}

func checkNCP(_ *Validator, c *models.TunnelConfig) error {
	if c.Encryption.DisableNCP && len(c.Encryption.NCPCiphers) > 0 {
		return fail(RuleNCPConflict, `Cannot specify both "encryption disable-ncp" and "encryption ncp-ciphers"`)
	}
	return nil
}

func checkModeBlock(v *Validator, c *models.TunnelConfig) error {
	switch c.Mode {
	case models.ModeClient:
		return checkClientMode(c)
	case models.ModeSiteToSite:
		return checkSiteToSiteMode(c)
	case models.ModeServer:
		return v.checkServerMode(c)
	}
	return nil
}

func checkClientMode(c *models.TunnelConfig) error {
	if c.Local.Port != nil {
		return fail(RuleClientLocalPort, `Cannot specify "local-port" in client mode`)
	}
	if c.Local.Host.IsValid() {
		return fail(RuleClientLocalHost, `Cannot specify "local-host" in client mode`)
	}
	if c.Protocol == models.ProtocolTCPPassive {
		return fail(RuleClientTCPPassive, `Protocol "tcp-passive" is not valid in client mode`)
	}
	if len(c.Remote.Hosts) == 0 {
		return fail(RuleClientRemoteHost, `Must specify "remote-host" in client mode`)
	}
	if c.TLS.HasDHFile() {
		return fail(RuleClientDHFile, `Cannot specify "tls dh-file" in client mode`)
	}
	return nil
}

func checkSiteToSiteMode(c *models.TunnelConfig) error {
	if !c.Local.Address.IsValid() && !c.IsBridged() {
		return fail(RuleSiteLocalAddress, `Must specify "local-address" or "bridge member interface"`)
	}
	if c.IsBridged() && (c.Local.Address.IsValid() || c.Remote.Address.IsValid()) {
		return fail(RuleSiteBridgeAddress, `Cannot specify "local-address" or "remote-address" in bridge mode`)
	}
	if c.Remote.Address.IsValid() {
		for _, host := range c.Remote.Hosts {
			if sameHost(host, c.Remote.Address) {
				return fail(RuleSiteRemoteHost, `"remote-address" cannot be the same as "remote-host"`)
			}
		}
	}
	if c.DeviceType == models.DeviceTun {
		if !c.Remote.Address.IsValid() {
			return fail(RuleSiteRemoteAddress, `Must specify "remote-address"`)
		}
		if c.Local.Address.IsValid() && c.Local.Address == c.Remote.Address {
			return fail(RuleSiteSameAddress, `"local-address" and "remote-address" cannot be the same`)
		}
		if c.Local.Address.IsValid() && c.Local.Address == c.Local.Host {
			return fail(RuleSiteLocalHost, `"local-address" cannot be the same as "local-host"`)
		}
	}
	if len(c.Encryption.NCPCiphers) > 0 {
		return fail(RuleSiteNCPCiphers, "encryption ncp-ciphers cannot be specified in site-to-site mode, only server or client")
	}
	return nil
}

func sameHost(host string, addr netip.Addr) bool {
	if parsed, err := netip.ParseAddr(host); err == nil {
		return parsed == addr
	}
	return host == addr.String()
}

func (v *Validator) checkServerMode(c *models.TunnelConfig) error {
	if c.Protocol == models.ProtocolTCPActive {
		return fail(RuleServerTCPActive, `Protocol "tcp-active" is not valid in server mode`)
	}
	if c.Remote.Port != nil {
		return fail(RuleServerRemotePort, `Cannot specify "remote-port" in server mode`)
	}
	if len(c.Remote.Hosts) > 0 {
		return fail(RuleServerRemoteHost, `Cannot specify "remote-host" in server mode`)
	}
	if c.Protocol == models.ProtocolTCPPassive && len(c.Remote.Hosts) > 1 {
		return fail(RuleServerPassiveHosts, `Cannot specify more than 1 "remote-host" with "tcp-passive"`)
	}
	if (c.TLS == nil || c.TLS.DH == "") && !v.isECKey(c) {
		return fail(RuleServerDHFile, `Must specify "tls dh-file" when not using EC keys in server mode`)
	}
	if !c.Server.Subnet.IsValid() && !c.IsBridged() {
		return fail(RuleServerSubnet, `Must specify "server subnet" option in server mode`)
	}
	return nil
}

func checkAddressing(_ *Validator, c *models.TunnelConfig) error {
	if c.Mode == models.ModeSiteToSite {
		return nil
	}
	if !c.Local.Address.IsValid() && !c.Remote.Address.IsValid() {
		return nil
	}
	if c.IsBridged() {
		return fail(RuleBridgeAddress, `Cannot specify "local-address" or "remote-address" in bridge mode`)
	}
	return fail(RuleClientServerAddress, `Cannot specify "local-address" or "remote-address" in client-server mode`)
}

func checkNonServer(_ *Validator, c *models.TunnelConfig) error {
	if c.Mode == models.ModeServer {
		return nil
	}
	if c.Server.RejectUnconfiguredClients {
		return fail(RuleRejectUnconfigured, "reject-unconfigured-clients is only supported in OpenVPN server mode")
	}
	if c.Server.Topology != models.TopologyUnset {
		return fail(RuleTopologyServerOnly, `The "topology" option is only valid in server mode`)
	}
	if len(c.Clients) > 0 {
		return fail(RuleClientsServerOnly, `The "server client" option is only valid in server mode`)
	}
	if len(c.Remote.Hosts) == 0 && c.RedirectGateway != models.RedirectGatewayNone {
		return fail(RuleRedirectRemoteHost, `Cannot set "replace-default-route" without "remote-host"`)
	}
	return nil
}

func checkLocalHost(v *Validator, c *models.TunnelConfig) error {
	if !c.Local.Host.IsValid() {
		return nil
	}
	assigned := false
	if v.oracle != nil {
		ok, err := v.oracle.AddrAssigned(c.Local.Host)
		if err != nil {
			v.log.Warn().Err(err).Str("address", c.Local.Host.String()).Msg("failed to query local addresses")
		}
		assigned = ok && err == nil
	}
	if !assigned {
		return fail(RuleLocalHostAssigned, "No interface on system with specified local-host IP address: %s", c.Local.Host)
	}
	return nil
}

func checkTCPActive(_ *Validator, c *models.TunnelConfig) error {
	if c.Protocol != models.ProtocolTCPActive {
		return nil
	}
	if c.Local.Port != nil {
		return fail(RuleTCPActiveLocalPort, `Cannot specify "local-port" with "tcp-active"`)
	}
	if len(c.Remote.Hosts) == 0 {
		return fail(RuleTCPActiveRemoteHost, `Must specify "remote-host" with "tcp-active"`)
	}
	return nil
}

func checkSecretOrTLS(_ *Validator, c *models.TunnelConfig) error {
	hasSecret := c.SharedSecretFile != ""
	if !hasSecret && !c.HasTLS() {
		return fail(RuleAuthMissing, `Must specify one of "shared-secret-key-file" and "tls"`)
	}
	if hasSecret && c.HasTLS() {
		return fail(RuleAuthExclusive, `Can only specify one of "shared-secret-key-file" and "tls"`)
	}
	if (c.Mode == models.ModeClient || c.Mode == models.ModeServer) && !c.HasTLS() {
		return fail(RuleClientServerTLS, `Must specify "tls" in client-server mode`)
	}
	return nil
}
