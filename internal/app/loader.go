package app

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"sort"
	"strings"

	"ovpnconf/internal/cipher"
	"ovpnconf/models"
	"ovpnconf/models/config"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

var ErrInvalidValue = errors.New("invalid value")

func ReadIntent(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent file: %w", err)
	}
	return ParseIntent(data)
}

func ParseIntent(data []byte) (*config.Config, error) {
	cfg := &config.Config{}
	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return cfg, nil
}

// InstanceNames lists the configured tunnel instances in sorted order.
func InstanceNames(cfg *config.Config) []string {
	if cfg == nil || cfg.Interfaces == nil {
		return nil
	}
	names := make([]string, 0, len(cfg.Interfaces.OpenVPN))
	for name := range cfg.Interfaces.OpenVPN {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectInstances resolves selectors against the intent. Exact selectors
// naming an absent instance are kept so that instance gets torn down.
func SelectInstances(cfg *config.Config, selectors []models.Selector) []string {
	names := InstanceNames(cfg)
	if len(selectors) == 0 {
		return names
	}
	var out []string
	for _, name := range names {
		for _, s := range selectors {
			if s.IsMatch(name) {
				out = append(out, name)
				break
			}
		}
	}
	for _, s := range selectors {
		if s.IsExact() && !slices.Contains(out, s.Pattern) {
			out = append(out, s.Pattern)
		}
	}
	sort.Strings(out)
	return out
}

func invalid(node, value string, err error) error {
	if err != nil {
		return fmt.Errorf("%w for %s %q: %v", ErrInvalidValue, node, value, err)
	}
	return fmt.Errorf("%w for %s %q", ErrInvalidValue, node, value)
}

// BuildTunnel projects the intent of one instance onto a TunnelConfig. An
// instance missing from the intent is returned as deleted.
func BuildTunnel(cfg *config.Config, intf string) (*models.TunnelConfig, error) {
	t := &models.TunnelConfig{
		Interface:  intf,
		DeviceType: models.DeviceTun,
	}

	if cfg != nil && cfg.Interfaces != nil {
		t.BridgeMembers = bridgesOf(cfg.Interfaces.Bridge, intf)
	}

	var node config.OpenVPN
	var ok bool
	if cfg != nil && cfg.Interfaces != nil {
		node, ok = cfg.Interfaces.OpenVPN[intf]
	}
	if !ok {
		t.Deleted = true
		return t, nil
	}

	if node.Description != nil {
		t.Description = *node.Description
	}
	if node.Mode != nil {
		t.Mode = models.Mode(*node.Mode)
		if !t.Mode.Valid() {
			return nil, invalid("mode", *node.Mode, nil)
		}
	}
	if node.Protocol != nil {
		t.Protocol = models.Protocol(*node.Protocol)
		switch t.Protocol {
		case models.ProtocolUDP, models.ProtocolTCPActive, models.ProtocolTCPPassive:
		default:
			return nil, invalid("protocol", *node.Protocol, nil)
		}
	}
	if node.DeviceType != nil {
		t.DeviceType = models.DeviceType(*node.DeviceType)
		if t.DeviceType != models.DeviceTun && t.DeviceType != models.DeviceTap {
			return nil, invalid("device-type", *node.DeviceType, nil)
		}
	}
	t.Disabled = isSet(node.Disable)

	err := loadEndpoints(t, node)
	if err != nil {
		return nil, err
	}

	if a := node.Authentication; a != nil && (a.Username != nil || a.Password != nil) {
		t.Auth = &models.Auth{}
		if a.Username != nil {
			t.Auth.Username = *a.Username
		}
		if a.Password != nil {
			t.Auth.Password = *a.Password
		}
	}

	err = loadEncryption(t, node.Encryption)
	if err != nil {
		return nil, err
	}
	if node.Hash != nil {
		t.Hash = *node.Hash
	}

	if k := node.KeepAlive; k != nil {
		if k.Interval != nil && *k.Interval == 0 {
			return nil, invalid("keep-alive interval", "0", errors.New("must be positive"))
		}
		if k.FailureCount != nil && *k.FailureCount == 0 {
			return nil, invalid("keep-alive failure-count", "0", errors.New("must be positive"))
		}
	}
	if k := node.KeepAlive; k != nil && k.Interval != nil && k.FailureCount != nil {
		t.KeepAlive = models.KeepAlive{
			Interval: *k.Interval,
			Restart:  *k.Interval * *k.FailureCount,
		}
	}

	t.ExtraOptions = slices.Clone(node.OpenVPNOption)
	t.PersistentTunnel = isSet(node.PersistentTunnel)
	if r := node.ReplaceDefaultRoute; r != nil {
		t.RedirectGateway = models.RedirectGatewayDef1
		if isSet(r.Local) {
			t.RedirectGateway = models.RedirectGatewayLocal
		}
	}

	if node.Server != nil {
		err = loadServer(t, node.Server)
		if err != nil {
			return nil, err
		}
	}

	err = loadTLS(t, node.TLS)
	if err != nil {
		return nil, err
	}
	if node.SharedSecretKeyFile != nil {
		t.SharedSecretFile = *node.SharedSecretKeyFile
	}
	t.CompressLZO = isSet(node.UseLZOCompression)
	if node.Firewall != nil {
		t.Firewall.OpenPort = isSet(node.Firewall.OpenPort)
	}

	return t, nil
}

func bridgesOf(bridges map[string]config.Bridge, intf string) []string {
	var out []string
	for name, br := range bridges {
		if br.Member != nil && slices.Contains(br.Member.Interface, intf) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func loadEndpoints(t *models.TunnelConfig, node config.OpenVPN) error {
	var err error
	if node.LocalHost != nil {
		t.Local.Host, err = netip.ParseAddr(*node.LocalHost)
		if err != nil {
			return invalid("local-host", *node.LocalHost, err)
		}
	}
	t.Local.Port = node.LocalPort

	if len(node.LocalAddress) > 0 {
		addrs := make([]string, 0, len(node.LocalAddress))
		for addr := range node.LocalAddress {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		first := addrs[0]
		t.Local.Address, err = netip.ParseAddr(first)
		if err != nil {
			return invalid("local-address", first, err)
		}
		if mask := node.LocalAddress[first].SubnetMask; mask != nil {
			t.Local.SubnetMask, err = netip.ParseAddr(*mask)
			if err != nil {
				return invalid("subnet-mask", *mask, err)
			}
		}
	}

	t.Remote.Hosts = slices.Clone(node.RemoteHost)
	t.Remote.Port = node.RemotePort
	if node.RemoteAddress != nil {
		t.Remote.Address, err = netip.ParseAddr(*node.RemoteAddress)
		if err != nil {
			return invalid("remote-address", *node.RemoteAddress, err)
		}
	}
	return nil
}

func loadEncryption(t *models.TunnelConfig, enc *config.Encryption) error {
	if enc == nil {
		return nil
	}
	if enc.Cipher != nil {
		if _, ok := cipher.Lookup(*enc.Cipher); !ok {
			return invalid("encryption cipher", *enc.Cipher, nil)
		}
		t.Encryption.Cipher = *enc.Cipher
	}
	for _, name := range enc.NCPCiphers {
		if _, ok := cipher.Lookup(name); !ok {
			return invalid("encryption ncp-ciphers", name, nil)
		}
	}
	t.Encryption.NCPCiphers = slices.Clone(enc.NCPCiphers)
	t.Encryption.DisableNCP = isSet(enc.DisableNCP)
	return nil
}

func loadServer(t *models.TunnelConfig, s *config.Server) error {
	var err error
	if s.Subnet != nil {
		t.Server.Subnet, err = netip.ParsePrefix(*s.Subnet)
		if err != nil {
			return invalid("server subnet", *s.Subnet, err)
		}
		if !t.Server.Subnet.Addr().Is4() {
			return invalid("server subnet", *s.Subnet, errors.New("must be an IPv4 network"))
		}
	}
	if s.Topology != nil {
		t.Server.Topology = models.Topology(*s.Topology)
		if t.Server.Topology != models.TopologySubnet && t.Server.Topology != models.TopologyPointToPoint {
			return invalid("server topology", *s.Topology, nil)
		}
	}
	if s.DomainName != nil {
		if _, ok := dns.IsDomainName(*s.DomainName); !ok {
			return invalid("server domain-name", *s.DomainName, nil)
		}
		t.Server.Domain = *s.DomainName
	}
	for _, ns := range s.NameServer {
		addr, err := netip.ParseAddr(ns)
		if err != nil {
			return invalid("server name-server", ns, err)
		}
		t.Server.NameServers = append(t.Server.NameServers, addr)
	}
	t.Server.PushRoutes, err = parsePrefixes("server push-route", s.PushRoute)
	if err != nil {
		return err
	}
	t.Server.MaxConnections = s.MaxConnections
	t.Server.RejectUnconfiguredClients = isSet(s.RejectUnconfiguredClients)

	names := make([]string, 0, len(s.Client))
	for name := range s.Client {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !validClientName(name) {
			return invalid("server client", name, errors.New("must be a plain file name"))
		}
		c := s.Client[name]
		client := models.ClientOverride{Name: name, Disabled: isSet(c.Disable)}
		if c.IP != nil {
			client.IP, err = netip.ParseAddr(*c.IP)
			if err != nil {
				return invalid("server client "+name+" ip", *c.IP, err)
			}
		}
		client.PushRoutes, err = parsePrefixes("server client "+name+" push-route", c.PushRoute)
		if err != nil {
			return err
		}
		client.Subnets, err = parsePrefixes("server client "+name+" subnet", c.Subnet)
		if err != nil {
			return err
		}
		t.Clients = append(t.Clients, client)
	}
	return nil
}

func loadTLS(t *models.TunnelConfig, node *config.TLS) error {
	if node == nil {
		return nil
	}
	tls := &models.TLS{}
	present := false
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{node.AuthFile, &tls.AuthKey},
		{node.CACertFile, &tls.CACert},
		{node.CertFile, &tls.Cert},
		{node.CRLFile, &tls.CRL},
		{node.DHFile, &tls.DH},
		{node.KeyFile, &tls.Key},
		{node.CryptFile, &tls.CryptKey},
	} {
		if f.src != nil {
			*f.dst = *f.src
			present = true
		}
	}
	if node.Role != nil {
		tls.Role = models.TLSRole(*node.Role)
		if tls.Role != models.TLSRoleActive && tls.Role != models.TLSRolePassive {
			return invalid("tls role", *node.Role, nil)
		}
		present = true
	}
	if node.TLSVersionMin != nil {
		tls.MinVersion = *node.TLSVersionMin
	}
	if present {
		t.TLS = tls
	}
	return nil
}

func parsePrefixes(node string, values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, invalid(node, v, err)
		}
		if !p.Addr().Is4() {
			return nil, invalid(node, v, errors.New("must be an IPv4 network"))
		}
		out = append(out, p)
	}
	return out, nil
}

// validClientName reports whether name can be used as a file in the client
// override directory.
func validClientName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\\x00")
}

func isSet(b *bool) bool {
	return b != nil && *b
}
