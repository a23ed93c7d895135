package models

import (
	"net/netip"
	"slices"
)

type Mode string

const (
	ModeUnset      Mode = ""
	ModeClient     Mode = "client"
	ModeServer     Mode = "server"
	ModeSiteToSite Mode = "site-to-site"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeClient, ModeServer, ModeSiteToSite:
		return true
	}
	return false
}

type Protocol string

const (
	ProtocolUnset      Protocol = ""
	ProtocolUDP        Protocol = "udp"
	ProtocolTCPActive  Protocol = "tcp-active"
	ProtocolTCPPassive Protocol = "tcp-passive"
)

type DeviceType string

const (
	DeviceTun DeviceType = "tun"
	DeviceTap DeviceType = "tap"
)

type TLSRole string

const (
	TLSRoleUnset   TLSRole = ""
	TLSRoleActive  TLSRole = "active"
	TLSRolePassive TLSRole = "passive"
)

type RedirectGateway string

const (
	RedirectGatewayNone  RedirectGateway = ""
	RedirectGatewayDef1  RedirectGateway = "def1"
	RedirectGatewayLocal RedirectGateway = "local def1"
)

type Topology string

const (
	TopologyUnset        Topology = ""
	TopologySubnet       Topology = "subnet"
	TopologyPointToPoint Topology = "point-to-point"
)

// DHNone disables Diffie-Hellman parameters, letting the daemon negotiate ECDH.
const DHNone = "none"

// Keepalive defaults used when the intent does not provide both values.
const (
	DefaultPingInterval = 10
	DefaultPingRestart  = 60
)

// TunnelConfig is one tunnel instance, keyed by its interface name.
type TunnelConfig struct {
	Interface   string
	Description string

	Mode       Mode
	Protocol   Protocol
	DeviceType DeviceType

	Disabled bool
	Deleted  bool

	Local         LocalEndpoint
	Remote        RemoteEndpoint
	BridgeMembers []string

	Auth             *Auth
	TLS              *TLS
	SharedSecretFile string

	Encryption Encryption
	Hash       string

	CompressLZO      bool
	PersistentTunnel bool
	RedirectGateway  RedirectGateway
	KeepAlive        KeepAlive

	Server       Server
	Clients      []ClientOverride
	ExtraOptions []string

	Firewall Firewall
}

type LocalEndpoint struct {
	Host       netip.Addr
	Port       *uint16
	Address    netip.Addr
	SubnetMask netip.Addr
}

type RemoteEndpoint struct {
	Hosts   []string
	Port    *uint16
	Address netip.Addr
}

type Auth struct {
	Username string
	Password string
}

// TLS is present on a tunnel as soon as any of its credential fields is set.
type TLS struct {
	CACert     string
	Cert       string
	Key        string
	CRL        string
	DH         string
	CryptKey   string
	AuthKey    string
	Role       TLSRole
	MinVersion string
}

// HasDHFile reports whether a real parameters file (not the "none" sentinel) is set.
func (t *TLS) HasDHFile() bool {
	return t != nil && t.DH != "" && t.DH != DHNone
}

type Encryption struct {
	Cipher     string
	NCPCiphers []string
	DisableNCP bool
}

type KeepAlive struct {
	Interval uint32
	Restart  uint32
}

type Server struct {
	Subnet                    netip.Prefix
	Topology                  Topology
	Domain                    string
	NameServers               []netip.Addr
	PushRoutes                []netip.Prefix
	MaxConnections            *uint32
	RejectUnconfiguredClients bool
}

// ClientOverride is the per-peer fragment written to the client-config-dir.
type ClientOverride struct {
	Name       string
	Disabled   bool
	IP         netip.Addr
	PushRoutes []netip.Prefix
	Subnets    []netip.Prefix

	// RemoteNetmask is derived from the server subnet and topology.
	RemoteNetmask netip.Addr
}

type Firewall struct {
	OpenPort bool
}

func (c *TunnelConfig) IsBridged() bool {
	return len(c.BridgeMembers) > 0
}

func (c *TunnelConfig) HasTLS() bool {
	return c.TLS != nil
}

func (c *TunnelConfig) HasAuth() bool {
	return c.Auth != nil
}

// Clone returns a deep copy so refinements never touch the caller's value.
func (c *TunnelConfig) Clone() *TunnelConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Local.Port = clonePtr(c.Local.Port)
	out.Remote.Port = clonePtr(c.Remote.Port)
	out.Remote.Hosts = slices.Clone(c.Remote.Hosts)
	out.BridgeMembers = slices.Clone(c.BridgeMembers)
	if c.Auth != nil {
		auth := *c.Auth
		out.Auth = &auth
	}
	if c.TLS != nil {
		tls := *c.TLS
		out.TLS = &tls
	}
	out.Encryption.NCPCiphers = slices.Clone(c.Encryption.NCPCiphers)
	out.Server.NameServers = slices.Clone(c.Server.NameServers)
	out.Server.PushRoutes = slices.Clone(c.Server.PushRoutes)
	out.Server.MaxConnections = clonePtr(c.Server.MaxConnections)
	out.ExtraOptions = slices.Clone(c.ExtraOptions)
	if c.Clients != nil {
		out.Clients = make([]ClientOverride, len(c.Clients))
		for i, client := range c.Clients {
			client.PushRoutes = slices.Clone(client.PushRoutes)
			client.Subnets = slices.Clone(client.Subnets)
			out.Clients[i] = client
		}
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
