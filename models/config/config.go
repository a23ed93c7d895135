package config

// Config is the declarative intent tree as read from YAML.
type Config struct {
	Settings   *Settings   `yaml:"settings"`
	Interfaces *Interfaces `yaml:"interfaces"`
}

// Settings tune the tool itself. Command line flags take precedence.
type Settings struct {
	LogLevel    *string `yaml:"log-level"`
	ChainPrefix *string `yaml:"chain-prefix"`
	DisableIPv4 *bool   `yaml:"disable-ipv4"`
	DisableIPv6 *bool   `yaml:"disable-ipv6"`
}

type Interfaces struct {
	OpenVPN map[string]OpenVPN `yaml:"openvpn"`
	Bridge  map[string]Bridge  `yaml:"bridge"`
}

type Bridge struct {
	Member *BridgeMember `yaml:"member"`
}

type BridgeMember struct {
	Interface []string `yaml:"interface"`
}

type OpenVPN struct {
	Description *string `yaml:"description"`
	Mode        *string `yaml:"mode"`
	Protocol    *string `yaml:"protocol"`
	DeviceType  *string `yaml:"device-type"`
	Disable     *bool   `yaml:"disable"`

	LocalHost     *string                 `yaml:"local-host"`
	LocalPort     *uint16                 `yaml:"local-port"`
	LocalAddress  map[string]LocalAddress `yaml:"local-address"`
	RemoteHost    []string                `yaml:"remote-host"`
	RemotePort    *uint16                 `yaml:"remote-port"`
	RemoteAddress *string                 `yaml:"remote-address"`

	Authentication      *Authentication      `yaml:"authentication"`
	Encryption          *Encryption          `yaml:"encryption"`
	Hash                *string              `yaml:"hash"`
	KeepAlive           *KeepAlive           `yaml:"keep-alive"`
	OpenVPNOption       []string             `yaml:"openvpn-option"`
	PersistentTunnel    *bool                `yaml:"persistent-tunnel"`
	ReplaceDefaultRoute *ReplaceDefaultRoute `yaml:"replace-default-route"`
	Server              *Server              `yaml:"server"`
	TLS                 *TLS                 `yaml:"tls"`
	SharedSecretKeyFile *string              `yaml:"shared-secret-key-file"`
	UseLZOCompression   *bool                `yaml:"use-lzo-compression"`

	Firewall *Firewall `yaml:"firewall"`
}

type LocalAddress struct {
	SubnetMask *string `yaml:"subnet-mask"`
}

type Authentication struct {
	Username *string `yaml:"username"`
	Password *string `yaml:"password"`
}

type Encryption struct {
	Cipher     *string  `yaml:"cipher"`
	NCPCiphers []string `yaml:"ncp-ciphers"`
	DisableNCP *bool    `yaml:"disable-ncp"`
}

type KeepAlive struct {
	Interval     *uint32 `yaml:"interval"`
	FailureCount *uint32 `yaml:"failure-count"`
}

type ReplaceDefaultRoute struct {
	Local *bool `yaml:"local"`
}

type Server struct {
	Subnet                    *string           `yaml:"subnet"`
	Topology                  *string           `yaml:"topology"`
	DomainName                *string           `yaml:"domain-name"`
	NameServer                []string          `yaml:"name-server"`
	PushRoute                 []string          `yaml:"push-route"`
	MaxConnections            *uint32           `yaml:"max-connections"`
	RejectUnconfiguredClients *bool             `yaml:"reject-unconfigured-clients"`
	Client                    map[string]Client `yaml:"client"`
}

type Client struct {
	Disable   *bool    `yaml:"disable"`
	IP        *string  `yaml:"ip"`
	PushRoute []string `yaml:"push-route"`
	Subnet    []string `yaml:"subnet"`
}

type TLS struct {
	AuthFile      *string `yaml:"auth-file"`
	CACertFile    *string `yaml:"ca-cert-file"`
	CertFile      *string `yaml:"cert-file"`
	CRLFile       *string `yaml:"crl-file"`
	DHFile        *string `yaml:"dh-file"`
	KeyFile       *string `yaml:"key-file"`
	CryptFile     *string `yaml:"crypt-file"`
	Role          *string `yaml:"role"`
	TLSVersionMin *string `yaml:"tls-version-min"`
}

type Firewall struct {
	OpenPort *bool `yaml:"open-port"`
}
