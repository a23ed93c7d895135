package constant

// Service account the daemon drops privileges to.
const (
	DaemonUser  = "openvpn"
	DaemonGroup = "openvpn"
)

// Overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// SocketName is the API unix socket, created inside RunDir.
const SocketName = "ovpnconf.sock"
