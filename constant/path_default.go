//go:build !entware

package constant

const (
	ConfigDir       = "/opt/vyatta/etc/openvpn"
	RunDir          = "/var/run/openvpn"
	TmpDir          = "/tmp"
	DaemonBinary    = "/usr/sbin/openvpn"
	StartStopDaemon = "/sbin/start-stop-daemon"
	IPRouteHelper   = "/usr/libexec/vyos/system/unpriv-ip"
	ConfigGroup     = "vyattacfg"
)
