//go:build entware

package constant

const (
	ConfigDir       = "/opt/etc/openvpn"
	RunDir          = "/opt/var/run/openvpn"
	TmpDir          = "/opt/tmp"
	DaemonBinary    = "/opt/sbin/openvpn"
	StartStopDaemon = "/opt/sbin/start-stop-daemon"
	IPRouteHelper   = ""
	ConfigGroup     = "root"
)
