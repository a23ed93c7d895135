package models

import (
	"path/filepath"

	"ovpnconf/constant"
)

// Paths is the on-disk layout shared by the renderer and the apply step.
type Paths struct {
	ConfigDir        string
	RunDir           string
	TmpDir           string
	DaemonBinary     string
	StartStopDaemon  string
	IPRouteHelper    string
	ManagementSocket string

	User        string
	Group       string
	ConfigGroup string
}

func DefaultPaths() Paths {
	return Paths{
		ConfigDir:        constant.ConfigDir,
		RunDir:           constant.RunDir,
		TmpDir:           constant.TmpDir,
		DaemonBinary:     constant.DaemonBinary,
		StartStopDaemon:  constant.StartStopDaemon,
		IPRouteHelper:    constant.IPRouteHelper,
		ManagementSocket: filepath.Join(constant.TmpDir, "openvpn-mgmt-intf"),
		User:             constant.DaemonUser,
		Group:            constant.DaemonGroup,
		ConfigGroup:      constant.ConfigGroup,
	}
}

// WithRoot relocates every written location below root. Binaries are left alone.
func (p Paths) WithRoot(root string) Paths {
	if root == "" {
		return p
	}
	p.ConfigDir = filepath.Join(root, p.ConfigDir)
	p.RunDir = filepath.Join(root, p.RunDir)
	p.TmpDir = filepath.Join(root, p.TmpDir)
	p.ManagementSocket = filepath.Join(root, p.ManagementSocket)
	return p
}

func (p Paths) ConfigFile(intf string) string {
	return filepath.Join(p.ConfigDir, "openvpn-"+intf+".conf")
}

func (p Paths) StatusDir() string {
	return filepath.Join(p.ConfigDir, "status")
}

func (p Paths) StatusFile(intf string) string {
	return filepath.Join(p.StatusDir(), intf+".status")
}

func (p Paths) PIDFile(intf string) string {
	return filepath.Join(p.RunDir, intf+".pid")
}

func (p Paths) CCDRoot() string {
	return filepath.Join(p.ConfigDir, "ccd")
}

func (p Paths) CCDDir(intf string) string {
	return filepath.Join(p.CCDRoot(), intf)
}

func (p Paths) CredentialFile(intf string) string {
	return filepath.Join(p.TmpDir, "openvpn-"+intf+"-pw")
}

func (p Paths) DaemonName(intf string) string {
	return "openvpn-" + intf
}
