package models

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixMask(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"192.0.2.0/24", "255.255.255.0"},
		{"10.0.0.0/8", "255.0.0.0"},
		{"172.16.0.0/12", "255.240.0.0"},
		{"192.0.2.4/30", "255.255.255.252"},
		{"192.0.2.1/32", "255.255.255.255"},
		{"0.0.0.0/0", "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, PrefixMask(netip.MustParsePrefix(tt.prefix)).String())
		})
	}
	assert.False(t, PrefixMask(netip.Prefix{}).IsValid())
}

func TestFirstHost(t *testing.T) {
	assert.Equal(t, "192.0.2.1", FirstHost(netip.MustParsePrefix("192.0.2.0/24")).String())
	assert.Equal(t, "10.8.0.1", FirstHost(netip.MustParsePrefix("10.8.3.7/16")).String())
	assert.Equal(t, "192.0.2.6", FirstHost(netip.MustParsePrefix("192.0.2.6/31")).String())
	assert.Equal(t, "192.0.2.9", FirstHost(netip.MustParsePrefix("192.0.2.9/32")).String())
}

func TestRouteArgs(t *testing.T) {
	assert.Equal(t, "192.168.0.0 255.255.0.0", RouteArgs(netip.MustParsePrefix("192.168.4.1/16")))
}

func TestClone(t *testing.T) {
	p := uint16(1194)
	orig := &TunnelConfig{
		Interface: "vtun0",
		Local:     LocalEndpoint{Port: &p},
		Remote:    RemoteEndpoint{Hosts: []string{"a"}},
		TLS:       &TLS{CACert: "ca"},
		Clients:   []ClientOverride{{Name: "c", Subnets: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")}}},
	}
	c := orig.Clone()
	require.NotSame(t, orig, c)

	*c.Local.Port = 443
	c.Remote.Hosts[0] = "b"
	c.TLS.DH = DHNone
	c.Clients[0].Subnets[0] = netip.MustParsePrefix("10.1.0.0/24")

	assert.Equal(t, uint16(1194), *orig.Local.Port)
	assert.Equal(t, "a", orig.Remote.Hosts[0])
	assert.Empty(t, orig.TLS.DH)
	assert.Equal(t, "10.0.0.0/24", orig.Clients[0].Subnets[0].String())
	assert.Nil(t, (*TunnelConfig)(nil).Clone())
}

func TestTLSHasDHFile(t *testing.T) {
	assert.False(t, (*TLS)(nil).HasDHFile())
	assert.False(t, (&TLS{}).HasDHFile())
	assert.False(t, (&TLS{DH: DHNone}).HasDHFile())
	assert.True(t, (&TLS{DH: "/config/dh.pem"}).HasDHFile())
}

func TestSelector(t *testing.T) {
	tests := []struct {
		expr  string
		name  string
		match bool
		exact bool
	}{
		{"vtun*", "vtun10", true, false},
		{"vtun*", "eth0", false, false},
		{"vtun0", "vtun0", true, true},
		{"vtun0", "vtun01", false, true},
		{"re:^vtun[0-9]$", "vtun3", true, false},
		{"re:^vtun[0-9]$", "vtun30", false, false},
		{"=vtun*", "vtun*", true, true},
		{"=vtun*", "vtun1", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr+"/"+tt.name, func(t *testing.T) {
			s := ParseSelector(tt.expr)
			assert.Equal(t, tt.match, s.IsMatch(tt.name))
			assert.Equal(t, tt.exact, s.IsExact())
		})
	}
}

func TestPaths(t *testing.T) {
	p := Paths{ConfigDir: "/etc/openvpn", RunDir: "/run/openvpn", TmpDir: "/tmp", ManagementSocket: "/tmp/mgmt"}.WithRoot("/root")
	assert.Equal(t, "/root/etc/openvpn/openvpn-vtun0.conf", p.ConfigFile("vtun0"))
	assert.Equal(t, "/root/etc/openvpn/status/vtun0.status", p.StatusFile("vtun0"))
	assert.Equal(t, "/root/run/openvpn/vtun0.pid", p.PIDFile("vtun0"))
	assert.Equal(t, "/root/etc/openvpn/ccd/vtun0", p.CCDDir("vtun0"))
	assert.Equal(t, "/root/tmp/openvpn-vtun0-pw", p.CredentialFile("vtun0"))
	assert.Equal(t, "/root/tmp/mgmt", p.ManagementSocket)
	assert.Equal(t, "openvpn-vtun0", p.DaemonName("vtun0"))
}
