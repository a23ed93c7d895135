package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ovpnconf/models/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intent = `
settings:
  log-level: disabled
  chain-prefix: VPN_
interfaces:
  openvpn:
    vtun0:
      mode: server
      server:
        subnet: 10.8.0.0/24
        topology: subnet
        client:
          laptop:
            ip: 10.8.0.10
      tls:
        ca-cert-file: /nonexistent/ca.pem
        cert-file: /nonexistent/s.pem
        key-file: /nonexistent/s.key
        dh-file: /nonexistent/dh.pem
    vtun1:
      mode: client
      tls:
        ca-cert-file: /nonexistent/ca.pem
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runIntent(t, intent, args...)
}

func runIntent(t *testing.T, text string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path, "--root", "/srv"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "-i", "vtun0")
	require.NoError(t, err)
	assert.Equal(t, "vtun0: ok\n", out)

	out, err = run(t, "validate")
	require.Error(t, err)
	assert.Equal(t, `vtun1: Must specify "remote-host" in client mode`, err.Error())
	assert.Equal(t, "vtun0: ok\n", out)
}

func TestValidateCommand_OneLinePerFailingInstance(t *testing.T) {
	twoBroken := `
interfaces:
  openvpn:
    vtun1:
      mode: client
      tls:
        ca-cert-file: /nonexistent/ca.pem
    vtun2:
      mode: client
      tls:
        ca-cert-file: /nonexistent/ca.pem
`
	_, err := runIntent(t, twoBroken, "validate")
	require.Error(t, err)
	assert.Equal(t, []string{
		`vtun1: Must specify "remote-host" in client mode`,
		`vtun2: Must specify "remote-host" in client mode`,
	}, strings.Split(err.Error(), "\n"))

	_, err = runIntent(t, twoBroken, "validate", "-i", "vtun2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "\n")
}

func TestRenderCommand(t *testing.T) {
	out, err := run(t, "render", "-i", "vtun0", "-i", "vtun7")
	require.NoError(t, err)

	assert.Contains(t, out, "==> /srv/opt/vyatta/etc/openvpn/openvpn-vtun0.conf <==\n### Autogenerated by ovpnconf ###\n")
	assert.Contains(t, out, "==> /srv/opt/vyatta/etc/openvpn/ccd/vtun0/laptop <==\n")
	assert.Contains(t, out, "ifconfig-push 10.8.0.10 255.255.255.0\n")
	assert.Contains(t, out, "# vtun7 is deleted\n")
}

func TestApplySettings(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &options{}
	cmd.Flags().StringVar(&opts.chainPrefix, "chain-prefix", defaultChainPrefix, "")
	cmd.Flags().BoolVar(&opts.disableIPv6, "disable-ipv6", false, "")
	require.NoError(t, cmd.Flags().Set("chain-prefix", "CLI_"))

	prefix, yes := "FILE_", true
	applySettings(cmd, opts, &config.Settings{ChainPrefix: &prefix, DisableIPv6: &yes})

	assert.Equal(t, "CLI_", opts.chainPrefix)
	assert.True(t, opts.disableIPv6)
	assert.False(t, opts.disableIPv4)
}
