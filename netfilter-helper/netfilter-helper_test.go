package netfilterHelper

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIPTables models the filter table as chain -> rules.
type fakeIPTables struct {
	chains map[string][]string
	failOn string
}

func newFake() *fakeIPTables {
	return &fakeIPTables{chains: map[string][]string{"INPUT": nil, "FORWARD": nil}}
}

func (f *fakeIPTables) NewChain(_, chain string) error {
	if _, ok := f.chains[chain]; !ok {
		f.chains[chain] = nil
	}
	return nil
}

func (f *fakeIPTables) ClearChain(_, chain string) error {
	f.chains[chain] = nil
	return nil
}

func (f *fakeIPTables) ClearAndDeleteChain(_, chain string) error {
	delete(f.chains, chain)
	return nil
}

func (f *fakeIPTables) AppendUnique(_, chain string, rulespec ...string) error {
	if f.failOn == "append" {
		return errors.New("append failed")
	}
	rule := strings.Join(rulespec, " ")
	if !slices.Contains(f.chains[chain], rule) {
		f.chains[chain] = append(f.chains[chain], rule)
	}
	return nil
}

func (f *fakeIPTables) InsertUnique(_, chain string, _ int, rulespec ...string) error {
	rule := strings.Join(rulespec, " ")
	if !slices.Contains(f.chains[chain], rule) {
		f.chains[chain] = append([]string{rule}, f.chains[chain]...)
	}
	return nil
}

func (f *fakeIPTables) DeleteIfExists(_, chain string, rulespec ...string) error {
	rule := strings.Join(rulespec, " ")
	f.chains[chain] = slices.DeleteFunc(f.chains[chain], func(r string) bool { return r == rule })
	return nil
}

func (f *fakeIPTables) Delete(table, chain string, rulespec ...string) error {
	return f.DeleteIfExists(table, chain, rulespec...)
}

func (f *fakeIPTables) ListChains(string) ([]string, error) {
	var out []string
	for chain := range f.chains {
		out = append(out, chain)
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeIPTables) List(_, chain string) ([]string, error) {
	var out []string
	for _, rule := range f.chains[chain] {
		out = append(out, "-A "+chain+" "+rule)
	}
	return out, nil
}

func TestPortAccept(t *testing.T) {
	ipt := newFake()
	nh := &NetfilterHelper{ChainPrefix: "OVPN_", IPTables4: ipt}

	pa := nh.PortAccept("vtun0", "udp", 1194)
	require.NoError(t, pa.Enable())
	require.NoError(t, pa.Enable())

	assert.Equal(t, []string{"-p udp --dport 1194 -j ACCEPT"}, ipt.chains["OVPN_vtun0"])
	assert.Equal(t, []string{"-j OVPN_vtun0"}, ipt.chains["INPUT"])

	require.NoError(t, pa.Disable())
	assert.NotContains(t, ipt.chains, "OVPN_vtun0")
	assert.Empty(t, ipt.chains["INPUT"])
}

func TestPortAccept_EnableFailureRollsBack(t *testing.T) {
	ipt := newFake()
	ipt.failOn = "append"
	nh := &NetfilterHelper{ChainPrefix: "OVPN_", IPTables4: ipt}

	err := nh.PortAccept("vtun0", "tcp", 443).Enable()
	require.Error(t, err)
	assert.NotContains(t, ipt.chains, "OVPN_vtun0")
}

func TestCleanIPTables(t *testing.T) {
	ipt4, ipt6 := newFake(), newFake()
	nh := &NetfilterHelper{ChainPrefix: "OVPN_", IPTables4: ipt4, IPTables6: ipt6}

	require.NoError(t, nh.PortAccept("vtun0", "udp", 1194).Enable())
	require.NoError(t, nh.PortAccept("vtun1", "tcp", 443).Enable())
	ipt4.chains["INPUT"] = append(ipt4.chains["INPUT"], "-p icmp -j ACCEPT")

	removed, err := nh.CleanIPTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"OVPN_vtun0", "OVPN_vtun1", "OVPN_vtun0", "OVPN_vtun1"}, removed)
	for _, ipt := range []*fakeIPTables{ipt4, ipt6} {
		chains, _ := ipt.ListChains("filter")
		assert.Equal(t, []string{"FORWARD", "INPUT"}, chains)
	}
	assert.Equal(t, []string{"-p icmp -j ACCEPT"}, ipt4.chains["INPUT"])
	assert.Empty(t, ipt6.chains["INPUT"])
}

func TestOpenClose(t *testing.T) {
	ipt := newFake()
	nh := &NetfilterHelper{ChainPrefix: "OVPN_", IPTables4: ipt}

	require.NoError(t, nh.Open("vtun0", "udp", 1194))
	require.NoError(t, nh.Open("vtun0", "tcp", 443))
	assert.Equal(t, []string{"-p tcp --dport 443 -j ACCEPT"}, ipt.chains["OVPN_vtun0"])
	assert.Equal(t, []string{"-j OVPN_vtun0"}, ipt.chains["INPUT"])

	require.NoError(t, nh.Close("vtun0"))
	require.NoError(t, nh.Close("vtun0"))
	assert.NotContains(t, ipt.chains, "OVPN_vtun0")
	assert.Empty(t, ipt.chains["INPUT"])
}
