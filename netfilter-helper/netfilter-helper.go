package netfilterHelper

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
)

// IPTables is the subset of *iptables.IPTables the helper drives.
type IPTables interface {
	NewChain(table, chain string) error
	ClearChain(table, chain string) error
	ClearAndDeleteChain(table, chain string) error
	AppendUnique(table, chain string, rulespec ...string) error
	InsertUnique(table, chain string, pos int, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
	ListChains(table string) ([]string, error)
	List(table, chain string) ([]string, error)
}

type NetfilterHelper struct {
	ChainPrefix string
	IPTables4   IPTables
	IPTables6   IPTables
}

func New(chainPrefix string, disableIPv4, disableIPv6 bool) (*NetfilterHelper, error) {
	nh := &NetfilterHelper{ChainPrefix: chainPrefix}

	if !disableIPv4 {
		ipt4, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv4))
		if err != nil {
			return nil, fmt.Errorf("iptables init fail: %w", err)
		}
		nh.IPTables4 = ipt4
	}

	if !disableIPv6 {
		ipt6, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv6))
		if err != nil {
			return nil, fmt.Errorf("ip6tables init fail: %w", err)
		}
		nh.IPTables6 = ipt6
	}

	return nh, nil
}

func (nh *NetfilterHelper) tables() []IPTables {
	var out []IPTables
	if nh.IPTables4 != nil {
		out = append(out, nh.IPTables4)
	}
	if nh.IPTables6 != nil {
		out = append(out, nh.IPTables6)
	}
	return out
}

func isChainExists(err error) bool {
	eerr, ok := err.(*iptables.Error)
	return ok && eerr.ExitStatus() == 1
}
