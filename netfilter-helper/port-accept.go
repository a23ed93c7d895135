package netfilterHelper

import (
	"errors"
	"fmt"
	"strconv"
)

// PortAccept opens one listening port of a tunnel in the INPUT chain.
type PortAccept struct {
	ChainName string
	Protocol  string
	Port      uint16

	nh *NetfilterHelper
}

func (r *PortAccept) chain() string {
	return r.nh.ChainPrefix + r.ChainName
}

func (r *PortAccept) insertIPTablesRules(ipt IPTables) error {
	chain := r.chain()
	err := ipt.NewChain("filter", chain)
	if err != nil && !isChainExists(err) {
		return fmt.Errorf("failed to create chain: %w", err)
	}

	err = ipt.ClearChain("filter", chain)
	if err != nil {
		return fmt.Errorf("failed to clear chain: %w", err)
	}

	err = ipt.AppendUnique("filter", chain, "-p", r.Protocol, "--dport", strconv.Itoa(int(r.Port)), "-j", "ACCEPT")
	if err != nil {
		return fmt.Errorf("failed to append rule: %w", err)
	}

	err = ipt.InsertUnique("filter", "INPUT", 1, "-j", chain)
	if err != nil {
		return fmt.Errorf("failed to linking chain: %w", err)
	}
	return nil
}

func (r *PortAccept) deleteIPTablesRules(ipt IPTables) error {
	var errs []error

	chain := r.chain()
	err := ipt.DeleteIfExists("filter", "INPUT", "-j", chain)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to unlinking chain: %w", err))
	}

	err = ipt.ClearAndDeleteChain("filter", chain)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to delete chain: %w", err))
	}

	return errors.Join(errs...)
}

func (r *PortAccept) Enable() error {
	for _, ipt := range r.nh.tables() {
		err := r.insertIPTablesRules(ipt)
		if err != nil {
			_ = r.Disable()
			return err
		}
	}
	return nil
}

func (r *PortAccept) Disable() error {
	var errs []error
	for _, ipt := range r.nh.tables() {
		errs = append(errs, r.deleteIPTablesRules(ipt))
	}
	return errors.Join(errs...)
}

func (nh *NetfilterHelper) PortAccept(name, protocol string, port uint16) *PortAccept {
	return &PortAccept{
		nh:        nh,
		ChainName: name,
		Protocol:  protocol,
		Port:      port,
	}
}

// Open accepts protocol/port for the tunnel name, replacing any previous rule.
func (nh *NetfilterHelper) Open(name, protocol string, port uint16) error {
	return nh.PortAccept(name, protocol, port).Enable()
}

// Close removes the chain of the tunnel name. A missing chain is not an error.
func (nh *NetfilterHelper) Close(name string) error {
	return nh.PortAccept(name, "", 0).Disable()
}
