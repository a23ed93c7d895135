package netfilterHelper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// staleJumps returns the rulespecs in chain that jump into a prefixed chain.
func (nh *NetfilterHelper) staleJumps(ipt IPTables, chain string) ([][]string, error) {
	rules, err := ipt.List("filter", chain)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules of %s: %w", chain, err)
	}
	var out [][]string
	for _, rule := range rules {
		fields := strings.Fields(rule)
		if len(fields) < 2 || fields[0] != "-A" || fields[1] != chain {
			continue
		}
		spec := fields[2:]
		i := slices.Index(spec, "-j")
		if i < 0 || i+1 >= len(spec) || !strings.HasPrefix(spec[i+1], nh.ChainPrefix) {
			continue
		}
		out = append(out, spec)
	}
	return out, nil
}

func (nh *NetfilterHelper) cleanFamily(ipt IPTables) ([]string, error) {
	chains, err := ipt.ListChains("filter")
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}

	var owned []string
	var errs []error
	for _, chain := range chains {
		if strings.HasPrefix(chain, nh.ChainPrefix) {
			owned = append(owned, chain)
			continue
		}
		jumps, err := nh.staleJumps(ipt, chain)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, spec := range jumps {
			err = ipt.Delete("filter", chain, spec...)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to unlink %s: %w", chain, err))
			}
		}
	}

	var removed []string
	for _, chain := range owned {
		err = ipt.ClearAndDeleteChain("filter", chain)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete chain %s: %w", chain, err))
			continue
		}
		removed = append(removed, chain)
	}
	return removed, errors.Join(errs...)
}

// CleanIPTables removes every chain owned by the helper's prefix together
// with the jumps into them, in each enabled family. It returns the removed
// chain names.
func (nh *NetfilterHelper) CleanIPTables() ([]string, error) {
	var removed []string
	var errs []error
	for _, ipt := range nh.tables() {
		chains, err := nh.cleanFamily(ipt)
		removed = append(removed, chains...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
