package system

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
)

// Netlink queries and adjusts kernel network links.
type Netlink struct{}

func NewNetlink() *Netlink {
	return &Netlink{}
}

func (n *Netlink) LinkExists(name string) (bool, error) {
	_, err := netlink.LinkByName(name)
	if err != nil {
		if errors.As(err, &netlink.LinkNotFoundError{}) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get link %s: %w", name, err)
	}
	return true, nil
}

// AddrAssigned reports whether addr is configured on any local link.
func (n *Netlink) AddrAssigned(addr netip.Addr) (bool, error) {
	addrList, err := netlink.AddrList(nil, nl.FAMILY_ALL)
	if err != nil {
		return false, fmt.Errorf("failed to list addresses: %w", err)
	}
	for _, a := range addrList {
		if a.IPNet == nil {
			continue
		}
		ip, ok := netip.AddrFromSlice(a.IP)
		if ok && ip.Unmap() == addr.Unmap() {
			return true, nil
		}
	}
	return false, nil
}

func (n *Netlink) SetAlias(name, alias string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to get link %s: %w", name, err)
	}
	err = netlink.LinkSetAlias(link, alias)
	if err != nil {
		return fmt.Errorf("failed to set alias: %w", err)
	}
	return nil
}

func (n *Netlink) SetUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to get link %s: %w", name, err)
	}
	err = netlink.LinkSetUp(link)
	if err != nil {
		return fmt.Errorf("failed to set link up: %w", err)
	}
	return nil
}
