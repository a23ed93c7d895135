package models

import "net/netip"

// PrefixMask returns the dotted netmask of p, e.g. 255.255.255.0 for a /24.
func PrefixMask(p netip.Prefix) netip.Addr {
	if !p.IsValid() {
		return netip.Addr{}
	}
	bits := p.Bits()
	if p.Addr().Is4() {
		var mask [4]byte
		fillMask(mask[:], bits)
		return netip.AddrFrom4(mask)
	}
	var mask [16]byte
	fillMask(mask[:], bits)
	return netip.AddrFrom16(mask)
}

func fillMask(mask []byte, bits int) {
	for i := range mask {
		switch {
		case bits >= 8:
			mask[i] = 0xff
			bits -= 8
		case bits > 0:
			mask[i] = ^byte(0xff >> bits)
			bits = 0
		}
	}
}

// FirstHost returns the first usable host address of p. Prefixes without a
// host range (/31, /32) yield their network address.
func FirstHost(p netip.Prefix) netip.Addr {
	if !p.IsValid() {
		return netip.Addr{}
	}
	network := p.Masked().Addr()
	if p.Bits() >= network.BitLen()-1 {
		return network
	}
	return network.Next()
}

// RouteArgs formats p the way the daemon expects routes: "address netmask".
func RouteArgs(p netip.Prefix) string {
	return p.Masked().Addr().String() + " " + PrefixMask(p).String()
}
