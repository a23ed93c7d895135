// Package cipher maps the user-facing cipher names onto the daemon's
// cipher-suite tokens. Supporting another suite means editing this table only.
package cipher

import "strings"

// Suite is one row of the policy table.
type Suite struct {
	Name    string
	Cipher  string
	KeySize int
	// Negotiable suites may appear in the ncp-ciphers list.
	Negotiable bool
}

var table = []Suite{
	{Name: "des", Cipher: "des-cbc", Negotiable: true},
	{Name: "3des", Cipher: "des-ede3-cbc", Negotiable: true},
	{Name: "bf128", Cipher: "bf-cbc", KeySize: 128},
	{Name: "bf256", Cipher: "bf-cbc", KeySize: 256},
	{Name: "aes128", Cipher: "aes-128-cbc", Negotiable: true},
	{Name: "aes128gcm", Cipher: "aes-128-gcm", Negotiable: true},
	{Name: "aes192", Cipher: "aes-192-cbc", Negotiable: true},
	{Name: "aes192gcm", Cipher: "aes-192-gcm", Negotiable: true},
	{Name: "aes256", Cipher: "aes-256-cbc", Negotiable: true},
	{Name: "aes256gcm", Cipher: "aes-256-gcm", Negotiable: true},
}

// NCPSeparator joins the entries of an ncp-ciphers directive.
const NCPSeparator = ":"

func Lookup(name string) (Suite, bool) {
	for _, s := range table {
		if s.Name == name {
			return s, true
		}
	}
	return Suite{}, false
}

// IsGCM reports whether name selects an AEAD (GCM) suite.
func IsGCM(name string) bool {
	s, ok := Lookup(name)
	return ok && strings.HasSuffix(s.Cipher, "-gcm")
}

// Names lists every known cipher name in table order.
func Names() []string {
	out := make([]string, len(table))
	for i, s := range table {
		out[i] = s.Name
	}
	return out
}

// NCPList expands names into the negotiation list, emitting the lowercase and
// the historical uppercase token for each suite. Unknown or non-negotiable
// names are skipped.
func NCPList(names []string) string {
	tokens := make([]string, 0, len(names)*2)
	for _, name := range names {
		s, ok := Lookup(name)
		if !ok || !s.Negotiable {
			continue
		}
		tokens = append(tokens, s.Cipher, strings.ToUpper(s.Cipher))
	}
	return strings.Join(tokens, NCPSeparator)
}
