package validator

import (
	"ovpnconf/internal/cipher"
	"ovpnconf/internal/credential"
	"ovpnconf/models"
)

func checkSharedSecret(v *Validator, c *models.TunnelConfig) error {
	if c.SharedSecretFile == "" {
		return nil
	}
	if cipher.IsGCM(c.Encryption.Cipher) {
		return fail(RuleSecretGCM, "GCM encryption with shared-secret-key-file is not supported")
	}
	if !v.inspector.Matches(c.SharedSecretFile, credential.HeaderStaticKey) {
		return fail(RuleSecretFileHeader, `Specified shared-secret-key-file "%s" is not valid`, c.SharedSecretFile)
	}
	return nil
}

type headerCheck struct {
	rule    Rule
	path    string
	pattern string
	msg     string
}

func checkTLS(v *Validator, c *models.TunnelConfig) error {
	tls := c.TLS
	if tls == nil {
		return nil
	}

	if tls.CACert == "" {
		return fail(RuleTLSCACert, `Must specify "tls ca-cert-file"`)
	}
	if !(c.Mode == models.ModeClient && c.HasAuth()) {
		if tls.Cert == "" {
			return fail(RuleTLSCert, `Must specify "tls cert-file"`)
		}
		if tls.Key == "" {
			return fail(RuleTLSKey, `Must specify "tls key-file"`)
		}
	}
	if tls.AuthKey != "" && tls.CryptKey != "" {
		return fail(RuleTLSAuthCrypt, "TLS auth and crypt are mutually exclusive")
	}

	headers := []headerCheck{
		{RuleTLSCACertHeader, tls.CACert, credential.HeaderCertificate, `Specified ca-cert-file "%s" is invalid`},
		{RuleTLSAuthHeader, tls.AuthKey, credential.HeaderStaticKey, `Specified auth-file "%s" is invalid`},
		{RuleTLSCertHeader, tls.Cert, credential.HeaderCertificate, `Specified cert-file "%s" is invalid`},
		{RuleTLSKeyHeader, tls.Key, credential.HeaderPrivateKey, `Specified key-file "%s" is not valid`},
		{RuleTLSCryptHeader, tls.CryptKey, credential.HeaderStaticKey, `Specified TLS crypt-file "%s" is invalid`},
		{RuleTLSCRLHeader, tls.CRL, credential.HeaderCRL, `Specified crl-file "%s" is not valid`},
	}
	if tls.HasDHFile() {
		headers = append(headers, headerCheck{RuleTLSDHHeader, tls.DH, credential.HeaderDHParameters, `Specified dh-file "%s" is not valid`})
	}
	for _, h := range headers {
		if h.path == "" {
			continue
		}
		if !v.inspector.Matches(h.path, h.pattern) {
			return fail(h.rule, h.msg, h.path)
		}
	}

	if err := checkTLSRole(c); err != nil {
		return err
	}

	if v.isECKey(c) {
		if tls.HasDHFile() {
			v.log.Warn().Str("interface", c.Interface).
				Msg("using dh-file and EC keys simultaneously will lead to DH ciphers being used instead of ECDH")
		} else {
			v.log.Info().Str("interface", c.Interface).
				Msg("Diffie-Hellman prime file is unspecified, assuming ECDH")
		}
	}
	return nil
}

func checkTLSRole(c *models.TunnelConfig) error {
	tls := c.TLS
	if tls.Role == models.TLSRoleUnset {
		return nil
	}
	if (c.Mode == models.ModeClient || c.Mode == models.ModeServer) && tls.AuthKey == "" {
		return fail(RuleTLSRoleMode, `Cannot specify "tls role" in client-server mode`)
	}
	switch tls.Role {
	case models.TLSRoleActive:
		if c.Protocol == models.ProtocolTCPPassive {
			return fail(RuleTLSActivePassive, `Cannot specify "tcp-passive" when "tls role" is "active"`)
		}
		if tls.HasDHFile() {
			return fail(RuleTLSActiveDH, `Cannot specify "tls dh-file" when "tls role" is "active"`)
		}
	case models.TLSRolePassive:
		if c.Protocol == models.ProtocolTCPActive {
			return fail(RuleTLSPassiveActive, `Cannot specify "tcp-active" when "tls role" is "passive"`)
		}
		if tls.DH == "" {
			return fail(RuleTLSPassiveDH, `Must specify "tls dh-file" when "tls role" is "passive"`)
		}
	}
	return nil
}

func checkAuth(_ *Validator, c *models.TunnelConfig) error {
	if c.Auth == nil {
		return nil
	}
	if c.Auth.Username == "" {
		return fail(RuleAuthUsername, "Username for authentication is missing")
	}
	if c.Auth.Password == "" {
		return fail(RuleAuthPassword, "Password for authentication is missing")
	}
	return nil
}

func checkClientSubnet(_ *Validator, c *models.TunnelConfig) error {
	for _, client := range c.Clients {
		if !client.IP.IsValid() {
			continue
		}
		if !c.Server.Subnet.IsValid() || !c.Server.Subnet.Contains(client.IP) {
			return fail(RuleClientSubnetMember, `Client IP "%s" not in server subnet "%s"`, client.IP, c.Server.Subnet.Masked())
		}
	}
	return nil
}

// deriveNetmasks fills ClientOverride.RemoteNetmask: the subnet mask under
// subnet topology, otherwise the first host of the server subnet.
func deriveNetmasks(c *models.TunnelConfig) {
	if c.Mode != models.ModeServer || !c.Server.Subnet.IsValid() {
		return
	}
	mask := models.FirstHost(c.Server.Subnet)
	if c.Server.Topology == models.TopologySubnet {
		mask = models.PrefixMask(c.Server.Subnet)
	}
	for i := range c.Clients {
		c.Clients[i].RemoteNetmask = mask
	}
}
