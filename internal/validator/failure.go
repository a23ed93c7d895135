package validator

import (
	"errors"
	"fmt"
)

var ErrNoConfig = errors.New("no tunnel configuration")

// Rule names the constraint a configuration violated.
type Rule string

const (
	RuleDeletedBridgeMember Rule = "deleted-bridge-member"
	RuleModeMissing         Rule = "mode-missing"
	RuleNCPConflict         Rule = "ncp-conflict"

	RuleClientLocalPort    Rule = "client-local-port"
	RuleClientLocalHost    Rule = "client-local-host"
	RuleClientTCPPassive   Rule = "client-tcp-passive"
	RuleClientRemoteHost   Rule = "client-remote-host"
	RuleClientDHFile       Rule = "client-dh-file"
	RuleSiteLocalAddress   Rule = "site-local-address"
	RuleSiteBridgeAddress  Rule = "site-bridge-address"
	RuleSiteRemoteHost     Rule = "site-remote-host-address"
	RuleSiteRemoteAddress  Rule = "site-remote-address"
	RuleSiteSameAddress    Rule = "site-same-address"
	RuleSiteLocalHost      Rule = "site-local-host-address"
	RuleSiteNCPCiphers     Rule = "site-ncp-ciphers"
	RuleServerTCPActive    Rule = "server-tcp-active"
	RuleServerRemotePort   Rule = "server-remote-port"
	RuleServerRemoteHost   Rule = "server-remote-host"
	RuleServerPassiveHosts Rule = "server-passive-remote-hosts"
	RuleServerDHFile       Rule = "server-dh-file"
	RuleServerSubnet       Rule = "server-subnet"

	RuleClientServerAddress Rule = "client-server-address"
	RuleBridgeAddress       Rule = "bridge-address"

	RuleRejectUnconfigured  Rule = "reject-unconfigured-server-only"
	RuleTopologyServerOnly  Rule = "topology-server-only"
	RuleClientsServerOnly   Rule = "clients-server-only"
	RuleRedirectRemoteHost  Rule = "redirect-gateway-remote-host"
	RuleLocalHostAssigned   Rule = "local-host-assigned"
	RuleTCPActiveLocalPort  Rule = "tcp-active-local-port"
	RuleTCPActiveRemoteHost Rule = "tcp-active-remote-host"

	RuleAuthMissing      Rule = "secret-or-tls-missing"
	RuleAuthExclusive    Rule = "secret-and-tls"
	RuleClientServerTLS  Rule = "client-server-tls"
	RuleSecretGCM        Rule = "secret-gcm"
	RuleSecretFileHeader Rule = "secret-file-header"

	RuleTLSCACert          Rule = "tls-ca-cert"
	RuleTLSCert            Rule = "tls-cert"
	RuleTLSKey             Rule = "tls-key"
	RuleTLSAuthCrypt       Rule = "tls-auth-crypt"
	RuleTLSCACertHeader    Rule = "tls-ca-cert-header"
	RuleTLSAuthHeader      Rule = "tls-auth-header"
	RuleTLSCertHeader      Rule = "tls-cert-header"
	RuleTLSKeyHeader       Rule = "tls-key-header"
	RuleTLSCryptHeader     Rule = "tls-crypt-header"
	RuleTLSCRLHeader       Rule = "tls-crl-header"
	RuleTLSDHHeader        Rule = "tls-dh-header"
	RuleTLSRoleMode        Rule = "tls-role-client-server"
	RuleTLSActivePassive   Rule = "tls-active-tcp-passive"
	RuleTLSActiveDH        Rule = "tls-active-dh-file"
	RuleTLSPassiveActive   Rule = "tls-passive-tcp-active"
	RuleTLSPassiveDH       Rule = "tls-passive-dh-file"
	RuleAuthUsername       Rule = "auth-username"
	RuleAuthPassword       Rule = "auth-password"
	RuleClientSubnetMember Rule = "client-subnet-membership"
)

// Failure is the single error reported for a rejected configuration.
type Failure struct {
	Rule Rule
	Msg  string
}

func (f *Failure) Error() string {
	return f.Msg
}

// Is matches any *Failure carrying the same rule, so errors.Is works with a
// bare &Failure{Rule: ...} target.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if !errors.As(target, &t) {
		return false
	}
	return t.Rule == f.Rule
}

func fail(rule Rule, format string, args ...any) *Failure {
	return &Failure{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

// RuleOf returns the violated rule when err is a validation failure.
func RuleOf(err error) (Rule, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Rule, true
	}
	return "", false
}
