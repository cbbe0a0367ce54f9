package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS classes reported in the dns_class detail of a failed HTTP probe.
const (
	DNSResolves     = "RESOLVES"
	DNSNXDomain     = "NXDOMAIN"
	DNSNoARecord    = "NO_A_RECORD"
	DNSServFail     = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName  = "INVALID_NAME"
	defaultDNSLimit = 3 * time.Second
)

// Resolver is the subset of *net.Resolver the DNS check needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

type DNSStatus struct {
	Domain        string
	IPs           []net.IP
	CNAME         string
	Nameservers   []string
	Class         string
	ResolverError string
}

// DNSChecker explains why a host may be unreachable once every endpoint of
// an HTTP probe has failed.
type DNSChecker struct {
	Resolver Resolver
	Timeout  time.Duration
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{Resolver: net.DefaultResolver, Timeout: defaultDNSLimit}
}

func (d *DNSChecker) Check(ctx context.Context, host string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(host)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	ips, err := d.Resolver.LookupIP(ctx, "ip", s.Domain)
	s.IPs = ips
	if err != nil {
		s.ResolverError = err.Error()
	}

	// literal addresses have no CNAME or NS records worth asking for
	if net.ParseIP(s.Domain) == nil {
		if cname, err := d.Resolver.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
			s.CNAME = strings.TrimSuffix(cname, ".")
		}
		if ns, err := d.Resolver.LookupNS(ctx, s.Domain); err == nil {
			for _, n := range ns {
				s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
			}
		}
	}

	s.Class = classify(len(s.IPs) > 0, len(s.Nameservers) > 0, err)
	return s
}

// classify: addresses win; a zone with nameservers but no address is
// NO_A_RECORD; otherwise the resolver error decides.
func classify(hasIP, hasNS bool, lookupErr error) string {
	switch {
	case hasIP:
		return DNSResolves
	case hasNS:
		return DNSNoARecord
	}
	var de *net.DNSError
	if errors.As(lookupErr, &de) {
		if de.IsNotFound {
			return DNSNXDomain
		}
		return DNSServFail
	}
	if lookupErr != nil {
		return DNSServFail
	}
	return DNSNXDomain
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
