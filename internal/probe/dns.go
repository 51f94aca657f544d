package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// DNS classes reported in Raw.Output by DNSChecker.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServFail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

// Resolver is the subset of *net.Resolver used for classification.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

type DNSStatus struct {
	Domain        string
	IPs           []net.IP
	Nameservers   []string
	Class         string
	ResolverError string
}

// DNSChecker classifies whether def.Target (a hostname or URL) resolves.
type DNSChecker struct {
	Resolver Resolver
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{Resolver: net.DefaultResolver}
}

func (d *DNSChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	s := d.Classify(ctx, extractHost(def.Target))
	if ctx.Err() != nil {
		return Raw{Output: s.Class}, ctx.Err()
	}
	return Raw{Output: s.Class}, nil
}

// Classify resolves domain and sorts the answer into one of the DNS classes.
func (d *DNSChecker) Classify(ctx context.Context, domain string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(domain)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}

	ips, err := d.Resolver.LookupIP(ctx, "ip", s.Domain)
	if err == nil && len(ips) > 0 {
		s.IPs = ips
		s.Class = DNSResolves
		return s
	}
	if err != nil {
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServFail
			}
		}
	}

	// a zone with nameservers but no address records is a different problem
	// from a name that does not exist at all
	if ns, err := d.Resolver.LookupNS(ctx, s.Domain); err == nil && len(ns) > 0 {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain || s.Class == "" {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		if s.ResolverError != "" {
			s.Class = DNSServFail
		} else {
			s.Class = DNSNXDomain
		}
	}
	return s
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
