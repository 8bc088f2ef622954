// Package mxdns resolves mail-exchange hosts using github.com/miekg/dns.
// Its error taxonomy lets callers tell an empty answer (no mail exchange)
// apart from a query that timed out.
package mxdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"github.com/mailvet/mailvet/types"
)

var (
	// ErrNoRecords means the domain exists but publishes no MX records,
	// or the name does not exist at all (NXDOMAIN).
	ErrNoRecords = errors.New("mxdns: no MX records")

	// ErrTimeout means the query did not complete within the deadline.
	ErrTimeout = errors.New("mxdns: query timed out")

	// ErrServFail means every configured nameserver failed the query.
	ErrServFail = errors.New("mxdns: server failure")
)

// Config configures the resolver.
type Config struct {
	// Nameservers to query, as host:port. When empty the servers from
	// /etc/resolv.conf are used, falling back to public resolvers.
	Nameservers []string

	// Timeout per query. Default: 5s.
	Timeout time.Duration

	// Retries over the nameserver list for failed queries. Default: 2.
	Retries int
}

// Resolver looks up MX records over plain DNS.
type Resolver struct {
	cfg    Config
	client *mdns.Client
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if len(cfg.Nameservers) == 0 {
		cfg.Nameservers = systemNameservers()
	}
	return &Resolver{
		cfg:    cfg,
		client: &mdns.Client{Timeout: cfg.Timeout},
	}
}

// LookupMX returns the domain's mail-exchange hosts ordered by ascending
// preference. Trailing dots are stripped from hostnames.
func (r *Resolver) LookupMX(ctx context.Context, domain string) ([]types.MXHost, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(domain), mdns.TypeMX)
	m.RecursionDesired = true

	var lastErr error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		for _, server := range r.cfg.Nameservers {
			if err := ctx.Err(); err != nil {
				return nil, Classify(err)
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = err
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return hostsFromAnswer(resp)
			case mdns.RcodeNameError: // NXDOMAIN
				return nil, ErrNoRecords
			default:
				lastErr = fmt.Errorf("mxdns: rcode %s", mdns.RcodeToString[resp.Rcode])
			}
		}
	}

	return nil, Classify(lastErr)
}

func hostsFromAnswer(resp *mdns.Msg) ([]types.MXHost, error) {
	var hosts []types.MXHost
	for _, rr := range resp.Answer {
		mx, ok := rr.(*mdns.MX)
		if !ok {
			continue
		}
		host := strings.TrimSuffix(mx.Mx, ".")
		if host == "" {
			// RFC 7505 Null MX: the domain declares it accepts no mail.
			continue
		}
		hosts = append(hosts, types.MXHost{Host: host, Pref: mx.Preference})
	}
	if len(hosts) == 0 {
		return nil, ErrNoRecords
	}
	SortHosts(hosts)
	return hosts, nil
}

// SortHosts orders hosts by ascending preference, ties broken by hostname
// so repeated lookups are deterministic.
func SortHosts(hosts []types.MXHost) {
	sort.SliceStable(hosts, func(i, j int) bool {
		if hosts[i].Pref != hosts[j].Pref {
			return hosts[i].Pref < hosts[j].Pref
		}
		return hosts[i].Host < hosts[j].Host
	})
}

// Classify maps a transport or context error onto the package error
// taxonomy. A nil input means the nameserver loop ran dry without a
// definitive answer, which counts as a server failure.
func Classify(err error) error {
	if err == nil {
		return ErrServFail
	}
	if errors.Is(err, ErrNoRecords) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServFail) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrServFail, err)
}

// systemNameservers reads /etc/resolv.conf, falling back to well-known
// public resolvers when it is missing or empty.
func systemNameservers() []string {
	conf, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}
