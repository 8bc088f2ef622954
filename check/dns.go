package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mailvet/mailvet/internal/mxdns"
	"github.com/mailvet/mailvet/internal/parse"
	"github.com/mailvet/mailvet/types"
)

// MXLookup resolves a domain's mail-exchange hosts.
// Implementations must honor ctx cancellation and deadlines.
type MXLookup func(ctx context.Context, domain string) ([]types.MXHost, error)

// DNSConfig configures the MX resolution stage.
type DNSConfig struct {
	// Timeout for the lookup. Zero means the lookup's own deadline applies.
	Timeout time.Duration
}

// DNSChecker verifies that the address's domain can receive mail at all.
// Its result distinguishes "no mail exchange" from "lookup timed out":
// the former is a hard rejection, the latter only means we could not tell.
type DNSChecker struct {
	cfg    DNSConfig
	lookup MXLookup
}

// NewDNSChecker creates the stage around the given lookup, typically a
// dnscache.Cache wrapping an mxdns.Resolver.
func NewDNSChecker(cfg DNSConfig, lookup MXLookup) *DNSChecker {
	return &DNSChecker{cfg: cfg, lookup: lookup}
}

func (c *DNSChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:   types.StageDNS,
			Reason:  types.ReasonSyntax,
			Details: "skipped: invalid email",
		}
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	hosts, err := c.lookup(ctx, email.Domain)
	if err != nil {
		if isTimeout(err) {
			return types.CheckResult{
				Stage:   types.StageDNS,
				Reason:  types.ReasonDNSTimeout,
				Details: fmt.Sprintf("MX lookup timed out: %v", err),
			}
		}
		return types.CheckResult{
			Stage:   types.StageDNS,
			Reason:  types.ReasonNoMailExchange,
			Details: fmt.Sprintf("MX lookup failed: %v", err),
		}
	}

	if len(hosts) == 0 {
		return types.CheckResult{
			Stage:   types.StageDNS,
			Reason:  types.ReasonNoMailExchange,
			Details: "no MX records found",
		}
	}

	mxdns.SortHosts(hosts)
	return types.CheckResult{
		Stage:   types.StageDNS,
		Passed:  true,
		Details: fmt.Sprintf("%d MX record(s) found", len(hosts)),
		MXHost:  hosts[0].Host,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, mxdns.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
