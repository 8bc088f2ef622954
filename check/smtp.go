package check

import (
	"context"
	"fmt"

	"github.com/mailvet/mailvet/internal/mxdns"
	"github.com/mailvet/mailvet/internal/parse"
	"github.com/mailvet/mailvet/internal/smtppool"
	"github.com/mailvet/mailvet/types"
)

// RcptProber performs the RCPT TO dialogue against one MX host.
// *smtppool.Pool is the production implementation.
type RcptProber interface {
	Rcpt(mxHost, to string) (smtppool.Probe, error)
}

// SMTPConfig configures the SMTP probe stage.
type SMTPConfig struct {
	// MaxMXHosts caps how many hosts are attempted. Zero means all.
	MaxMXHosts int
}

// SMTPChecker asks the domain's mail exchangers whether the mailbox
// exists. Hosts are tried strictly in ascending preference order, each at
// most once; the first definitive 2xx or 5xx answer ends the probe. When
// every host is exhausted without one, the result is inconclusive rather
// than failed.
type SMTPChecker struct {
	cfg    SMTPConfig
	lookup MXLookup
	prober RcptProber
}

// NewSMTPChecker creates the stage. The lookup is normally the same
// dnscache-backed one the DNS stage uses, so MX records are fetched once
// per domain.
func NewSMTPChecker(cfg SMTPConfig, lookup MXLookup, prober RcptProber) *SMTPChecker {
	return &SMTPChecker{cfg: cfg, lookup: lookup, prober: prober}
}

func (c *SMTPChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:   types.StageSMTP,
			Reason:  types.ReasonSyntax,
			Details: "skipped: invalid email",
		}
	}

	hosts, err := c.lookup(ctx, email.Domain)
	if err != nil || len(hosts) == 0 {
		details := "no MX records found"
		if err != nil {
			details = fmt.Sprintf("MX lookup failed: %v", err)
		}
		return types.CheckResult{
			Stage:   types.StageSMTP,
			Reason:  types.ReasonNoMailExchange,
			Details: details,
		}
	}
	mxdns.SortHosts(hosts)

	maxHosts := c.cfg.MaxMXHosts
	if maxHosts <= 0 || maxHosts > len(hosts) {
		maxHosts = len(hosts)
	}

	var lastDiag string
	for _, host := range hosts[:maxHosts] {
		select {
		case <-ctx.Done():
			return types.CheckResult{
				Stage:   types.StageSMTP,
				Reason:  types.ReasonSMTPInconclusive,
				Details: "context cancelled",
			}
		default:
		}

		probe, err := c.prober.Rcpt(host.Host, email.Addr())
		if err != nil {
			lastDiag = err.Error()
			continue
		}

		switch status(probe.Code) {
		case types.ProbeRejected:
			return types.CheckResult{
				Stage:    types.StageSMTP,
				Reason:   types.ReasonMailboxRejected,
				Details:  fmt.Sprintf("RCPT rejected: %s", probe.Message),
				MXHost:   host.Host,
				SMTPCode: probe.Code,
			}
		case types.ProbeAccepted:
			return types.CheckResult{
				Stage:    types.StageSMTP,
				Passed:   true,
				Details:  "RCPT TO accepted",
				MXHost:   host.Host,
				SMTPCode: probe.Code,
			}
		default:
			lastDiag = fmt.Sprintf("%d %s", probe.Code, probe.Message)
			if probe.Banner != "" {
				lastDiag += " (banner: " + probe.Banner + ")"
			}
		}
	}

	return types.CheckResult{
		Stage:   types.StageSMTP,
		Reason:  types.ReasonSMTPInconclusive,
		Details: fmt.Sprintf("no definitive answer from any MX host: %s", lastDiag),
	}
}

// status maps an SMTP reply code to the tri-state probe outcome:
// 2xx accepted, 5xx rejected, everything else inconclusive.
func status(code int) types.ProbeStatus {
	switch {
	case code >= 200 && code < 300:
		return types.ProbeAccepted
	case code >= 500:
		return types.ProbeRejected
	default:
		return types.ProbeInconclusive
	}
}
