package mailvet

import (
	"context"
	"sync"
	"time"

	"github.com/mailvet/mailvet/check"
	"github.com/mailvet/mailvet/internal/dnscache"
	"github.com/mailvet/mailvet/internal/mxdns"
	"github.com/mailvet/mailvet/internal/parse"
	"github.com/mailvet/mailvet/internal/smtppool"
	"github.com/mailvet/mailvet/types"
)

// Validator runs the validation pipeline. Build one with New and the
// With* methods; stages run in a fixed order (syntax, DNS, screening,
// website, SMTP) regardless of the order they were configured in.
// When SMTP validation is enabled, call Close when done to release
// pooled connections. All state is scoped to the Validator, so separate
// batches never share caches.
type Validator struct {
	syntax  *check.SyntaxChecker
	dns     *check.DNSChecker
	screen  *check.ScreenChecker
	website *check.WebsiteChecker
	smtp    *check.SMTPChecker

	rejectInconclusive bool

	err error // configuration error, surfaced by Validate

	// The MX cache is built on first lookup so that WithDNS and WithSMTP
	// can be chained in any order.
	dnsOpts  DNSOptions
	dnsOnce  sync.Once
	dnsCache *dnscache.Cache

	smtpPool *smtppool.Pool
}

// New creates a Validator that performs syntax checking only. Syntax
// always runs and cannot be disabled: the later stages require a parsed
// address.
func New() *Validator {
	return &Validator{
		syntax:  check.NewSyntaxChecker(),
		dnsOpts: defaultDNSOptions(),
	}
}

// WithDNS enables MX resolution. The lookup result is cached and shared
// with the SMTP stage.
func (v *Validator) WithDNS(opts ...DNSOptions) *Validator {
	o := defaultDNSOptions()
	if len(opts) > 0 {
		merged := opts[0]
		if merged.Timeout == 0 {
			merged.Timeout = o.Timeout
		}
		if merged.CacheTTL == 0 {
			merged.CacheTTL = o.CacheTTL
		}
		o = merged
	}
	v.dnsOpts = o
	v.dns = check.NewDNSChecker(check.DNSConfig{Timeout: o.Timeout}, v.lookupMX)
	return v
}

// WithScreening enables disposable-domain rejection and typo suggestions.
func (v *Validator) WithScreening(opts ...ScreeningOptions) *Validator {
	o := defaultScreeningOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	v.screen = check.NewScreenChecker(check.ScreenConfig{
		RejectDisposable: o.RejectDisposable,
		SuggestTypos:     o.SuggestTypos,
		TypoThreshold:    o.TypoThreshold,
	})
	return v
}

// WithWebsite enables the website reachability probe. The stage only
// runs for calls that actually supply a website.
func (v *Validator) WithWebsite(opts ...WebsiteOptions) *Validator {
	o := defaultWebsiteOptions()
	if len(opts) > 0 {
		merged := opts[0]
		if merged.Timeout == 0 {
			merged.Timeout = o.Timeout
		}
		o = merged
	}
	if o.Client != nil {
		v.website = check.NewWebsiteCheckerWithClient(o.Client)
	} else {
		v.website = check.NewWebsiteChecker(check.WebsiteConfig{Timeout: o.Timeout})
	}
	return v
}

// WithSMTP enables the RCPT TO existence probe. HeloDomain is required;
// an empty MailFrom probes with the null sender. Connections are pooled
// per MX host, so call Close when done.
func (v *Validator) WithSMTP(opts SMTPOptions) *Validator {
	if opts.HeloDomain == "" {
		v.err = ErrInvalidSMTPOptions
		return v
	}
	opts.applyDefaults()
	v.rejectInconclusive = opts.RejectInconclusive

	prober := opts.Prober
	if prober == nil {
		v.smtpPool = smtppool.New(smtppool.Config{
			HeloDomain:      opts.HeloDomain,
			MailFrom:        opts.MailFrom,
			ConnectTimeout:  opts.ConnectTimeout,
			CommandTimeout:  opts.CommandTimeout,
			Port:            opts.Port,
			MaxConnsPerHost: opts.MaxConnsPerHost,
		})
		prober = v.smtpPool
	}

	// SMTP shares the MX cache with the DNS stage so records are fetched
	// once per domain.
	v.smtp = check.NewSMTPChecker(
		check.SMTPConfig{MaxMXHosts: opts.MaxMXHosts},
		v.lookupMX,
		prober,
	)
	return v
}

// Close releases pooled SMTP connections. Safe to call multiple times
// and without SMTP configured.
func (v *Validator) Close() error {
	if v.smtpPool != nil {
		return v.smtpPool.Close()
	}
	return nil
}

// lookupMX is the MX lookup handed to the DNS and SMTP stages. The
// backing cache is constructed from the final DNS options on first use,
// after the builder chain has run.
func (v *Validator) lookupMX(ctx context.Context, domain string) ([]types.MXHost, error) {
	v.dnsOnce.Do(func() {
		o := v.dnsOpts
		lookup := o.Lookup
		if lookup == nil {
			lookup = mxdns.New(mxdns.Config{
				Nameservers: o.Nameservers,
				Timeout:     o.Timeout,
			}).LookupMX
		}
		v.dnsCache = dnscache.New(dnscache.Lookup(lookup), o.Timeout, o.CacheTTL)
	})
	return v.dnsCache.LookupMX(ctx, domain)
}

// Validate runs the configured stages against one address. The website
// argument may be empty; the website stage is skipped for such calls.
// Validation failures are data, not errors: the error return is reserved
// for configuration mistakes.
func (v *Validator) Validate(ctx context.Context, email, website string) (Outcome, error) {
	return v.run(ctx, email, website, true)
}

// ValidateAll runs every configured stage without short-circuiting,
// which tells the caller everything that is wrong with an address.
// The Accepted field follows the same policy as Validate.
func (v *Validator) ValidateAll(ctx context.Context, email, website string) (Outcome, error) {
	return v.run(ctx, email, website, false)
}

func (v *Validator) run(ctx context.Context, email, website string, shortCircuit bool) (Outcome, error) {
	if v.err != nil {
		return Outcome{}, v.err
	}
	if v.syntax == nil {
		return Outcome{}, ErrNoChecksConfigured
	}

	parsed := parse.NewEmail(email)
	out := Outcome{Email: email, Website: website, Accepted: true}

	reject := func(cr types.CheckResult) {
		if out.Accepted {
			out.Accepted = false
			out.Reason = cr.Reason
			out.Stage = cr.Stage
		}
	}

	cr := v.syntax.Check(ctx, parsed)
	out.Checks = append(out.Checks, cr)
	if !cr.Passed {
		reject(cr)
		// Nothing downstream can work with an unparsed address.
		return out, nil
	}

	if v.dns != nil {
		cr = v.dns.Check(ctx, parsed)
		out.Checks = append(out.Checks, cr)
		if !cr.Passed {
			reject(cr)
			if shortCircuit {
				return out, nil
			}
		}
	}

	if v.screen != nil {
		cr = v.screen.Check(ctx, parsed)
		out.Checks = append(out.Checks, cr)
		if !cr.Passed {
			reject(cr)
			if shortCircuit {
				return out, nil
			}
		}
	}

	if v.website != nil && website != "" {
		cr = v.website.Check(ctx, website)
		out.Checks = append(out.Checks, cr)
		if !cr.Passed {
			reject(cr)
			if shortCircuit {
				return out, nil
			}
		}
	}

	if v.smtp != nil && (out.Accepted || !shortCircuit) {
		cr = v.smtp.Check(ctx, parsed)
		out.Checks = append(out.Checks, cr)
		switch {
		case cr.Passed:
			// definitive accept
		case cr.Reason == types.ReasonSMTPInconclusive && !v.rejectInconclusive:
			// Benefit of the doubt: servers that refuse probes must not
			// condemn their users' addresses.
			if out.Accepted {
				out.Reason = cr.Reason
				out.Stage = cr.Stage
			}
		default:
			reject(cr)
		}
	}

	return out, nil
}

// ValidatePipeline is the single-call convenience: it builds the full
// default pipeline (DNS, website when given, SMTP with the null sender),
// validates one address and reports whether it was accepted and, if not,
// why. heloDomain is announced to the remote servers.
func ValidatePipeline(ctx context.Context, email, website, heloDomain string) (bool, Reason) {
	v := New().
		WithDNS().
		WithWebsite().
		WithSMTP(SMTPOptions{HeloDomain: heloDomain})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(ctx, email, website)
	if err != nil {
		return false, types.ReasonInternalError
	}
	return out.Accepted, out.Reason
}

// ValidateTimeout mirrors ValidatePipeline with an overall deadline.
func ValidateTimeout(email, website, heloDomain string, timeout time.Duration) (bool, Reason) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ValidatePipeline(ctx, email, website, heloDomain)
}
