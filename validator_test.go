package mailvet_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailvet/mailvet"
	"github.com/mailvet/mailvet/check"
	"github.com/mailvet/mailvet/internal/mxdns"
	"github.com/mailvet/mailvet/internal/smtppool"
	"github.com/mailvet/mailvet/types"
)

// countingProber answers every host with a fixed code and counts calls.
type countingProber struct {
	code  int
	err   error
	calls atomic.Int64
}

func (p *countingProber) Rcpt(_, _ string) (smtppool.Probe, error) {
	p.calls.Add(1)
	if p.err != nil {
		return smtppool.Probe{}, p.err
	}
	return smtppool.Probe{Code: p.code, Message: "scripted"}, nil
}

// countingTransport counts HTTP probes and always answers 200.
type countingTransport struct{ calls atomic.Int64 }

func (t *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func mxLookup(hosts []types.MXHost, err error) check.MXLookup {
	return func(_ context.Context, _ string) ([]types.MXHost, error) {
		return hosts, err
	}
}

func oneMX() []types.MXHost {
	return []types.MXHost{{Host: "mx.validdomain.example", Pref: 10}}
}

func TestNew_SyntaxOnly(t *testing.T) {
	v := mailvet.New()
	ctx := context.Background()

	out, err := v.Validate(ctx, "user@example.com", "")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Empty(t, out.Reason)
	assert.Len(t, out.Checks, 1)

	out, err = v.Validate(ctx, "bad-address", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonSyntax, out.Reason)
	assert.Equal(t, mailvet.StageSyntax, out.Stage)
}

func TestValidate_ZeroValueValidator(t *testing.T) {
	var v mailvet.Validator
	_, err := v.Validate(context.Background(), "user@example.com", "")
	assert.ErrorIs(t, err, mailvet.ErrNoChecksConfigured)
}

func TestWithSMTP_RequiresHeloDomain(t *testing.T) {
	v := mailvet.New().WithSMTP(mailvet.SMTPOptions{})
	_, err := v.Validate(context.Background(), "user@example.com", "")
	assert.ErrorIs(t, err, mailvet.ErrInvalidSMTPOptions)
}

func TestValidate_EndToEndAccepted(t *testing.T) {
	prober := &countingProber{code: 250}
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithWebsite(mailvet.WebsiteOptions{Client: &http.Client{Transport: &countingTransport{}}}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: prober})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "good@validdomain.example", "validdomain.example")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Empty(t, out.Reason)
	assert.Equal(t, int64(1), prober.calls.Load())
}

func TestBuilder_OrderDoesNotMatter(t *testing.T) {
	// SMTP configured before DNS must still use the DNS stage's lookup.
	lookups := 0
	lookup := func(_ context.Context, _ string) ([]types.MXHost, error) {
		lookups++
		return oneMX(), nil
	}
	prober := &countingProber{code: 250}
	v := mailvet.New().
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: prober}).
		WithDNS(mailvet.DNSOptions{Lookup: lookup})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, 1, lookups, "both stages must share one cached lookup")
	assert.Equal(t, int64(1), prober.calls.Load())
}

func TestValidate_NoMXNeverReachesSMTP(t *testing.T) {
	prober := &countingProber{code: 250}
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(nil, nil)}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: prober})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "user@nodomain.example", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonNoMailExchange, out.Reason)
	assert.Equal(t, mailvet.StageDNS, out.Stage)
	assert.Equal(t, int64(0), prober.calls.Load(), "SMTP stage must not run after a DNS rejection")
}

func TestValidate_DNSTimeoutDistinct(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(nil, mxdns.ErrTimeout)})

	out, err := v.Validate(context.Background(), "user@slowdomain.example", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonDNSTimeout, out.Reason)
	assert.NotEqual(t, mailvet.ReasonNoMailExchange, out.Reason)
}

func TestValidate_WebsiteSkippedWhenAbsent(t *testing.T) {
	transport := &countingTransport{}
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithWebsite(mailvet.WebsiteOptions{Client: &http.Client{Transport: transport}})

	out, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, int64(0), transport.calls.Load(), "no website given, no probe expected")

	_, err = v.Validate(context.Background(), "user@validdomain.example", "validdomain.example")
	require.NoError(t, err)
	assert.Equal(t, int64(1), transport.calls.Load())
}

func TestValidate_WebsiteUnreachableRejects(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	prober := &countingProber{code: 250}
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithWebsite(mailvet.WebsiteOptions{Client: client}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: prober})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "user@validdomain.example", "validdomain.example")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonWebsiteUnreachable, out.Reason)
	assert.Equal(t, mailvet.StageWebsite, out.Stage)
	assert.Equal(t, int64(0), prober.calls.Load())
}

func TestValidate_MailboxRejected(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: &countingProber{code: 550}})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "nobody@validdomain.example", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonMailboxRejected, out.Reason)
	assert.Equal(t, mailvet.StageSMTP, out.Stage)
}

func TestValidate_InconclusiveGetsBenefitOfDoubt(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithSMTP(mailvet.SMTPOptions{
			HeloDomain: "probe.test",
			Prober:     &countingProber{err: errors.New("connection refused")},
		})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	assert.True(t, out.Accepted, "blocked probes must not condemn the address")
	assert.Equal(t, mailvet.ReasonSMTPInconclusive, out.Reason)
}

func TestValidate_RejectInconclusivePolicy(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithSMTP(mailvet.SMTPOptions{
			HeloDomain:         "probe.test",
			Prober:             &countingProber{err: errors.New("connection refused")},
			RejectInconclusive: true,
		})
	defer func() { _ = v.Close() }()

	out, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonSMTPInconclusive, out.Reason)
}

func TestValidate_Idempotent(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: &countingProber{code: 250}})
	defer func() { _ = v.Close() }()

	first, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), "user@validdomain.example", "")
	require.NoError(t, err)
	assert.Equal(t, first.Accepted, second.Accepted)
	assert.Equal(t, first.Reason, second.Reason)
}

func TestValidate_ScreeningRejectsDisposable(t *testing.T) {
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithScreening()

	out, err := v.Validate(context.Background(), "user@mailinator.com", "")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonDisposableDomain, out.Reason)
	assert.Equal(t, mailvet.StageScreen, out.Stage)
}

func TestValidateAll_CollectsEverything(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	v := mailvet.New().
		WithDNS(mailvet.DNSOptions{Lookup: mxLookup(oneMX(), nil)}).
		WithWebsite(mailvet.WebsiteOptions{Client: client}).
		WithSMTP(mailvet.SMTPOptions{HeloDomain: "probe.test", Prober: &countingProber{code: 250}})
	defer func() { _ = v.Close() }()

	out, err := v.ValidateAll(context.Background(), "user@validdomain.example", "validdomain.example")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, mailvet.ReasonWebsiteUnreachable, out.Reason)
	assert.Len(t, out.Checks, 4, "all stages must report in ValidateAll")
}

func TestOutcome_Helpers(t *testing.T) {
	v := mailvet.New()
	out, err := v.Validate(context.Background(), "bad address", "")
	require.NoError(t, err)

	failed := out.FailedChecks()
	require.Len(t, failed, 1)
	assert.Equal(t, mailvet.StageSyntax, failed[0].Stage)

	cr, ok := out.CheckFor(mailvet.StageSyntax)
	assert.True(t, ok)
	assert.False(t, cr.Passed)

	_, ok = out.CheckFor(mailvet.StageDNS)
	assert.False(t, ok)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
