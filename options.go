package mailvet

import (
	"net/http"
	"time"

	"github.com/mailvet/mailvet/check"
)

// DNSOptions configures the MX resolution stage.
type DNSOptions struct {
	// Timeout is the maximum time for an MX lookup. Default: 5s.
	Timeout time.Duration
	// Nameservers override the system resolvers, as host:port.
	Nameservers []string
	// CacheTTL is how long MX answers (including failures) are reused.
	// Default: 5m.
	CacheTTL time.Duration
	// Lookup replaces the real resolver. Test-oriented; when set,
	// Nameservers is ignored.
	Lookup check.MXLookup
}

func defaultDNSOptions() DNSOptions {
	return DNSOptions{
		Timeout:  5 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// ScreeningOptions configures the domain screening stage.
type ScreeningOptions struct {
	// RejectDisposable fails addresses on known disposable domains.
	// Default: true.
	RejectDisposable bool
	// SuggestTypos fills Suggestion for close matches of major
	// providers; it never fails an address. Default: true.
	SuggestTypos bool
	// TypoThreshold is the edit distance considered "close". Default: 2.
	TypoThreshold int
}

func defaultScreeningOptions() ScreeningOptions {
	return ScreeningOptions{
		RejectDisposable: true,
		SuggestTypos:     true,
		TypoThreshold:    2,
	}
}

// WebsiteOptions configures the website reachability stage.
type WebsiteOptions struct {
	// Timeout is the bound for one probe request. Default: 10s.
	Timeout time.Duration
	// Client replaces the probe's HTTP client. Test-oriented; when set,
	// Timeout is ignored.
	Client *http.Client
}

func defaultWebsiteOptions() WebsiteOptions {
	return WebsiteOptions{Timeout: 10 * time.Second}
}

// SMTPOptions configures the SMTP probe stage.
type SMTPOptions struct {
	// HeloDomain is the domain sent in EHLO. Required.
	HeloDomain string
	// MailFrom is the sender used in MAIL FROM. An empty string sends
	// the RFC null sender <>, the polite choice for existence probes.
	MailFrom string
	// ConnectTimeout is the maximum time for the TCP dial. Default: 5s.
	ConnectTimeout time.Duration
	// CommandTimeout is the maximum response time per SMTP command.
	// Default: 10s.
	CommandTimeout time.Duration
	// MaxMXHosts caps how many MX hosts are tried in preference order.
	// Default: 2.
	MaxMXHosts int
	// Port is the SMTP port. Default: "25".
	Port string
	// MaxConnsPerHost is the idle pooled connection cap per MX host.
	// Default: 3.
	MaxConnsPerHost int
	// RejectInconclusive treats an inconclusive probe as a rejection
	// instead of giving the benefit of the doubt. Default: false.
	RejectInconclusive bool
	// Prober replaces the pooled SMTP client. Test-oriented.
	Prober check.RcptProber
}

func (o *SMTPOptions) applyDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.CommandTimeout == 0 {
		o.CommandTimeout = 10 * time.Second
	}
	if o.MaxMXHosts == 0 {
		o.MaxMXHosts = 2
	}
	if o.Port == "" {
		o.Port = "25"
	}
	if o.MaxConnsPerHost == 0 {
		o.MaxConnsPerHost = 3
	}
}
