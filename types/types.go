// Package types contains the shared vocabulary for mailvet.
// This package does not import anything from other mailvet packages
// to avoid circular imports.
package types

// Stage identifies the validation stage that produced a result.
type Stage = string

const (
	StageSyntax  Stage = "syntax"
	StageDNS     Stage = "dns"
	StageScreen  Stage = "screen"
	StageWebsite Stage = "website"
	StageSMTP    Stage = "smtp"
)

// Reason is a stable machine-readable explanation for a rejection or an
// inconclusive result. These strings end up in the bulk fail file, so they
// must not change between releases.
type Reason = string

const (
	ReasonSyntax             Reason = "syntax"
	ReasonNoMailExchange     Reason = "no-mail-exchange"
	ReasonDNSTimeout         Reason = "dns-timeout"
	ReasonDisposableDomain   Reason = "disposable-domain"
	ReasonWebsiteUnreachable Reason = "website-unreachable"
	ReasonMailboxRejected    Reason = "mailbox-rejected"
	ReasonSMTPInconclusive   Reason = "smtp-inconclusive"
	ReasonInternalError      Reason = "internal-error"
)

// MXHost is a single mail-exchange host. Slices of MXHost are always
// ordered by ascending Pref, most preferred first.
type MXHost struct {
	Host string `json:"host"`
	Pref uint16 `json:"pref"`
}

// ProbeStatus is the tri-state outcome of an SMTP RCPT probe.
type ProbeStatus int

const (
	// ProbeInconclusive means no contacted host gave a definitive answer.
	ProbeInconclusive ProbeStatus = iota
	// ProbeAccepted means a host answered RCPT TO with a 2xx code.
	ProbeAccepted
	// ProbeRejected means a host answered with a 5xx code.
	ProbeRejected
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeAccepted:
		return "accepted"
	case ProbeRejected:
		return "rejected"
	default:
		return "inconclusive"
	}
}

// CheckResult is the outcome of a single validation stage.
type CheckResult struct {
	Stage      Stage  `json:"stage"`
	Passed     bool   `json:"passed"`
	Reason     Reason `json:"reason,omitempty"`
	Details    string `json:"details,omitempty"`
	MXHost     string `json:"mxHost,omitempty"`
	SMTPCode   int    `json:"smtpCode,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
