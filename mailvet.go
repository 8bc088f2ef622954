// Package mailvet validates email addresses at the syntax, DNS, website
// and SMTP levels, and ships a bulk runner for CSVs of addresses.
//
// Single address, syntax only:
//
//	out, err := mailvet.New().Validate(ctx, "user@example.com", "")
//
// Full pipeline:
//
//	v := mailvet.New().
//	    WithDNS().
//	    WithWebsite().
//	    WithSMTP(mailvet.SMTPOptions{
//	        HeloDomain: "myapp.com",
//	    })
//	defer v.Close()
//
//	out, err := v.Validate(ctx, "user@example.com", "example.com")
//
// The pipeline short-circuits: a stage that rejects stops the run, and
// the Outcome says which stage decided and why. An SMTP probe that no
// host answers definitively counts as accepted with reason
// "smtp-inconclusive" unless SMTPOptions.RejectInconclusive is set.
package mailvet

import "github.com/mailvet/mailvet/types"

// CheckResult is a re-export from the types package so that consumers
// don't need to import the types package directly.
type CheckResult = types.CheckResult

// Stage and Reason are re-exports.
type (
	Stage  = types.Stage
	Reason = types.Reason
)

// Stage constants re-exported.
const (
	StageSyntax  = types.StageSyntax
	StageDNS     = types.StageDNS
	StageScreen  = types.StageScreen
	StageWebsite = types.StageWebsite
	StageSMTP    = types.StageSMTP
)

// Reason constants re-exported.
const (
	ReasonSyntax             = types.ReasonSyntax
	ReasonNoMailExchange     = types.ReasonNoMailExchange
	ReasonDNSTimeout         = types.ReasonDNSTimeout
	ReasonDisposableDomain   = types.ReasonDisposableDomain
	ReasonWebsiteUnreachable = types.ReasonWebsiteUnreachable
	ReasonMailboxRejected    = types.ReasonMailboxRejected
	ReasonSMTPInconclusive   = types.ReasonSMTPInconclusive
	ReasonInternalError      = types.ReasonInternalError
)
