package check

import (
	"context"
	"strings"
	"unicode"

	"github.com/mailvet/mailvet/internal/parse"
	"github.com/mailvet/mailvet/types"
)

// SyntaxChecker validates address grammar per RFC 5321/5322, with
// RFC 6531 (SMTPUTF8) local parts and IDNA2008 domains allowed.
// It is a pure function of its input and never panics.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

func (c *SyntaxChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	fail := func(details string) types.CheckResult {
		return types.CheckResult{
			Stage:   types.StageSyntax,
			Reason:  types.ReasonSyntax,
			Details: details,
		}
	}

	if email.Raw == "" {
		return fail("empty email address")
	}
	if !email.Valid {
		return fail("malformed email address")
	}

	// RFC 5321 length limits.
	if len(email.Raw) > 254 {
		return fail("address exceeds 254 characters")
	}
	if len(email.Local) > 64 {
		return fail("local part exceeds 64 characters")
	}

	// net/mail strips quotes during parsing, so quoted form is detected
	// on the raw input; inside quotes any printable character goes.
	if !quotedLocal(email.Raw) {
		if details := checkLocal(email.Local); details != "" {
			return fail(details)
		}
	}

	// The Unicode form reads better in error messages; IDNA2008
	// validation already happened during parsing.
	if details := checkDomain(email.DomainUnicode); details != "" {
		return fail(details)
	}

	return types.CheckResult{Stage: types.StageSyntax, Passed: true, Details: "syntax ok"}
}

func quotedLocal(raw string) bool {
	i := strings.LastIndex(raw, "@")
	if i < 1 {
		return false
	}
	local := raw[:i]
	return strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`)
}

// checkLocal returns a description of the first problem in the local
// part, or "" when it is acceptable.
func checkLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}

	if strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`) {
		return ""
	}

	const asciiSpecial = "!#$%&'*+/=?^_`{|}~-."

	for _, ch := range local {
		if ch > 127 {
			// SMTPUTF8 allows non-ASCII, control characters excepted.
			if unicode.IsControl(ch) {
				return "local part contains control character"
			}
			continue
		}
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		if !strings.ContainsRune(asciiSpecial, ch) {
			return "local part contains invalid character: " + string(ch)
		}
	}

	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}

	return ""
}

// checkDomain validates the Unicode form of the domain.
func checkDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}

	// IP literal: [192.0.2.1]. Accepted without deeper validation.
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return ""
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "domain must have at least two labels"
	}

	for _, label := range labels {
		if label == "" {
			return "domain contains empty label"
		}
		if len(label) > 63 {
			return "domain label exceeds 63 characters"
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "domain label cannot start or end with a hyphen"
		}
		for _, ch := range label {
			if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' {
				return "domain label contains invalid character: " + string(ch)
			}
		}
	}

	tld := labels[len(labels)-1]
	numeric := true
	for _, ch := range tld {
		if !unicode.IsDigit(ch) {
			numeric = false
			break
		}
	}
	if numeric {
		return "TLD cannot be all digits"
	}

	return ""
}
