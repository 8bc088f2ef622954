// Package parse turns candidate address strings into the Email value type
// that the validation stages operate on. Stages never see a malformed
// address: parsing either succeeds fully or yields Valid=false.
package parse

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// Email is a parsed email address.
type Email struct {
	Raw           string // original input, trimmed
	Local         string // part before the last @
	Domain        string // part after the last @, ASCII/Punycode form (for DNS/SMTP)
	DomainUnicode string // same domain in Unicode form (for display and typo matching)
	Valid         bool   // false when Raw could not be parsed
}

// Addr returns the address in the form suitable for the SMTP wire:
// the original local part with the ASCII/Punycode domain.
func (e Email) Addr() string {
	if !e.Valid {
		return e.Raw
	}
	return e.Local + "@" + e.Domain
}

// NewEmail parses the given string. Raw is always populated, even on
// failure. Internationalized local parts (RFC 6531 / SMTPUTF8) and
// internationalized domains (IDNA2008) are supported.
func NewEmail(raw string) Email {
	raw = strings.TrimSpace(raw)

	// net/mail handles the ASCII grammar including quoted local parts.
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		addr, err = mail.ParseAddress("<" + raw + ">")
	}
	if err != nil {
		// net/mail rejects Unicode local parts, so fall back to splitting
		// on the last @ ourselves.
		return splitFallback(raw)
	}

	// Quoted local parts may themselves contain @; keep the last separator.
	i := strings.LastIndex(addr.Address, "@")
	if i < 1 || i == len(addr.Address)-1 {
		return Email{Raw: raw}
	}
	return withDomainForms(raw, addr.Address[:i], addr.Address[i+1:])
}

func splitFallback(raw string) Email {
	i := strings.LastIndex(raw, "@")
	if i < 1 || i == len(raw)-1 {
		return Email{Raw: raw}
	}
	return withDomainForms(raw, raw[:i], raw[i+1:])
}

// withDomainForms fills in both domain representations. The ASCII form is
// what DNS and SMTP see; the Unicode form is what humans see.
func withDomainForms(raw, local, domain string) Email {
	domain = strings.ToLower(domain)

	ascii, unicode, ok := domainForms(domain)
	if !ok {
		return Email{Raw: raw}
	}

	return Email{
		Raw:           raw,
		Local:         local,
		Domain:        ascii,
		DomainUnicode: unicode,
		Valid:         true,
	}
}

func domainForms(domain string) (ascii, unicode string, ok bool) {
	if isASCII(domain) {
		// Already-encoded Punycode labels still get a Unicode display form.
		u, err := idna.Display.ToUnicode(domain)
		if err != nil {
			u = domain
		}
		return domain, u, true
	}

	a, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", "", false
	}
	return a, domain, true
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
