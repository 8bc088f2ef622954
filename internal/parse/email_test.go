package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailvet/mailvet/internal/parse"
)

func TestNewEmail_ASCII(t *testing.T) {
	e := parse.NewEmail("user@example.com")
	assert.True(t, e.Valid)
	assert.Equal(t, "user", e.Local)
	assert.Equal(t, "example.com", e.Domain)
	assert.Equal(t, "example.com", e.DomainUnicode)
	assert.Equal(t, "user@example.com", e.Addr())
}

func TestNewEmail_TrimsWhitespace(t *testing.T) {
	e := parse.NewEmail("  user@example.com  ")
	assert.True(t, e.Valid)
	assert.Equal(t, "user", e.Local)
	assert.Equal(t, "user@example.com", e.Raw)
}

func TestNewEmail_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"noatsign",
		"@nodomain",
		"nolocal@",
	} {
		e := parse.NewEmail(raw)
		assert.False(t, e.Valid, "expected invalid for %q", raw)
	}
}

func TestNewEmail_UnicodeDomain(t *testing.T) {
	// Unicode domain becomes Punycode in Domain, stays Unicode in DomainUnicode.
	e := parse.NewEmail("user@münchen.de")
	assert.True(t, e.Valid)
	assert.Equal(t, "xn--mnchen-3ya.de", e.Domain)
	assert.Equal(t, "münchen.de", e.DomainUnicode)
	assert.Equal(t, "user@xn--mnchen-3ya.de", e.Addr())
}

func TestNewEmail_PunycodeDomain(t *testing.T) {
	e := parse.NewEmail("user@xn--mnchen-3ya.de")
	assert.True(t, e.Valid)
	assert.Equal(t, "xn--mnchen-3ya.de", e.Domain)
	assert.Equal(t, "münchen.de", e.DomainUnicode)
}

func TestNewEmail_UnicodeLocal(t *testing.T) {
	// RFC 6531 SMTPUTF8 local part; net/mail rejects it, the fallback must not.
	e := parse.NewEmail("用户@example.com")
	assert.True(t, e.Valid)
	assert.Equal(t, "用户", e.Local)
	assert.Equal(t, "example.com", e.Domain)
}

func TestNewEmail_BothUnicode(t *testing.T) {
	e := parse.NewEmail("用户@münchen.de")
	assert.True(t, e.Valid)
	assert.Equal(t, "用户", e.Local)
	assert.Equal(t, "xn--mnchen-3ya.de", e.Domain)
	assert.Equal(t, "münchen.de", e.DomainUnicode)
}

func TestNewEmail_DomainLowercased(t *testing.T) {
	e := parse.NewEmail("user@EXAMPLE.COM")
	assert.True(t, e.Valid)
	assert.Equal(t, "example.com", e.Domain)
}
