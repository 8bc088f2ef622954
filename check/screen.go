package check

import (
	"context"
	"strings"

	"github.com/mailvet/mailvet/internal/disposable"
	"github.com/mailvet/mailvet/internal/levenshtein"
	"github.com/mailvet/mailvet/internal/parse"
	"github.com/mailvet/mailvet/types"
)

// ScreenConfig configures domain screening.
type ScreenConfig struct {
	RejectDisposable bool
	SuggestTypos     bool
	TypoThreshold    int
}

// ScreenChecker rejects disposable-mail domains and flags likely typos of
// major providers. A typo suspicion never fails the check, it only fills
// the Suggestion field.
type ScreenChecker struct {
	cfg       ScreenConfig
	providers []string
}

// wellKnownProviders are the domains the typo matcher compares against.
var wellKnownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
	"comcast.net", "att.net", "verizon.net",
	"web.de", "orange.fr", "free.fr",
}

func NewScreenChecker(cfg ScreenConfig) *ScreenChecker {
	if cfg.TypoThreshold <= 0 {
		cfg.TypoThreshold = 2
	}
	return &ScreenChecker{cfg: cfg, providers: wellKnownProviders}
}

func (c *ScreenChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:   types.StageScreen,
			Reason:  types.ReasonSyntax,
			Details: "skipped: invalid email",
		}
	}

	// The disposable list is ASCII; typo matching works better on the
	// Unicode form.
	asciiDomain := strings.ToLower(email.Domain)
	unicodeDomain := strings.ToLower(email.DomainUnicode)

	if c.cfg.RejectDisposable && disposable.IsDisposable(asciiDomain) {
		return types.CheckResult{
			Stage:   types.StageScreen,
			Reason:  types.ReasonDisposableDomain,
			Details: "disposable email domain",
		}
	}

	if c.cfg.SuggestTypos {
		if suggestion := c.nearestProvider(unicodeDomain); suggestion != "" {
			return types.CheckResult{
				Stage:      types.StageScreen,
				Passed:     true,
				Details:    "possible typo in domain",
				Suggestion: suggestion,
			}
		}
	}

	return types.CheckResult{Stage: types.StageScreen, Passed: true, Details: "domain ok"}
}

// nearestProvider returns the closest well-known provider within the typo
// threshold, or "" when the domain is an exact match or nothing is close.
func (c *ScreenChecker) nearestProvider(domain string) string {
	best := c.cfg.TypoThreshold + 1
	match := ""
	for _, provider := range c.providers {
		if domain == provider {
			return ""
		}
		if d := levenshtein.Distance(domain, provider); d < best {
			best = d
			match = provider
		}
	}
	if best > c.cfg.TypoThreshold {
		return ""
	}
	return match
}
