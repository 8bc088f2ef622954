package mailvet

import "github.com/mailvet/mailvet/types"

// Outcome is the full result of validating one address.
// Accepted with an empty Reason means every stage passed cleanly;
// Accepted with Reason "smtp-inconclusive" means the address got the
// benefit of the doubt. Stage names the check that made the decision.
type Outcome struct {
	Email    string        `json:"email"`
	Website  string        `json:"website,omitempty"`
	Accepted bool          `json:"accepted"`
	Reason   Reason        `json:"reason,omitempty"`
	Stage    Stage         `json:"stage,omitempty"`
	Checks   []CheckResult `json:"checks"`
}

// FailedChecks returns the CheckResults that did not pass.
func (o Outcome) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range o.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// CheckFor returns the CheckResult for the given stage, if that stage ran.
func (o Outcome) CheckFor(stage Stage) (CheckResult, bool) {
	for _, c := range o.Checks {
		if c.Stage == stage {
			return c, true
		}
	}
	return types.CheckResult{}, false
}
