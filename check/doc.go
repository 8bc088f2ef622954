// Package check contains the individual validation stages for mailvet.
// Each stage consumes a parsed address (or, for the website probe, a site
// string) and produces a types.CheckResult. The stages can be used
// directly, but the usual entry point is the pipeline builder in the
// github.com/mailvet/mailvet package.
package check
