package mailvet_test

import (
	"context"
	"fmt"

	"github.com/mailvet/mailvet"
)

func ExampleNew() {
	v := mailvet.New()
	out, _ := v.Validate(context.Background(), "user@example.com", "")
	fmt.Println(out.Accepted)
	// Output: true
}

func ExampleOutcome_FailedChecks() {
	v := mailvet.New()
	out, _ := v.Validate(context.Background(), "no-at-sign", "")
	for _, cr := range out.FailedChecks() {
		fmt.Printf("%s: %s\n", cr.Stage, cr.Reason)
	}
	// Output: syntax: syntax
}

func ExampleOutcome_CheckFor() {
	v := mailvet.New()
	out, _ := v.Validate(context.Background(), "user@example.com", "")
	if cr, ok := out.CheckFor(mailvet.StageSyntax); ok {
		fmt.Println(cr.Passed)
	}
	// Output: true
}
