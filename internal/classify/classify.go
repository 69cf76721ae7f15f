// Package classify provides best-effort classification of TestRail batch
// rejection messages.
//
// TestRail reports batch validation failures as free text, so recovery has to
// work from string matching. The rules live here, separate from the publish
// flow, so they can be tested and evolved on their own.
package classify

import (
	"regexp"
	"strings"
)

// InfraMarker is the substring that identifies an infrastructure/tooling
// failure in test output or service error text, as opposed to an ordinary
// test-assertion failure.
const InfraMarker = "TerraformException"

// Kind names the two recovery paths for a rejected batch.
type Kind int

const (
	// KindInfraError: the rejection text names cases that failed with an
	// infrastructure exception. Those cases are resubmitted individually
	// with the dedicated infra-error status.
	KindInfraError Kind = iota

	// KindInvalidCase: a generic rejection, usually naming case ids the
	// target run does not accept. Offending results are dropped and
	// reported individually as failed.
	KindInvalidCase
)

// infraPattern extracts (case id, message) pairs from rejection text.
// Error text often arrives JSON-escaped, so both a literal "\n" sequence and
// a real newline terminate the message.
var infraPattern = regexp.MustCompile(`case (\d+).*?` + InfraMarker + `: (.+?)(?:\\n|\n)`)

// Classify names the recovery path for a batch rejection message.
func Classify(msg string) Kind {
	if len(InfraErrors(msg)) > 0 {
		return KindInfraError
	}
	return KindInvalidCase
}

// InfraErrors extracts infrastructure failures from a rejection message,
// keyed by the case id token as it appears in the text.
func InfraErrors(msg string) map[string]string {
	errs := make(map[string]string)
	for _, m := range infraPattern.FindAllStringSubmatch(msg, -1) {
		errs[m[1]] = m[2]
	}
	return errs
}

// InvalidCaseIDs extracts the case id tokens named in a generic rejection
// message. The format is "... (case 17 )...": fragments are delimited by
// closing parentheses, and the token follows the literal "case ". Tokens are
// returned as they appear; prefix stripping is the caller's concern.
func InvalidCaseIDs(msg string) []string {
	var ids []string
	for _, part := range strings.Split(msg, ")") {
		if !strings.Contains(part, "case ") {
			continue
		}
		after := strings.SplitN(part, "case ", 2)[1]
		token := strings.SplitN(after, " ", 2)[0]
		if token != "" {
			ids = append(ids, token)
		}
	}
	return ids
}
