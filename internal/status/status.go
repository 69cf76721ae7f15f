// Package status maps test-runner outcomes and marker identifiers to the
// numeric vocabulary of the TestRail API.
//
// TestRail tracks results with fixed numeric status codes (see
// http://docs.gurock.com/testrail-api2/reference-statuses); the runner reports
// outcomes as strings. This package owns the mapping between the two, plus the
// normalization of case and defect identifiers supplied via test markers.
package status

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Status is a TestRail result status code.
type Status int

// TestRail status codes. InfraError is a custom status configured on the
// TestRail instance to separate environment/tooling failures from ordinary
// test-assertion failures.
const (
	Passed        Status = 1
	Blocked       Status = 2
	Untested      Status = 3
	Retest        Status = 4
	Failed        Status = 5
	Deferred      Status = 6
	NotApplicable Status = 7
	InfraError    Status = 8
)

// outcomeStatus maps runner outcome strings to TestRail status codes.
// Skipped tests are reported as Blocked, matching how manual testers use
// that status for tests that could not be executed.
var outcomeStatus = map[string]Status{
	"passed":         Passed,
	"failed":         Failed,
	"skipped":        Blocked,
	"deferred":       Deferred,
	"not_applicable": NotApplicable,
	"infra_error":    InfraError,
}

// FromOutcome returns the TestRail status code for a runner outcome string.
// The runner vocabulary is fixed, so an unknown outcome indicates a caller
// bug and is returned as an error rather than silently defaulted.
func FromOutcome(outcome string) (Status, error) {
	s, ok := outcomeStatus[outcome]
	if !ok {
		return 0, fmt.Errorf("unknown test outcome %q", outcome)
	}
	return s, nil
}

// trailingDigits matches the trailing run of digits in a case identifier.
// TestRail case ids are conventionally prefixed, e.g. "C123".
var trailingDigits = regexp.MustCompile(`([0-9]+)$`)

// ParseCaseIDs extracts numeric case ids from marker identifier strings
// ("C123" -> 123). Every entry must end in a run of digits; anything else is
// a marker authoring error and fails the whole list.
func ParseCaseIDs(raw []string) ([]int, error) {
	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		m := trailingDigits.FindString(strings.TrimSpace(r))
		if m == "" {
			return nil, fmt.Errorf("case id %q has no trailing digits", r)
		}
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("case id %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseDefectIDs normalizes defect identifiers from markers. Defect ids are
// free-form strings ("PF-513", "BR-3255"), so normalization is just trimming.
func ParseDefectIDs(raw []string) []string {
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, strings.TrimSpace(r))
	}
	return ids
}

// StripCasePrefix removes a single leading "C" from a case id token as
// reported in TestRail error messages. Bare numeric tokens pass through
// unchanged. Returns the numeric id, or an error for tokens that are not a
// case id even after stripping (multi-character or unexpected prefixes are
// rejected rather than guessed at).
func StripCasePrefix(token string) (int, error) {
	t := strings.TrimSpace(token)
	t = strings.TrimPrefix(t, "C")
	id, err := strconv.Atoi(t)
	if err != nil {
		return 0, fmt.Errorf("invalid case id token %q", token)
	}
	return id, nil
}
