// Package ingest adapts a `go test -json` event stream into the test items
// and per-test outcomes consumed by the reporter. It plays the role of the
// host test runner: collection comes from the parsed stream plus the case
// map, and each finished test becomes one result callback.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// TestEvent is one event of a `go test -json` stream.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// TestResult is the final outcome of one test, assembled from its events.
type TestResult struct {
	// Package is the import path of the package the test belongs to.
	Package string

	// Name is the full test name, including subtest segments.
	Name string

	// Outcome is the runner vocabulary: passed, failed or skipped.
	Outcome string

	// Elapsed is the test duration in seconds.
	Elapsed float64

	// Output is the accumulated test output (the failure text for failed
	// tests).
	Output string

	// Params holds the parametrization parsed from subtest segments
	// ("TestX/size=big" -> {"size": "big"}). Nil for plain tests.
	Params map[string]string
}

// ParseError describes an unusable event stream.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("go test -json stream, line %d: %s", e.Line, e.Message)
}

// Parse reads a `go test -json` stream and returns the per-test results in
// completion order. Package-level events (no Test field) and non-JSON lines
// (e.g. build output leaking into the stream) are ignored. Parent tests that
// only aggregate subtests are dropped in favor of their subtests.
func Parse(r io.Reader) ([]TestResult, error) {
	type key struct{ pkg, test string }

	results := make(map[key]*TestResult)
	var order []key

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var ev TestEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, &ParseError{Line: lineno, Message: "invalid JSON: " + err.Error()}
		}
		if ev.Test == "" {
			continue
		}

		k := key{ev.Package, ev.Test}
		res, ok := results[k]
		if !ok {
			res = &TestResult{
				Package: ev.Package,
				Name:    ev.Test,
				Params:  parseParams(ev.Test),
			}
			results[k] = res
			order = append(order, k)
		}

		switch ev.Action {
		case "output":
			res.Output += ev.Output
		case "pass":
			res.Outcome = "passed"
			res.Elapsed = ev.Elapsed
		case "fail":
			res.Outcome = "failed"
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Outcome = "skipped"
			res.Elapsed = ev.Elapsed
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineno, Message: err.Error()}
	}

	// Drop parents that only aggregate subtests
	hasChild := make(map[key]bool)
	for _, k := range order {
		if idx := strings.LastIndex(k.test, "/"); idx != -1 {
			hasChild[key{k.pkg, k.test[:idx]}] = true
		}
	}

	out := make([]TestResult, 0, len(order))
	for _, k := range order {
		res := results[k]
		if res.Outcome == "" || hasChild[k] {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

// BaseName strips the subtest segments from a full test name:
// "TestLogin/token=stale" -> "TestLogin".
func BaseName(name string) string {
	if idx := strings.Index(name, "/"); idx != -1 {
		return name[:idx]
	}
	return name
}

// parseParams extracts parametrization from subtest segments. Segments of
// the form "k=v" (comma-separated within one segment) become entries; bare
// segments are kept under positional keys.
func parseParams(name string) map[string]string {
	segs := strings.Split(name, "/")
	if len(segs) < 2 {
		return nil
	}

	params := make(map[string]string)
	for i, seg := range segs[1:] {
		for _, part := range strings.Split(seg, ",") {
			if k, v, ok := strings.Cut(part, "="); ok && k != "" {
				params[k] = v
			} else {
				params[fmt.Sprintf("param%d", i+1)] = part
			}
		}
	}
	return params
}
