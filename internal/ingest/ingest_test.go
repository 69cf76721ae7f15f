package ingest

import (
	"strings"
	"testing"
)

const sampleStream = `{"Action":"run","Package":"example.com/pkg","Test":"TestLogin"}
{"Action":"output","Package":"example.com/pkg","Test":"TestLogin","Output":"=== RUN   TestLogin\n"}
{"Action":"pass","Package":"example.com/pkg","Test":"TestLogin","Elapsed":1.42}
{"Action":"run","Package":"example.com/pkg","Test":"TestCheckout"}
{"Action":"output","Package":"example.com/pkg","Test":"TestCheckout","Output":"checkout_test.go:10: total mismatch\n"}
{"Action":"fail","Package":"example.com/pkg","Test":"TestCheckout","Elapsed":0.31}
{"Action":"run","Package":"example.com/pkg","Test":"TestExport"}
{"Action":"skip","Package":"example.com/pkg","Test":"TestExport","Elapsed":0}
{"Action":"pass","Package":"example.com/pkg","Elapsed":2.1}
`

func TestParse(t *testing.T) {
	results, err := Parse(strings.NewReader(sampleStream))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	t.Run("passed test", func(t *testing.T) {
		r := results[0]
		if r.Name != "TestLogin" || r.Outcome != "passed" || r.Elapsed != 1.42 {
			t.Errorf("unexpected result: %+v", r)
		}
	})

	t.Run("failed test keeps output", func(t *testing.T) {
		r := results[1]
		if r.Outcome != "failed" {
			t.Fatalf("got outcome %q, want failed", r.Outcome)
		}
		if !strings.Contains(r.Output, "total mismatch") {
			t.Errorf("expected failure text in output, got %q", r.Output)
		}
	})

	t.Run("skipped test", func(t *testing.T) {
		if results[2].Outcome != "skipped" {
			t.Errorf("got outcome %q, want skipped", results[2].Outcome)
		}
	})
}

func TestParseSubtests(t *testing.T) {
	stream := `{"Action":"run","Package":"example.com/pkg","Test":"TestSizes"}
{"Action":"run","Package":"example.com/pkg","Test":"TestSizes/size=big"}
{"Action":"pass","Package":"example.com/pkg","Test":"TestSizes/size=big","Elapsed":0.5}
{"Action":"run","Package":"example.com/pkg","Test":"TestSizes/size=small"}
{"Action":"fail","Package":"example.com/pkg","Test":"TestSizes/size=small","Elapsed":0.2}
{"Action":"fail","Package":"example.com/pkg","Test":"TestSizes","Elapsed":0.8}
`
	results, err := Parse(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	t.Run("parent aggregating subtests is dropped", func(t *testing.T) {
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2 subtests", len(results))
		}
		for _, r := range results {
			if r.Name == "TestSizes" {
				t.Error("parent test should be dropped in favor of subtests")
			}
		}
	})

	t.Run("subtest segments become params", func(t *testing.T) {
		if got := results[0].Params["size"]; got != "big" {
			t.Errorf("got params %v, want size=big", results[0].Params)
		}
	})
}

func TestParseTolerance(t *testing.T) {
	t.Run("non-JSON lines are ignored", func(t *testing.T) {
		stream := "go: downloading something\n" +
			`{"Action":"run","Package":"p","Test":"TestA"}` + "\n" +
			`{"Action":"pass","Package":"p","Test":"TestA","Elapsed":1}` + "\n"
		results, err := Parse(strings.NewReader(stream))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("got %d results, want 1", len(results))
		}
	})

	t.Run("malformed JSON object fails", func(t *testing.T) {
		if _, err := Parse(strings.NewReader("{not json}\n")); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("test without terminal action is dropped", func(t *testing.T) {
		stream := `{"Action":"run","Package":"p","Test":"TestHung"}` + "\n"
		results, err := Parse(strings.NewReader(stream))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("got %d results, want 0", len(results))
		}
	})
}

func TestBind(t *testing.T) {
	results := []TestResult{
		{Package: "p", Name: "TestLogin", Outcome: "passed"},
		{Package: "p", Name: "TestSizes/size=big", Outcome: "passed"},
		{Package: "p", Name: "TestUnmapped", Outcome: "passed"},
	}

	t.Run("base and full names resolve markers", func(t *testing.T) {
		cmap := CaseMap{
			"TestLogin":          {Cases: []string{"C123"}, Defects: []string{"PF-513"}},
			"TestSizes":          {Cases: []string{"C200"}},
			"TestSizes/size=big": {Cases: []string{"C201"}},
		}
		bound, err := Bind(results, cmap)
		if err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		if len(bound) != 2 {
			t.Fatalf("got %d bound items, want 2", len(bound))
		}
		if bound[0].Item.CaseIDs[0] != 123 {
			t.Errorf("got case ids %v, want [123]", bound[0].Item.CaseIDs)
		}
		if bound[0].Item.Defects[0] != "PF-513" {
			t.Errorf("got defects %v, want [PF-513]", bound[0].Item.Defects)
		}
		// Full subtest name takes precedence over the base name
		if bound[1].Item.CaseIDs[0] != 201 {
			t.Errorf("got case ids %v, want [201]", bound[1].Item.CaseIDs)
		}
	})

	t.Run("unparseable marker fails the session", func(t *testing.T) {
		cmap := CaseMap{"TestLogin": {Cases: []string{"nodigits"}}}
		if _, err := Bind(results, cmap); err == nil {
			t.Error("expected error for unparseable case id")
		}
	})
}
