package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qaops/testrail-reporter/internal/report"
	"github.com/qaops/testrail-reporter/internal/status"
)

// Marker holds the TestRail identifiers attached to one test, the analog of
// the case/defect markers test authors attach in the runner.
type Marker struct {
	// Cases are TestRail case ids, conventionally prefixed ("C123").
	Cases []string `yaml:"cases"`

	// Defects are defect tracker ids ("PF-513").
	Defects []string `yaml:"defects"`
}

// CaseMap maps test names to their markers. Keys may be base test names
// ("TestLogin") or full subtest names ("TestLogin/token=stale"); the full
// name wins when both are present.
type CaseMap map[string]Marker

// LoadCaseMap reads the YAML case map from path.
func LoadCaseMap(path string) (CaseMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case map %s: %w", path, err)
	}

	var m CaseMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse case map %s: %w", path, err)
	}
	return m, nil
}

// ItemResult pairs a collected test item with its parsed outcome.
type ItemResult struct {
	Item   *report.Item
	Result TestResult
}

// Bind matches parsed results against the case map, producing one item per
// marked test. Tests without markers are ignored, as the runner ignores
// unmarked tests. A marker whose case ids cannot be parsed is an authoring
// error and fails the session.
func Bind(results []TestResult, cmap CaseMap) ([]ItemResult, error) {
	bound := make([]ItemResult, 0, len(results))
	for _, res := range results {
		marker, ok := cmap[res.Name]
		if !ok {
			marker, ok = cmap[BaseName(res.Name)]
		}
		if !ok || len(marker.Cases) == 0 {
			continue
		}

		caseIDs, err := status.ParseCaseIDs(marker.Cases)
		if err != nil {
			return nil, fmt.Errorf("case map entry for %s: %w", res.Name, err)
		}

		item := &report.Item{
			Name:    res.Package + "." + res.Name,
			CaseIDs: caseIDs,
			Defects: marker.Defects,
		}
		bound = append(bound, ItemResult{Item: item, Result: res})
	}
	return bound, nil
}
