package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/qaops/testrail-reporter/internal/status"
	"github.com/qaops/testrail-reporter/internal/testrail"
)

// publishForRun uploads the accumulated results to one run as a single batch.
// A service-level rejection of the batch is handed to reconcile; transport
// failures are logged only, since publishing must never fail the test run
// itself.
func (p *Reporter) publishForRun(ctx context.Context, runID int) {
	results := p.buildBatch(ctx, runID)

	req := testrail.AddResultsRequest{Results: make([]testrail.ResultEntry, 0, len(results))}
	for _, res := range results {
		entry := testrail.ResultEntry{
			CaseID:   res.CaseID,
			StatusID: int(res.Status),
			Defects:  res.Defects,
			Comment:  formatComment(res, p.cfg.CustomComment),
			Version:  p.cfg.Version,
			Elapsed:  formatElapsed(res.Duration),
		}
		req.Results = append(req.Results, entry)
	}

	raw, err := p.api.SendPost(ctx, fmt.Sprintf(addResultsURL, runID), req)
	if err != nil {
		p.logger.Error("failed to send results",
			slog.Int("run_id", runID),
			slog.String("error", err.Error()),
		)
		return
	}

	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("error in sending results to testrail",
			slog.Int("run_id", runID),
			slog.String("error", msg),
		)
		p.reconcile(ctx, runID, msg)
		return
	}

	p.logger.Info("test results successfully published",
		slog.Int("run_id", runID),
		slog.Int("count", len(results)),
	)
}

// buildBatch prepares the result list for one run: a stable sort ascending by
// case id (deterministic upload order for log readability; ties keep their
// recording order), then the blocked-case exclusion when configured.
func (p *Reporter) buildBatch(ctx context.Context, runID int) []Result {
	results := p.rec.Results()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CaseID < results[j].CaseID
	})

	if p.cfg.DontPublishBlocked {
		results = p.excludeBlocked(ctx, runID, results)
	}

	if p.cfg.IncludeAll {
		p.logger.Info(`option "include all testcases from test suite for test run" activated`)
	}

	return results
}

// excludeBlocked drops results for cases currently marked Blocked in the
// target run, so a deliberately-blocked status is not overwritten. When the
// run's tests cannot be fetched the batch is published unfiltered.
func (p *Reporter) excludeBlocked(ctx context.Context, runID int, results []Result) []Result {
	p.logger.Info(`option "don't publish blocked testcases" activated`)

	tests := p.getTests(ctx, runID)
	if tests == nil {
		p.logger.Warn("could not fetch tests for blocked-case exclusion, publishing unfiltered",
			slog.Int("run_id", runID),
		)
		return results
	}

	blocked := make(map[int]bool)
	var blockedIDs []string
	for _, t := range tests {
		if status.Status(t.StatusID) == status.Blocked {
			blocked[t.CaseID] = true
			blockedIDs = append(blockedIDs, strconv.Itoa(t.CaseID))
		}
	}
	p.logger.Info("blocked testcases excluded",
		slog.String("case_ids", strings.Join(blockedIDs, ", ")),
	)

	kept := make([]Result, 0, len(results))
	for _, res := range results {
		if !blocked[res.CaseID] {
			kept = append(kept, res)
		}
	}
	return kept
}
