package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qaops/testrail-reporter/internal/classify"
	"github.com/qaops/testrail-reporter/internal/status"
	"github.com/qaops/testrail-reporter/internal/testrail"
)

// reconcile recovers from a rejected batch submission. Infrastructure
// failures named in the rejection text are resubmitted per case with the
// dedicated infra-error status; otherwise the named invalid case ids are
// dropped from the accumulator and reported individually as failed. Either
// way this is a best-effort degrade path: failures of the individual
// submissions are logged, not retried.
func (p *Reporter) reconcile(ctx context.Context, runID int, errText string) {
	switch classify.Classify(errText) {
	case classify.KindInfraError:
		p.reportInfraErrors(ctx, runID, classify.InfraErrors(errText))

	case classify.KindInvalidCase:
		p.reportInvalidCases(ctx, runID, errText)
	}
}

// reportInfraErrors submits one single-result update per infra-failed case.
// Per-case submission is used because the batch already failed.
func (p *Reporter) reportInfraErrors(ctx context.Context, runID int, errs map[string]string) {
	for token, msg := range errs {
		caseID, err := status.StripCasePrefix(token)
		if err != nil {
			p.logger.Warn("skipping unparseable case id in error text",
				slog.String("token", token),
			)
			continue
		}

		entry := testrail.ResultEntry{
			StatusID: int(status.InfraError),
			Comment:  "Terraform Exception: " + msg,
		}
		raw, err := p.api.SendPost(ctx, fmt.Sprintf(addResultURL, runID, caseID), entry)
		if err != nil {
			p.logger.Error("failed to report infra error",
				slog.Int("case_id", caseID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if m := p.api.GetError(raw); m != "" {
			p.logger.Error("failed to report infra error",
				slog.Int("case_id", caseID),
				slog.String("error", m),
			)
		}
	}

	p.logger.Info("infra errors reported", slog.Int("run_id", runID))
}

// reportInvalidCases parses the invalid case ids out of a generic rejection,
// removes the offending results from the accumulator, and submits one failed
// entry per removed case carrying the rejection text.
func (p *Reporter) reportInvalidCases(ctx context.Context, runID int, errText string) {
	p.logger.Error("testcases not published",
		slog.Int("run_id", runID),
		slog.String("reason", errText),
	)

	var invalid []int
	for _, token := range classify.InvalidCaseIDs(errText) {
		caseID, err := status.StripCasePrefix(token)
		if err != nil {
			p.logger.Warn("skipping unparseable case id in error text",
				slog.String("token", token),
			)
			continue
		}
		invalid = append(invalid, caseID)
	}
	if len(invalid) == 0 {
		return
	}

	removed := make(map[int]bool, len(invalid))
	for _, id := range invalid {
		removed[id] = true
	}
	p.rec.RemoveCases(removed)

	for _, caseID := range invalid {
		req := testrail.AddResultsRequest{
			Results: []testrail.ResultEntry{{
				CaseID:   caseID,
				StatusID: int(status.Failed),
				Comment:  errText,
				Defects:  "",
			}},
		}
		raw, err := p.api.SendPost(ctx, fmt.Sprintf(addResultsURL, runID), req)
		if err != nil {
			p.logger.Error("failed to report error result",
				slog.Int("case_id", caseID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if m := p.api.GetError(raw); m != "" {
			p.logger.Error("failed to report error result",
				slog.Int("case_id", caseID),
				slog.String("error", m),
			)
		}
	}
}
