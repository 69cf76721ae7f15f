package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/qaops/testrail-reporter/internal/config"
	"github.com/qaops/testrail-reporter/internal/journal"
	"github.com/qaops/testrail-reporter/internal/status"
	"github.com/qaops/testrail-reporter/internal/testrail"
)

// TestRail API path templates consumed by the reporter.
const (
	addResultsURL = "add_results_for_cases/%d"
	addResultURL  = "add_result_for_case/%d/%d"
	addRunURL     = "add_run/%d"
	closeRunURL   = "close_run/%d"
	closePlanURL  = "close_plan/%d"
	getRunURL     = "get_run/%d"
	getPlanURL    = "get_plan/%d"
	getTestsURL   = "get_tests/%d"
)

// runNameTimeFormat is the timestamp layout for generated run names.
const runNameTimeFormat = "02-01-2006 15:04:05"

// ErrNoResults is returned by HandleSessionFinish when nothing was recorded.
// An empty publish usually indicates a misconfigured test selection, so it is
// an error, not a silent no-op.
var ErrNoResults = errors.New("no test results to publish")

// API is the collaborator contract with the TestRail client. The reporter
// only needs raw request/response plumbing plus service-error extraction;
// tests substitute a fake.
type API interface {
	SendPost(ctx context.Context, path string, body any) (json.RawMessage, error)
	SendGet(ctx context.Context, path string) (json.RawMessage, error)
	GetError(raw json.RawMessage) string
}

// Item is one collected test item with its marker-supplied identifiers.
type Item struct {
	// Name identifies the item within the session (dedupe key).
	Name string

	// CaseIDs are the TestRail case ids attached via markers.
	CaseIDs []int

	// Defects are the defect ids attached via markers.
	Defects []string

	// Skip is set during collection when the item's cases are not part of
	// the selected run and skip_missing is active.
	Skip bool
}

// Reporter is the bridge between a test session and TestRail. The host
// invokes its hooks sequentially: HandleCollection once with the selected
// items, HandleTestResult per finished test phase, HandleSessionFinish once
// at the end.
type Reporter struct {
	api     API
	cfg     *config.Config
	rec     *Recorder
	journal *journal.Journal
	logger  *slog.Logger

	runID  int
	planID int

	// envDescription is appended to the description of a created run.
	envDescription string
}

// NewReporter creates a reporter for one test session. jnl may be nil.
func NewReporter(api API, cfg *config.Config, rec *Recorder, jnl *journal.Journal, logger *slog.Logger) *Reporter {
	return &Reporter{
		api:     api,
		cfg:     cfg,
		rec:     rec,
		journal: jnl,
		logger:  logger.With(slog.String("component", "reporter")),
		runID:   cfg.RunID,
		planID:  cfg.PlanID,
	}
}

// SetEnvDescription attaches an environment snapshot that is appended to the
// description of a run created by this session.
func (p *Reporter) SetEnvDescription(desc string) {
	p.envDescription = desc
}

// Recorder returns the reporter's result accumulator.
func (p *Reporter) Recorder() *Recorder {
	return p.rec
}

// RunID returns the currently selected run id, 0 if none.
func (p *Reporter) RunID() int {
	return p.runID
}

// HandleCollection resolves the publish target for this session. A
// pre-configured plan or run is honored only while it is still open;
// otherwise a new run is created, seeded with the case ids discovered on the
// collected items. Run creation failure is logged and leaves the run id
// unset, so the publish step degrades to a no-op.
func (p *Reporter) HandleCollection(ctx context.Context, items []*Item) {
	var caseIDs []int
	for _, item := range items {
		caseIDs = append(caseIDs, item.CaseIDs...)
	}

	switch {
	case p.planID != 0 && p.isPlanOpen(ctx, p.planID):
		p.runID = 0

	case p.runID != 0 && p.isRunOpen(ctx, p.runID):
		p.planID = 0
		if p.cfg.SkipMissing {
			p.markMissing(ctx, items)
		}

	default:
		p.planID = 0
		p.runID = 0
		p.createRun(ctx, caseIDs)
	}
}

// markMissing flags items whose cases are not part of the selected run.
func (p *Reporter) markMissing(ctx context.Context, items []*Item) {
	inRun := make(map[int]bool)
	for _, t := range p.getTests(ctx, p.runID) {
		inRun[t.CaseID] = true
	}

	for _, item := range items {
		found := false
		for _, id := range item.CaseIDs {
			if inRun[id] {
				found = true
				break
			}
		}
		if !found {
			item.Skip = true
			p.logger.Info("test is not present in testrun, marked as skipped",
				slog.String("item", item.Name),
			)
		}
	}
}

// HandleTestResult records the outcome of one test phase. Only the setup and
// call phases are recorded, and only for items carrying case markers; the
// recorder deduplicates repeated phases for the same item.
func (p *Reporter) HandleTestResult(item *Item, phase, outcome string, duration float64, failure string, params map[string]string) {
	if phase != "setup" && phase != "call" {
		return
	}
	if len(item.CaseIDs) == 0 {
		return
	}

	st, err := status.FromOutcome(outcome)
	if err != nil {
		p.logger.Error("dropping result with unknown outcome",
			slog.String("item", item.Name),
			slog.String("outcome", outcome),
		)
		return
	}

	p.rec.Record(item.Name, item.CaseIDs, st, failure, duration, strings.Join(status.ParseDefectIDs(item.Defects), ", "), params)
}

// HandleSessionFinish publishes the accumulated results. With an explicit
// run the batch goes to that run; with a plan, to every open run of the plan;
// with neither target nothing is published, which is fine for unconfigured
// local sessions. Service rejections are recovered internally; the only
// error returned is ErrNoResults.
func (p *Reporter) HandleSessionFinish(ctx context.Context) error {
	p.logger.Info("start publishing")

	if p.rec.Len() == 0 {
		p.logger.Error("no test results to publish")
		return ErrNoResults
	}

	cases := make([]string, 0, p.rec.Len())
	for _, res := range p.rec.Results() {
		cases = append(cases, strconv.Itoa(res.CaseID))
	}
	p.logger.Info("testcases to publish", slog.String("case_ids", strings.Join(cases, ", ")))

	switch {
	case p.runID != 0:
		p.publishForRun(ctx, p.runID)

	case p.planID != 0:
		runs := p.availableRuns(ctx, p.planID)
		p.logger.Info("testruns to update", slog.Int("count", len(runs)))
		for _, runID := range runs {
			p.publishForRun(ctx, runID)
		}

	default:
		p.logger.Info("no data published")
	}

	if p.cfg.CloseOnComplete {
		if p.runID != 0 {
			p.closeRun(ctx, p.runID)
		} else if p.planID != 0 {
			p.closePlan(ctx, p.planID)
		}
	}

	if p.journal != nil {
		if err := p.journal.Clear(); err != nil {
			p.logger.Warn("failed to clear result journal", slog.String("error", err.Error()))
		}
	}

	p.logger.Info("end publishing")
	return nil
}

// createRun creates a new run in the configured project, seeded with the
// case ids discovered in this session.
func (p *Reporter) createRun(ctx context.Context, caseIDs []int) {
	name := p.cfg.RunName
	if name == "" {
		name = "Automated Run " + time.Now().UTC().Format(runNameTimeFormat)
	}

	desc := p.cfg.RunDescription
	if p.envDescription != "" {
		if desc != "" {
			desc += "\n\n"
		}
		desc += p.envDescription
	}

	req := testrail.AddRunRequest{
		SuiteID:      p.cfg.SuiteID,
		Name:         name,
		Description:  desc,
		AssignedToID: p.cfg.AssignedToID,
		MilestoneID:  p.cfg.MilestoneID,
		IncludeAll:   p.cfg.IncludeAll,
		CaseIDs:      caseIDs,
	}

	raw, err := p.api.SendPost(ctx, fmt.Sprintf(addRunURL, p.cfg.ProjectID), req)
	if err != nil {
		p.logger.Error("failed to create testrun", slog.String("error", err.Error()))
		return
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to create testrun", slog.String("error", msg))
		return
	}

	var run testrail.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		p.logger.Error("failed to decode created testrun", slog.String("error", err.Error()))
		return
	}

	p.runID = run.ID
	p.logger.Info("new testrun created",
		slog.String("name", name),
		slog.Int("run_id", run.ID),
	)
}

// closeRun closes a run, best-effort.
func (p *Reporter) closeRun(ctx context.Context, runID int) {
	raw, err := p.api.SendPost(ctx, fmt.Sprintf(closeRunURL, runID), nil)
	if err != nil {
		p.logger.Error("failed to close test run", slog.String("error", err.Error()))
		return
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to close test run", slog.String("error", msg))
		return
	}
	p.logger.Info("test run closed", slog.Int("run_id", runID))
}

// closePlan closes a plan, best-effort.
func (p *Reporter) closePlan(ctx context.Context, planID int) {
	raw, err := p.api.SendPost(ctx, fmt.Sprintf(closePlanURL, planID), nil)
	if err != nil {
		p.logger.Error("failed to close test plan", slog.String("error", err.Error()))
		return
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to close test plan", slog.String("error", msg))
		return
	}
	p.logger.Info("test plan closed", slog.Int("plan_id", planID))
}

// isRunOpen reports whether the run exists and is not completed. Lookup
// failures count as not open, so a stale pre-configured id falls back to
// creating a fresh run.
func (p *Reporter) isRunOpen(ctx context.Context, runID int) bool {
	raw, err := p.api.SendGet(ctx, fmt.Sprintf(getRunURL, runID))
	if err != nil {
		p.logger.Error("failed to retrieve testrun", slog.String("error", err.Error()))
		return false
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to retrieve testrun", slog.String("error", msg))
		return false
	}

	var run testrail.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		p.logger.Error("failed to decode testrun", slog.String("error", err.Error()))
		return false
	}
	return !run.IsCompleted
}

// isPlanOpen reports whether the plan exists and is not completed.
func (p *Reporter) isPlanOpen(ctx context.Context, planID int) bool {
	raw, err := p.api.SendGet(ctx, fmt.Sprintf(getPlanURL, planID))
	if err != nil {
		p.logger.Error("failed to retrieve testplan", slog.String("error", err.Error()))
		return false
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to retrieve testplan", slog.String("error", msg))
		return false
	}

	var plan testrail.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		p.logger.Error("failed to decode testplan", slog.String("error", err.Error()))
		return false
	}
	return !plan.IsCompleted
}

// availableRuns returns the ids of every open run of a plan.
func (p *Reporter) availableRuns(ctx context.Context, planID int) []int {
	raw, err := p.api.SendGet(ctx, fmt.Sprintf(getPlanURL, planID))
	if err != nil {
		p.logger.Error("failed to retrieve testplan", slog.String("error", err.Error()))
		return nil
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to retrieve testplan", slog.String("error", msg))
		return nil
	}

	var plan testrail.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		p.logger.Error("failed to decode testplan", slog.String("error", err.Error()))
		return nil
	}

	var runs []int
	for _, entry := range plan.Entries {
		for _, run := range entry.Runs {
			if !run.IsCompleted {
				runs = append(runs, run.ID)
			}
		}
	}
	return runs
}

// getTests returns the tests of a run, or nil when the lookup fails.
func (p *Reporter) getTests(ctx context.Context, runID int) []testrail.Test {
	raw, err := p.api.SendGet(ctx, fmt.Sprintf(getTestsURL, runID))
	if err != nil {
		p.logger.Error("failed to get tests", slog.String("error", err.Error()))
		return nil
	}
	if msg := p.api.GetError(raw); msg != "" {
		p.logger.Error("failed to get tests", slog.String("error", msg))
		return nil
	}

	var tests []testrail.Test
	if err := json.Unmarshal(raw, &tests); err != nil {
		p.logger.Error("failed to decode tests", slog.String("error", err.Error()))
		return nil
	}
	return tests
}
