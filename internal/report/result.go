// Package report implements the result-reporting core: an accumulator of
// per-case results collected during the session, a session-end publisher that
// batches them to TestRail runs, and the recovery paths for rejected batches.
package report

import (
	"log/slog"
	"strings"
	"time"

	"github.com/qaops/testrail-reporter/internal/classify"
	"github.com/qaops/testrail-reporter/internal/journal"
	"github.com/qaops/testrail-reporter/internal/status"
)

// Result is one recorded outcome for a single TestRail case.
type Result struct {
	CaseID   int
	Status   status.Status
	Comment  string
	Duration float64 // seconds; 0 means unknown
	Defects  string  // comma-joined defect ids, "" if none
	Params   map[string]string
}

// Recorder accumulates results during a test session. It is appended to as
// each test completes and read out once at session finish; the host runner
// invokes hooks sequentially, so no locking is needed.
//
// Repeated callbacks for the same test item (e.g. once per phase) must not
// double-record, so the recorder tracks processed item keys itself instead of
// flagging externally-owned test items.
type Recorder struct {
	results   []Result
	processed map[string]bool
	journal   *journal.Journal
	logger    *slog.Logger
}

// NewRecorder creates an empty recorder. jnl may be nil; when set, every
// recorded result is also journaled to disk.
func NewRecorder(jnl *journal.Journal, logger *slog.Logger) *Recorder {
	return &Recorder{
		processed: make(map[string]bool),
		journal:   jnl,
		logger:    logger.With(slog.String("component", "recorder")),
	}
}

// Record appends one result per case id for the given test item. A second
// call with the same itemKey is a no-op, making per-phase callbacks safe.
//
// A Failed status whose comment carries the infrastructure-exception marker
// is upgraded to InfraError before recording, so environment failures stay
// distinguishable from test failures without changing the runner vocabulary.
func (r *Recorder) Record(itemKey string, caseIDs []int, st status.Status, comment string, duration float64, defects string, params map[string]string) {
	if r.processed[itemKey] {
		r.logger.Debug("item already recorded", slog.String("item", itemKey))
		return
	}
	r.processed[itemKey] = true

	if st == status.Failed && strings.Contains(comment, classify.InfraMarker) {
		st = status.InfraError
	}

	for _, caseID := range caseIDs {
		res := Result{
			CaseID:   caseID,
			Status:   st,
			Comment:  comment,
			Duration: duration,
			Defects:  defects,
			Params:   params,
		}
		r.results = append(r.results, res)

		if r.journal != nil {
			err := r.journal.Append(&journal.Entry{
				CaseID:     caseID,
				StatusID:   int(st),
				Comment:    comment,
				Defects:    defects,
				DurationMs: int64(duration * 1000),
				Params:     params,
				RecordedAt: time.Now(),
			})
			if err != nil {
				r.logger.Warn("failed to journal result",
					slog.Int("case_id", caseID),
					slog.String("error", err.Error()),
				)
			}
		}

		r.logger.Info("recorded result",
			slog.Int("case_id", caseID),
			slog.Int("status", int(st)),
			slog.Float64("duration", duration),
			slog.String("defects", defects),
		)
	}
}

// Len returns the number of accumulated results.
func (r *Recorder) Len() int {
	return len(r.results)
}

// Results returns a copy of the accumulated results in recording order.
func (r *Recorder) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// RemoveCases drops every accumulated result whose case id is in ids.
// Used by reconciliation when the service rejects those cases.
func (r *Recorder) RemoveCases(ids map[int]bool) {
	kept := r.results[:0]
	for _, res := range r.results {
		if !ids[res.CaseID] {
			kept = append(kept, res)
		}
	}
	r.results = kept
}
