package testrail

// Run is a TestRail test run, as returned by get_run and add_run.
type Run struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
}

// Plan is a TestRail test plan. Runs are grouped under entries.
type Plan struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	IsCompleted bool        `json:"is_completed"`
	Entries     []PlanEntry `json:"entries"`
}

// PlanEntry is one entry of a test plan, holding one or more runs.
type PlanEntry struct {
	ID   string `json:"id"`
	Runs []Run  `json:"runs"`
}

// Test is one test of a run, as returned by get_tests.
type Test struct {
	ID       int `json:"id"`
	CaseID   int `json:"case_id"`
	StatusID int `json:"status_id"`
}

// AddRunRequest is the body of an add_run request.
type AddRunRequest struct {
	SuiteID      int    `json:"suite_id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	AssignedToID int    `json:"assignedto_id,omitempty"`
	MilestoneID  int    `json:"milestone_id,omitempty"`
	IncludeAll   bool   `json:"include_all"`
	CaseIDs      []int  `json:"case_ids,omitempty"`
}

// ResultEntry is one result of an add_results_for_cases or
// add_result_for_case request.
type ResultEntry struct {
	CaseID   int    `json:"case_id,omitempty"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment"`
	Defects  string `json:"defects"`
	Version  string `json:"version,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
}

// AddResultsRequest is the body of an add_results_for_cases request.
type AddResultsRequest struct {
	Results []ResultEntry `json:"results"`
}
