// Package config provides configuration management for the reporter.
// It uses koanf v2 to load configuration from YAML files.
//
// The configuration file should have restricted permissions (0600) as it
// contains the TestRail API key.
package config

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPath is the default location for the reporter configuration file.
const DefaultConfigPath = "testrail.yaml"

// Config holds the reporter configuration loaded from the YAML config file.
type Config struct {
	// ServerURL is the root URL of the TestRail instance
	// (e.g., "https://example.testrail.io"). Required.
	ServerURL string `koanf:"server_url"`

	// Username is the TestRail account used for API requests. Required.
	Username string `koanf:"username"`

	// APIKey is the TestRail API key for Username. Required.
	APIKey string `koanf:"api_key"`

	// ProjectID is the TestRail project to create runs in. Required unless
	// an explicit run_id or plan_id is configured.
	ProjectID int `koanf:"project_id"`

	// SuiteID is the test suite a created run draws its cases from.
	SuiteID int `koanf:"suite_id"`

	// RunID selects an existing run to publish into. At most one of
	// run_id and plan_id may be set; with neither, a new run is created.
	RunID int `koanf:"run_id"`

	// PlanID selects an existing plan; results are published to every
	// open run of the plan.
	PlanID int `koanf:"plan_id"`

	// RunName names a created run. Defaults to "Automated Run <timestamp>".
	RunName string `koanf:"run_name"`

	// RunDescription is the description of a created run. The reporter
	// appends an environment snapshot of the host it ran on.
	RunDescription string `koanf:"run_description"`

	// AssignedToID is the TestRail user a created run is assigned to.
	AssignedToID int `koanf:"assignedto_id"`

	// MilestoneID attaches a created run to a milestone.
	MilestoneID int `koanf:"milestone_id"`

	// IncludeAll includes every case of the suite in a created run instead
	// of only the cases discovered in this session.
	IncludeAll bool `koanf:"include_all"`

	// Version is reported with every result (e.g., the build under test).
	Version string `koanf:"version"`

	// DontPublishBlocked excludes results for cases currently marked
	// Blocked in the target run, so a deliberately-blocked status is not
	// overwritten by a fresh automated result.
	DontPublishBlocked bool `koanf:"dont_publish_blocked"`

	// CloseOnComplete closes the run (or plan) after publishing.
	CloseOnComplete bool `koanf:"close_on_complete"`

	// SkipMissing marks collected tests whose cases are not part of the
	// selected run as skipped.
	SkipMissing bool `koanf:"skip_missing"`

	// CustomComment is prepended to every published result comment.
	CustomComment string `koanf:"custom_comment"`

	// CaseMap is the path of the YAML file mapping test names to TestRail
	// case and defect ids.
	CaseMap string `koanf:"case_map"`

	// JournalPath enables the on-disk result journal when set. Recorded
	// results are journaled there and cleared after a successful publish.
	JournalPath string `koanf:"journal_path"`

	// LogLevel controls the verbosity of reporter logging.
	// Valid values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `koanf:"log_level"`
}

// Validation errors returned by Load when required fields are missing.
var (
	ErrServerURLRequired   = errors.New("server_url is required")
	ErrCredentialsRequired = errors.New("username and api_key are required")
	ErrProjectRequired     = errors.New("project_id is required when no run_id or plan_id is set")
	ErrRunAndPlan          = errors.New("run_id and plan_id are mutually exclusive")
)

// Load reads configuration from the specified YAML file path.
// It applies defaults for optional fields and validates required fields.
// Returns an error if the file cannot be read or required fields are missing.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CaseMap == "" {
		c.CaseMap = "testrail-cases.yaml"
	}
}

// validate checks that required configuration fields are present and valid.
func (c *Config) validate() error {
	if c.ServerURL == "" {
		return ErrServerURLRequired
	}
	if c.Username == "" || c.APIKey == "" {
		return ErrCredentialsRequired
	}
	if c.RunID != 0 && c.PlanID != 0 {
		return ErrRunAndPlan
	}
	if c.RunID == 0 && c.PlanID == 0 && c.ProjectID == 0 {
		return ErrProjectRequired
	}
	return nil
}
