package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Kind
	}{
		{
			name:     "infra exception with escaped newline",
			message:  `Validation failed for case 42 in run: TerraformException: disk full\n`,
			expected: KindInfraError,
		},
		{
			name:     "infra exception with real newline",
			message:  "case 42 failed, TerraformException: apply timed out\nmore text",
			expected: KindInfraError,
		},
		{
			name:     "generic invalid case id",
			message:  "Field :results contains an invalid test (case 17 ) or result",
			expected: KindInvalidCase,
		},
		{
			name:     "unrelated error text",
			message:  "Field :run_id is not a valid test run",
			expected: KindInvalidCase,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.message); got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.expected)
			}
		})
	}
}

func TestInfraErrors(t *testing.T) {
	t.Run("single pair", func(t *testing.T) {
		errs := InfraErrors(`case 42 aborted: TerraformException: disk full\n`)
		if len(errs) != 1 {
			t.Fatalf("got %d pairs, want 1", len(errs))
		}
		if errs["42"] != "disk full" {
			t.Errorf("got message %q, want %q", errs["42"], "disk full")
		}
	})

	t.Run("multiple pairs", func(t *testing.T) {
		msg := "case 7 TerraformException: quota exceeded\ncase 9 TerraformException: provider crashed\n"
		errs := InfraErrors(msg)
		if len(errs) != 2 {
			t.Fatalf("got %d pairs, want 2", len(errs))
		}
		if errs["7"] != "quota exceeded" || errs["9"] != "provider crashed" {
			t.Errorf("unexpected pairs: %v", errs)
		}
	})

	t.Run("no marker", func(t *testing.T) {
		if errs := InfraErrors("case 42 is invalid"); len(errs) != 0 {
			t.Errorf("expected no pairs, got %v", errs)
		}
	})
}

func TestInvalidCaseIDs(t *testing.T) {
	t.Run("single id", func(t *testing.T) {
		ids := InvalidCaseIDs("Field :results contains an invalid test (case 17 ) or result")
		if len(ids) != 1 || ids[0] != "17" {
			t.Errorf("got %v, want [17]", ids)
		}
	})

	t.Run("multiple ids with prefix", func(t *testing.T) {
		ids := InvalidCaseIDs("invalid (case C17 ) and invalid (case C23 )")
		if len(ids) != 2 || ids[0] != "C17" || ids[1] != "C23" {
			t.Errorf("got %v, want [C17 C23]", ids)
		}
	})

	t.Run("no case fragments", func(t *testing.T) {
		if ids := InvalidCaseIDs("something else entirely (bad input )"); len(ids) != 0 {
			t.Errorf("expected no ids, got %v", ids)
		}
	})
}
