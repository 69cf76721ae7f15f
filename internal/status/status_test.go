package status

import "testing"

func TestFromOutcome(t *testing.T) {
	tests := []struct {
		outcome string
		want    Status
	}{
		{"passed", Passed},
		{"failed", Failed},
		{"skipped", Blocked},
		{"deferred", Deferred},
		{"not_applicable", NotApplicable},
		{"infra_error", InfraError},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got, err := FromOutcome(tt.outcome)
			if err != nil {
				t.Fatalf("FromOutcome(%q) failed: %v", tt.outcome, err)
			}
			if got != tt.want {
				t.Errorf("FromOutcome(%q) = %d, want %d", tt.outcome, got, tt.want)
			}
		})
	}

	t.Run("unknown outcome is an error", func(t *testing.T) {
		if _, err := FromOutcome("exploded"); err == nil {
			t.Error("expected error for unknown outcome")
		}
	})
}

func TestParseCaseIDs(t *testing.T) {
	t.Run("prefixed ids", func(t *testing.T) {
		ids, err := ParseCaseIDs([]string{"C123", "C12345"})
		if err != nil {
			t.Fatalf("ParseCaseIDs failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != 123 || ids[1] != 12345 {
			t.Errorf("got %v, want [123 12345]", ids)
		}
	})

	t.Run("bare numeric id", func(t *testing.T) {
		ids, err := ParseCaseIDs([]string{"456"})
		if err != nil {
			t.Fatalf("ParseCaseIDs failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != 456 {
			t.Errorf("got %v, want [456]", ids)
		}
	})

	t.Run("no trailing digits fails the list", func(t *testing.T) {
		if _, err := ParseCaseIDs([]string{"C123", "nodigits"}); err == nil {
			t.Error("expected error for id without trailing digits")
		}
	})
}

func TestParseDefectIDs(t *testing.T) {
	got := ParseDefectIDs([]string{" PF-513", "BR-3255 "})
	if len(got) != 2 || got[0] != "PF-513" || got[1] != "BR-3255" {
		t.Errorf("got %v, want [PF-513 BR-3255]", got)
	}
}

func TestStripCasePrefix(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    int
		wantErr bool
	}{
		{"service prefix", "C17", 17, false},
		{"bare numeric", "17", 17, false},
		{"surrounding space", " C42 ", 42, false},
		{"multi-character prefix rejected", "CC17", 0, true},
		{"non-case token rejected", "run", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripCasePrefix(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("StripCasePrefix(%q) expected error", tt.token)
				}
				return
			}
			if err != nil {
				t.Fatalf("StripCasePrefix(%q) failed: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("StripCasePrefix(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}
