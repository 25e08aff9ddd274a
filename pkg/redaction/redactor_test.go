package redaction

import (
	"strings"
	"testing"
)

func TestRedactorMasksDefaultPatterns(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("NewRedactor failed: %v", err)
	}

	text := "My SSN is 123-45-6789 and you can reach me at jane.doe@example.com or 555-123-4567."
	masked, hits := redactor.Apply(text)

	for _, leaked := range []string{"123-45-6789", "jane.doe@example.com", "555-123-4567"} {
		if strings.Contains(masked, leaked) {
			t.Errorf("identifier %q survived redaction: %s", leaked, masked)
		}
	}
	if len(hits) != 3 {
		t.Errorf("hits = %v, want ssn, email and phone", hits)
	}
}

func TestRedactorReportsEachTypeOnce(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("NewRedactor failed: %v", err)
	}

	masked, hits := redactor.Apply("Emails: a@b.com and c@d.org.")
	if strings.Contains(masked, "a@b.com") || strings.Contains(masked, "c@d.org") {
		t.Errorf("emails survived redaction: %s", masked)
	}
	if len(hits) != 1 || hits[0] != "email" {
		t.Errorf("hits = %v, want [email]", hits)
	}
}

func TestRedactorLeavesCleanTextAlone(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("NewRedactor failed: %v", err)
	}

	text := "I felt feverish for three days."
	masked, hits := redactor.Apply(text)
	if masked != text {
		t.Errorf("clean text changed: %q", masked)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %v, want none", hits)
	}
}

func TestRedactorSkipsDisabledRules(t *testing.T) {
	cfg := DefaultRules()
	for i := range cfg.Rules {
		cfg.Rules[i].Enabled = false
	}
	redactor, err := NewRedactor(cfg)
	if err != nil {
		t.Fatalf("NewRedactor failed: %v", err)
	}

	text := "SSN 123-45-6789"
	masked, hits := redactor.Apply(text)
	if masked != text || len(hits) != 0 {
		t.Errorf("disabled rules should not fire: %q %v", masked, hits)
	}
}

func TestNewRedactorRejectsBadPattern(t *testing.T) {
	cfg := RulesConfig{Rules: []Rule{{Name: "bad", Type: "bad", Pattern: "([", Enabled: true}}}
	if _, err := NewRedactor(cfg); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
