package extraction

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `event_types:
  - Diagnosis
  - Treatment
default_event_type: Diagnosis
locations:
  - Home
  - Clinic
default_location: Clinic
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if len(vocab.EventTypes) != 2 || vocab.DefaultEventType != "Diagnosis" {
		t.Errorf("event types = %v / %q", vocab.EventTypes, vocab.DefaultEventType)
	}
	if vocab.DefaultLocation != "Clinic" {
		t.Errorf("default location = %q", vocab.DefaultLocation)
	}
}

func TestLoadVocabularyRejectsForeignDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `event_types:
  - Diagnosis
default_event_type: Surgery
locations:
  - Home
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadVocabulary(path); err == nil {
		t.Fatal("expected error for default outside the set")
	}
}

func TestLoadVocabularyEmptyPathUsesDefaults(t *testing.T) {
	vocab, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if len(vocab.EventTypes) == 0 || len(vocab.Locations) == 0 {
		t.Errorf("defaults missing: %+v", vocab)
	}
}

func TestDefaultVocabularyIsConsistent(t *testing.T) {
	vocab := DefaultVocabulary()
	if err := vocab.validate(); err != nil {
		t.Fatalf("default vocabulary invalid: %v", err)
	}
}
