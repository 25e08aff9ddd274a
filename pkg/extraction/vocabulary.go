package extraction

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the closed label set the classification stages are
// constrained to, plus the member used when the oracle answers outside the
// set. Fallbacks must be set members so downstream filtering can rely on
// closed-set membership.
type Vocabulary struct {
	EventTypes       []string `yaml:"event_types"`
	DefaultEventType string   `yaml:"default_event_type"`
	Locations        []string `yaml:"locations"`
	DefaultLocation  string   `yaml:"default_location"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		EventTypes: []string{
			"Symptom Onset",
			"Symptom Offset",
			"Diagnosis",
			"Doctor Visit",
			"Treatment",
			"Hospital Admission",
			"Hospital Discharge",
			"Medication",
			"Lifestyle Change",
			"Feelings",
		},
		DefaultEventType: "Symptom Onset",
		Locations:        []string{"Home", "Hospital", "Doctors"},
		DefaultLocation:  "Home",
	}
}

func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultVocabulary(), err
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(content, &vocab); err != nil {
		return Vocabulary{}, err
	}
	if err := vocab.validate(); err != nil {
		return Vocabulary{}, err
	}
	return vocab, nil
}

func (v Vocabulary) validate() error {
	if len(v.EventTypes) == 0 {
		return fmt.Errorf("vocabulary: no event types configured")
	}
	if len(v.Locations) == 0 {
		return fmt.Errorf("vocabulary: no locations configured")
	}
	if v.DefaultEventType != "" && !contains(v.EventTypes, v.DefaultEventType) {
		return fmt.Errorf("vocabulary: default event type %q not in set", v.DefaultEventType)
	}
	if v.DefaultLocation != "" && !contains(v.Locations, v.DefaultLocation) {
		return fmt.Errorf("vocabulary: default location %q not in set", v.DefaultLocation)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
