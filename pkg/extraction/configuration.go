package extraction

import (
	"errors"
	"fmt"
)

type ActivityKey string

const (
	KeyActivity  ActivityKey = "activity"
	KeyEventType ActivityKey = "event_type"
	KeyLocation  ActivityKey = "location"
)

// Configuration names the active stages, the closed vocabularies retained
// for classification, and the column used as the grouping key downstream.
type Configuration struct {
	EventTypes   []string    `json:"event_types"`
	Locations    []string    `json:"locations"`
	ActiveStages []StageKind `json:"active_stages"`
	ActivityKey  ActivityKey `json:"activity_key"`
}

func DefaultConfiguration(vocab Vocabulary) Configuration {
	return Configuration{
		EventTypes: append([]string(nil), vocab.EventTypes...),
		Locations:  append([]string(nil), vocab.Locations...),
		ActiveStages: []StageKind{
			StageLabeling,
			StageCohort,
			StageTime,
			StageEventType,
			StageLocation,
		},
		ActivityKey: KeyActivity,
	}
}

// Patch enumerates every settable configuration field. A nil field leaves
// the current value untouched; there is no way to express an unknown key.
type Patch struct {
	EventTypes   *[]string
	Locations    *[]string
	ActiveStages *[]StageKind
	ActivityKey  *ActivityKey
}

func (c Configuration) Apply(patch Patch) Configuration {
	out := c
	if patch.EventTypes != nil {
		out.EventTypes = append([]string(nil), (*patch.EventTypes)...)
	}
	if patch.Locations != nil {
		out.Locations = append([]string(nil), (*patch.Locations)...)
	}
	if patch.ActiveStages != nil {
		out.ActiveStages = append([]StageKind(nil), (*patch.ActiveStages)...)
	}
	if patch.ActivityKey != nil {
		out.ActivityKey = *patch.ActivityKey
	}
	return out
}

// Validate rejects configurations before a run starts: unknown stages and
// an activity key whose producing stage was deselected are user errors, not
// runtime faults.
func (c Configuration) Validate() error {
	active := make(map[StageKind]bool, len(c.ActiveStages))
	for _, kind := range c.ActiveStages {
		if !knownStage(kind) {
			return fmt.Errorf("unknown stage %q", kind)
		}
		if active[kind] {
			return fmt.Errorf("stage %q listed twice", kind)
		}
		active[kind] = true
	}

	if !active[StageLabeling] {
		return errors.New("activity labeling stage must be active")
	}

	switch c.ActivityKey {
	case KeyActivity:
	case KeyEventType:
		if !active[StageEventType] {
			return errors.New("activity key event_type requires the event type classification stage")
		}
	case KeyLocation:
		if !active[StageLocation] {
			return errors.New("activity key location requires the location classification stage")
		}
	default:
		return fmt.Errorf("unknown activity key %q", c.ActivityKey)
	}

	if active[StageEventType] && len(c.EventTypes) == 0 {
		return errors.New("event type classification requires a non-empty event type set")
	}
	if active[StageLocation] && len(c.Locations) == 0 {
		return errors.New("location classification requires a non-empty location set")
	}

	return nil
}

func (c Configuration) stageActive(kind StageKind) bool {
	for _, k := range c.ActiveStages {
		if k == kind {
			return true
		}
	}
	return false
}

// orderedStages returns the active stages in fixed dependency order.
func (c Configuration) orderedStages() []StageKind {
	var out []StageKind
	for _, kind := range stageOrder {
		if c.stageActive(kind) {
			out = append(out, kind)
		}
	}
	return out
}
