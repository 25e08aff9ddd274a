package models

import (
	"time"

	"github.com/google/uuid"
)

// Event bus envelope
type Envelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // journey.created, trace.saved, run.completed, run.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// PatientJourney is the raw narrative being mined. The text is immutable
// after ingestion; extraction runs reference it by id.
type PatientJourney struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel values used across the pipeline. "N/A" marks a value the oracle
// could not determine; -1 marks an unresolved index.
const (
	NotAvailable    = "N/A"
	UnmappedIndex   = -1
	NoSentence      = -1
	TimestampLayout = "20060102T1504"
)

// Event is one row of the working table: an extracted activity plus the
// enrichment columns later stages fill in. Start/End use the zero time as
// "missing" until the time extractor resolves them.
type Event struct {
	Activity   string    `json:"activity"`
	SentenceID int       `json:"sentence_id"`
	EventType  string    `json:"event_type,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	Location   string    `json:"location,omitempty"`

	// Quality metrics (optional stage)
	Relevance      string  `json:"relevance,omitempty"`
	TimeCorrect    *bool   `json:"time_correct,omitempty"`
	TimeConfidence float64 `json:"time_confidence,omitempty"`
}

// Cohort holds demographic metadata extracted once per journey. An empty
// field means "not determinable"; a cohort with no resolved field at all is
// represented as a nil *Cohort, never a struct of sentinels.
type Cohort struct {
	Condition            string `json:"condition,omitempty"`
	Sex                  string `json:"sex,omitempty"`
	Age                  string `json:"age,omitempty"`
	Origin               string `json:"origin,omitempty"`
	PreexistingCondition string `json:"preexisting_condition,omitempty"`
}

// Empty reports whether no attribute was resolved.
func (c Cohort) Empty() bool {
	return c.Condition == "" && c.Sex == "" && c.Age == "" && c.Origin == "" && c.PreexistingCondition == ""
}

// Trace is one complete ordered event collection for one extraction run.
// CaseID increases monotonically across traces so multiple traces can
// accumulate in one process log.
type Trace struct {
	ID        uuid.UUID `json:"id"`
	JourneyID uuid.UUID `json:"journey_id"`
	CaseID    int       `json:"case_id"`
	Reference bool      `json:"reference"`
	Events    []Event   `json:"events"`
	Cohort    *Cohort   `json:"cohort,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Run lifecycle
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunStatus is the registry record the HTTP layer polls while a pipeline
// run is in flight.
type RunStatus struct {
	RunID     string     `json:"run_id"`
	JourneyID uuid.UUID  `json:"journey_id"`
	Status    string     `json:"status"`
	Percent   int        `json:"percent"`
	Stage     string     `json:"stage,omitempty"`
	Error     string     `json:"error,omitempty"`
	TraceID   *uuid.UUID `json:"trace_id,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Mapping is one directional alignment between two activity sequences.
// Indexes[i] is the matched position in the opposite sequence or
// UnmappedIndex; Confidences[i] is the linear token probability behind the
// accepted match.
type Mapping struct {
	Indexes     []int     `json:"indexes"`
	Confidences []float64 `json:"confidences"`
}

// OrderViolation reports one inverted reference pair: the activities at
// reference positions First < Second were found in the opposite order in
// the candidate sequence.
type OrderViolation struct {
	First          int    `json:"first"`
	Second         int    `json:"second"`
	FirstActivity  string `json:"first_activity"`
	SecondActivity string `json:"second_activity"`
}

// ComparisonResult aggregates both directional mappings and the
// diagnostics derived from them.
type ComparisonResult struct {
	DataToReference Mapping          `json:"data_to_reference"`
	ReferenceToData Mapping          `json:"reference_to_data"`
	Missing         []string         `json:"missing"`    // reference activities with no counterpart
	Unexpected      []string         `json:"unexpected"` // candidate activities with no counterpart
	Violations      []OrderViolation `json:"order_violations"`
	DataMatchPct    float64          `json:"data_match_percentage"`
	ReferencePct    float64          `json:"reference_match_percentage"`
}

// HTTP request/response shapes

type CreateJourneyRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
}
