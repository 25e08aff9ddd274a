package journeys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tracemed-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("journeys: not found")
	ErrNoReference = errors.New("journeys: no reference trace")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type journeyModel struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;uniqueIndex"`
	Text      string    `gorm:"column:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (journeyModel) TableName() string { return "patient_journeys" }

type traceModel struct {
	ID        uuid.UUID      `gorm:"primaryKey;column:id"`
	JourneyID uuid.UUID      `gorm:"column:journey_id;index"`
	CaseID    int            `gorm:"column:case_id;uniqueIndex"`
	Reference bool           `gorm:"column:reference"`
	Cohort    datatypes.JSON `gorm:"column:cohort"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (traceModel) TableName() string { return "traces" }

type eventModel struct {
	ID             int64      `gorm:"primaryKey;autoIncrement;column:id"`
	TraceID        uuid.UUID  `gorm:"column:trace_id;index"`
	Position       int        `gorm:"column:position"`
	Activity       string     `gorm:"column:activity"`
	SentenceID     int        `gorm:"column:sentence_id"`
	EventType      string     `gorm:"column:event_type"`
	Start          *time.Time `gorm:"column:start_time"`
	End            *time.Time `gorm:"column:end_time"`
	Duration       string     `gorm:"column:duration"`
	Location       string     `gorm:"column:location"`
	Relevance      string     `gorm:"column:relevance"`
	TimeCorrect    *bool      `gorm:"column:time_correct"`
	TimeConfidence float64    `gorm:"column:time_confidence"`
}

func (eventModel) TableName() string { return "trace_events" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&journeyModel{},
		&traceModel{},
		&eventModel{},
	)
}

func (r *Repository) CreateJourney(ctx context.Context, name, text string) (models.PatientJourney, error) {
	row := &journeyModel{
		ID:        uuid.New(),
		Name:      name,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.PatientJourney{}, fmt.Errorf("persisting journey: %w", err)
	}
	return journeyFromRow(row), nil
}

func (r *Repository) GetJourney(ctx context.Context, id uuid.UUID) (models.PatientJourney, error) {
	var row journeyModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PatientJourney{}, ErrNotFound
		}
		return models.PatientJourney{}, err
	}
	return journeyFromRow(&row), nil
}

func (r *Repository) GetJourneyByName(ctx context.Context, name string) (models.PatientJourney, error) {
	var row journeyModel
	if err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PatientJourney{}, ErrNotFound
		}
		return models.PatientJourney{}, err
	}
	return journeyFromRow(&row), nil
}

func (r *Repository) ListJourneys(ctx context.Context, limit int) ([]models.PatientJourney, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []journeyModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	journeys := make([]models.PatientJourney, 0, len(rows))
	for i := range rows {
		journeys = append(journeys, journeyFromRow(&rows[i]))
	}
	return journeys, nil
}

// SaveTrace persists one complete extraction result. The case id is
// allocated inside the transaction so it stays monotonically increasing
// across concurrent saves.
func (r *Repository) SaveTrace(ctx context.Context, journeyID uuid.UUID, events []models.Event, cohort *models.Cohort, reference bool) (models.Trace, error) {
	trace := models.Trace{
		ID:        uuid.New(),
		JourneyID: journeyID,
		Reference: reference,
		Events:    events,
		Cohort:    cohort,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nextCase struct{ Next int }
		if err := tx.Raw(`SELECT COALESCE(MAX(case_id), 0) + 1 AS next FROM traces`).Scan(&nextCase).Error; err != nil {
			return err
		}
		trace.CaseID = nextCase.Next

		row := &traceModel{
			ID:        trace.ID,
			JourneyID: journeyID,
			CaseID:    trace.CaseID,
			Reference: reference,
			CreatedAt: trace.CreatedAt,
		}
		if cohort != nil {
			if data, err := json.Marshal(cohort); err == nil {
				row.Cohort = datatypes.JSON(data)
			}
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		for position, event := range events {
			if err := tx.Create(eventRow(trace.ID, position, event)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Trace{}, fmt.Errorf("persisting trace: %w", err)
	}
	return trace, nil
}

func (r *Repository) GetTrace(ctx context.Context, traceID uuid.UUID) (models.Trace, error) {
	var row traceModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", traceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trace{}, ErrNotFound
		}
		return models.Trace{}, err
	}
	return r.buildTrace(ctx, &row)
}

func (r *Repository) ListTraces(ctx context.Context, journeyID uuid.UUID, limit int) ([]models.Trace, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []traceModel
	if err := r.db.WithContext(ctx).Where("journey_id = ?", journeyID).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	traces := make([]models.Trace, 0, len(rows))
	for i := range rows {
		trace, err := r.buildTrace(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// LoadReferenceTrace returns the events of the newest hand-labeled trace
// for the named journey.
func (r *Repository) LoadReferenceTrace(ctx context.Context, journeyName string) ([]models.Event, error) {
	journey, err := r.GetJourneyByName(ctx, journeyName)
	if err != nil {
		return nil, err
	}

	var row traceModel
	err = r.db.WithContext(ctx).
		Where("journey_id = ? AND reference = ?", journey.ID, true).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoReference
		}
		return nil, err
	}

	trace, err := r.buildTrace(ctx, &row)
	if err != nil {
		return nil, err
	}
	return trace.Events, nil
}

func (r *Repository) buildTrace(ctx context.Context, row *traceModel) (models.Trace, error) {
	trace := models.Trace{
		ID:        row.ID,
		JourneyID: row.JourneyID,
		CaseID:    row.CaseID,
		Reference: row.Reference,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Cohort) > 0 {
		var cohort models.Cohort
		if err := json.Unmarshal(row.Cohort, &cohort); err == nil && !cohort.Empty() {
			trace.Cohort = &cohort
		}
	}

	var events []eventModel
	if err := r.db.WithContext(ctx).Where("trace_id = ?", row.ID).Order("position").Find(&events).Error; err != nil {
		return models.Trace{}, err
	}
	for _, event := range events {
		trace.Events = append(trace.Events, eventFromRow(&event))
	}
	return trace, nil
}

func journeyFromRow(row *journeyModel) models.PatientJourney {
	return models.PatientJourney{
		ID:        row.ID,
		Name:      row.Name,
		Text:      row.Text,
		CreatedAt: row.CreatedAt,
	}
}

func eventRow(traceID uuid.UUID, position int, event models.Event) *eventModel {
	row := &eventModel{
		TraceID:        traceID,
		Position:       position,
		Activity:       event.Activity,
		SentenceID:     event.SentenceID,
		EventType:      event.EventType,
		Duration:       event.Duration,
		Location:       event.Location,
		Relevance:      event.Relevance,
		TimeCorrect:    event.TimeCorrect,
		TimeConfidence: event.TimeConfidence,
	}
	if !event.Start.IsZero() {
		start := event.Start
		row.Start = &start
	}
	if !event.End.IsZero() {
		end := event.End
		row.End = &end
	}
	return row
}

func eventFromRow(row *eventModel) models.Event {
	event := models.Event{
		Activity:       row.Activity,
		SentenceID:     row.SentenceID,
		EventType:      row.EventType,
		Duration:       row.Duration,
		Location:       row.Location,
		Relevance:      row.Relevance,
		TimeCorrect:    row.TimeCorrect,
		TimeConfidence: row.TimeConfidence,
	}
	if row.Start != nil {
		event.Start = *row.Start
	}
	if row.End != nil {
		event.End = *row.End
	}
	return event
}
