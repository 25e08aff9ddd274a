package extraction

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

const classifierCacheSize = 512

// Classifier maps each activity label to one member of a closed set via a
// schema-constrained oracle call. Repeated labels are served from an LRU
// cache, which also pins the classification to one answer per label within
// a run. Out-of-set answers fall back to a defined set member.
type Classifier struct {
	oracle   oracle.Client
	kind     StageKind
	schema   string
	values   []string
	fallback string
	messages func(activity string) []oracle.Message
	assign   func(event *models.Event, value string)
	cache    *lru.Cache[string, string]
}

func NewEventTypeClassifier(client oracle.Client, cfg Configuration, vocab Vocabulary) *Classifier {
	return newClassifier(client, StageEventType, "event_type", cfg.EventTypes, vocab.DefaultEventType,
		func(activity string) []oracle.Message { return eventTypeMessages(activity, cfg.EventTypes) },
		func(event *models.Event, value string) { event.EventType = value },
	)
}

func NewLocationClassifier(client oracle.Client, cfg Configuration, vocab Vocabulary) *Classifier {
	return newClassifier(client, StageLocation, "location", cfg.Locations, vocab.DefaultLocation,
		func(activity string) []oracle.Message { return locationMessages(activity, cfg.Locations) },
		func(event *models.Event, value string) { event.Location = value },
	)
}

func newClassifier(client oracle.Client, kind StageKind, schema string, values []string, fallback string,
	messages func(string) []oracle.Message, assign func(*models.Event, string)) *Classifier {
	if !contains(values, fallback) && len(values) > 0 {
		fallback = values[0]
	}
	cache, _ := lru.New[string, string](classifierCacheSize)
	return &Classifier{
		oracle:   client,
		kind:     kind,
		schema:   schema,
		values:   values,
		fallback: fallback,
		messages: messages,
		assign:   assign,
		cache:    cache,
	}
}

func (c *Classifier) Kind() StageKind { return c.kind }

func (c *Classifier) Execute(ctx context.Context, state *StageState) error {
	for i := range state.Events {
		value, err := c.classify(ctx, state.Events[i].Activity)
		if err != nil {
			return err
		}
		c.assign(&state.Events[i], value)
	}
	return nil
}

func (c *Classifier) classify(ctx context.Context, activity string) (string, error) {
	key := string(c.kind) + "|" + activity
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	answer, err := c.oracle.CompleteStructured(ctx, c.messages(activity), oracle.Schema{
		Name: c.schema,
		Enum: c.values,
	})
	if err != nil {
		return "", fmt.Errorf("classifying %s of %q: %w", c.schema, activity, err)
	}

	value := c.canonical(answer)
	c.cache.Add(key, value)
	return value, nil
}

func (c *Classifier) canonical(answer string) string {
	trimmed := strings.TrimSpace(answer)
	for _, value := range c.values {
		if strings.EqualFold(value, trimmed) {
			return value
		}
	}
	return c.fallback
}
