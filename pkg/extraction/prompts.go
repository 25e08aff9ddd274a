package extraction

import (
	"fmt"
	"strings"

	"github.com/tracemed-ai/platform/pkg/oracle"
)

// Prompt builders return a fresh message slice on every call so no stage
// can contaminate another's few-shot context.

func preprocessMessages(journey string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: "You normalize patient journey narratives. Correct spelling and " +
			"punctuation, expand abbreviations, and rewrite relative date references as absolute " +
			"dates where the text allows it. Do not add, remove, or reorder information. Return " +
			"only the rewritten narrative."},
		{Role: "user", Content: journey},
	}
}

func labelingMessages(sentences []string) []oracle.Message {
	var numbered strings.Builder
	for i, sentence := range sentences {
		fmt.Fprintf(&numbered, "%d: %s\n", i, sentence)
	}
	return []oracle.Message{
		{Role: "system", Content: "You extract the discrete activities a patient describes in a " +
			"journey narrative. The narrative is given as numbered sentences. Answer with one " +
			"line per activity in the form \"- <short activity> #<sentence number>\", where the " +
			"number references the sentence the activity comes from. Keep activities short and " +
			"in narrative order. Output nothing else."},
		{Role: "user", Content: numbered.String()},
	}
}

type cohortAttribute struct {
	field       string
	instruction string
}

// One query per attribute, each insisting on explicit evidence. The order
// matches the cohort record's field order.
var cohortAttributes = []cohortAttribute{
	{"condition", "Name the illness or condition this journey is about."},
	{"sex", "State the patient's sex."},
	{"age", "State the patient's age or age bracket."},
	{"origin", "State the patient's country or region of origin."},
	{"preexisting_condition", "Name any preexisting condition the patient mentions having before this illness."},
}

func cohortMessages(attribute cohortAttribute, journey string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: fmt.Sprintf("You extract one demographic attribute from a patient "+
			"journey. %s Answer with the value only, and only if the text explicitly states it. "+
			"If the text does not state it, answer exactly \"N/A\". Do not guess.", attribute.instruction)},
		{Role: "user", Content: journey},
	}
}

func startMessages(snippet, activity string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: "Given an excerpt of a patient journey and one activity extracted " +
			"from it, determine when the activity started. Answer with a single timestamp in the " +
			"format YYYYMMDDTHHMM, zero-padded, using T0000 when only the date is known. If the " +
			"excerpt gives no usable date, answer \"N/A\"."},
		{Role: "user", Content: fmt.Sprintf("Excerpt: %s\n\nActivity: %s", snippet, activity)},
	}
}

func endMessages(snippet, activity, start string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: "Given an excerpt of a patient journey, one activity extracted " +
			"from it, and the timestamp the activity started, determine when the activity ended. " +
			"Answer with a single timestamp in the format YYYYMMDDTHHMM, zero-padded. If the " +
			"excerpt gives no end information, answer \"N/A\"."},
		{Role: "user", Content: fmt.Sprintf("Excerpt: %s\n\nActivity: %s\nStart: %s", snippet, activity, start)},
	}
}

func eventTypeMessages(activity string, eventTypes []string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: fmt.Sprintf("Classify a patient journey activity into exactly one "+
			"of these event types: %s.", strings.Join(eventTypes, ", "))},
		{Role: "user", Content: activity},
	}
}

func locationMessages(activity string, locations []string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: fmt.Sprintf("Decide where a patient journey activity took place. "+
			"Answer with exactly one of: %s.", strings.Join(locations, ", "))},
		{Role: "user", Content: activity},
	}
}

func relevanceMessages(activity, condition string) []oracle.Message {
	about := "the illness"
	if condition != "" {
		about = condition
	}
	return []oracle.Message{
		{Role: "system", Content: fmt.Sprintf("Rate how relevant an extracted activity is to the "+
			"course of %s.", about)},
		{Role: "user", Content: activity},
	}
}

func timeCheckMessages(journey, activity, start, end string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: "Given a full patient journey and one extracted activity with its " +
			"start and end timestamps, judge whether the timestamps are consistent with the " +
			"narrative. Answer with exactly one word: Yes or No."},
		{Role: "user", Content: fmt.Sprintf("Journey: %s\n\nActivity: %s\nStart: %s\nEnd: %s",
			journey, activity, start, end)},
	}
}

func equivalenceMessages(first, second string) []oracle.Message {
	return []oracle.Message{
		{Role: "system", Content: "You compare two short activity descriptions taken from two " +
			"independently produced logs of the same patient timeline. Decide whether they " +
			"describe the same real-world event. Answer with exactly one word: Yes or No."},
		{Role: "user", Content: fmt.Sprintf("First: %s\nSecond: %s", first, second)},
	}
}
