package processlog

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/models"
)

// Keys names the event fields the exporters map onto the process-log
// schema. ActivityKey selects which column becomes the concept name.
type Keys struct {
	CaseKey     string
	ActivityKey string
	StartKey    string
	EndKey      string
}

func DefaultKeys() Keys {
	return Keys{
		CaseKey:     "case_id",
		ActivityKey: "activity",
		StartKey:    "start",
		EndKey:      "end",
	}
}

func conceptName(event models.Event, activityKey string) string {
	switch activityKey {
	case "event_type":
		if event.EventType != "" {
			return event.EventType
		}
	case "location":
		if event.Location != "" {
			return event.Location
		}
	}
	return event.Activity
}

// WriteCSV renders one or more traces as a flat event log.
func WriteCSV(w io.Writer, traces []models.Trace, keys Keys) error {
	writer := csv.NewWriter(w)
	header := []string{keys.CaseKey, keys.ActivityKey, "event_type", keys.StartKey, keys.EndKey, "duration", "location"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trace := range traces {
		for _, event := range trace.Events {
			record := []string{
				strconv.Itoa(trace.CaseID),
				conceptName(event, keys.ActivityKey),
				event.EventType,
				event.Start.Format(models.TimestampLayout),
				event.End.Format(models.TimestampLayout),
				event.Duration,
				event.Location,
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

type xesAttribute struct {
	XMLName xml.Name
	Key     string `xml:"key,attr"`
	Value   string `xml:"value,attr"`
}

type xesEvent struct {
	XMLName    xml.Name `xml:"event"`
	Attributes []xesAttribute
}

type xesTrace struct {
	XMLName    xml.Name `xml:"trace"`
	Attributes []xesAttribute
	Events     []xesEvent
}

type xesLog struct {
	XMLName xml.Name `xml:"log"`
	Version string   `xml:"xes.version,attr"`
	Traces  []xesTrace
}

func stringAttribute(key, value string) xesAttribute {
	return xesAttribute{XMLName: xml.Name{Local: "string"}, Key: key, Value: value}
}

func dateAttribute(key string, value time.Time) xesAttribute {
	return xesAttribute{XMLName: xml.Name{Local: "date"}, Key: key, Value: value.UTC().Format(time.RFC3339)}
}

// WriteXES renders the traces in the XES dialect process-mining tools
// ingest.
func WriteXES(w io.Writer, traces []models.Trace, keys Keys) error {
	log := xesLog{Version: "1.0"}
	for _, trace := range traces {
		entry := xesTrace{
			Attributes: []xesAttribute{stringAttribute("concept:name", fmt.Sprintf("case %d", trace.CaseID))},
		}
		for _, event := range trace.Events {
			attrs := []xesAttribute{
				stringAttribute("concept:name", conceptName(event, keys.ActivityKey)),
				dateAttribute("time:timestamp", event.Start),
				dateAttribute("time:endTimestamp", event.End),
			}
			if event.EventType != "" {
				attrs = append(attrs, stringAttribute("event:type", event.EventType))
			}
			if event.Location != "" {
				attrs = append(attrs, stringAttribute("org:resource", event.Location))
			}
			entry.Events = append(entry.Events, xesEvent{Attributes: attrs})
		}
		log.Traces = append(log.Traces, entry)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(log); err != nil {
		return err
	}
	return encoder.Close()
}

// ExportTrace materializes one trace as CSV and XES artifact files.
func ExportTrace(dir string, trace models.Trace, keys Keys) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("trace_%d_%s", trace.CaseID, trace.ID)
	csvPath := filepath.Join(dir, base+".csv")
	xesPath := filepath.Join(dir, base+".xes")

	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", "", err
	}
	if err := WriteCSV(csvFile, []models.Trace{trace}, keys); err != nil {
		csvFile.Close()
		return "", "", err
	}
	if err := csvFile.Close(); err != nil {
		return "", "", err
	}

	xesFile, err := os.Create(xesPath)
	if err != nil {
		return "", "", err
	}
	if err := WriteXES(xesFile, []models.Trace{trace}, keys); err != nil {
		xesFile.Close()
		return "", "", err
	}
	if err := xesFile.Close(); err != nil {
		return "", "", err
	}

	return csvPath, xesPath, nil
}
