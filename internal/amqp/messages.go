package amqp

import (
	"encoding/json"
	"time"

	"egitim/internal/dataset"
)

// Message types, carried in the AMQP Type property.
const (
	TypeDatasetLoaded    = "dataset.loaded"
	TypeHeadcountChanged = "headcount.changed"
)

// DatasetLoadedMessage announces a newly active dataset.
type DatasetLoadedMessage struct {
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	RawRows  int       `json:"rawRows"`
	Records  int       `json:"records"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loadedAt"`
}

func NewDatasetLoadedMessage(s dataset.Summary) *DatasetLoadedMessage {
	return &DatasetLoadedMessage{
		Version:  s.Version,
		Source:   s.Source,
		RawRows:  s.RawRows,
		Records:  s.Records,
		Skipped:  s.Skipped,
		LoadedAt: s.LoadedAt,
	}
}

// HeadcountChangedMessage announces a headcount mutation. Year is empty for
// operations that touch the whole store, such as an import.
type HeadcountChangedMessage struct {
	Operation string    `json:"operation"`
	Year      string    `json:"year,omitempty"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHeadcountChangedMessage(op, year string, revision uint64) *HeadcountChangedMessage {
	return &HeadcountChangedMessage{
		Operation: op,
		Year:      year,
		Revision:  revision,
		Timestamp: time.Now().UTC(),
	}
}

func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func HeadcountChangedMessageFromJSON(data []byte) (*HeadcountChangedMessage, error) {
	var msg HeadcountChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
