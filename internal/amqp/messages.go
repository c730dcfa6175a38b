package amqp

import (
	"encoding/json"
	"time"
)

// IngestionEvent announces a finished statement import. Consumers fetch the
// rows themselves using the import id.
type IngestionEvent struct {
	ImportID   string    `json:"import_id"`
	Account    string    `json:"account"`
	Source     string    `json:"source"`
	Processed  int       `json:"processed"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewIngestionEvent(importID, account, source string, processed, inserted int) *IngestionEvent {
	return &IngestionEvent{
		ImportID:   importID,
		Account:    account,
		Source:     source,
		Processed:  processed,
		Inserted:   inserted,
		Duplicates: processed - inserted,
		Timestamp:  time.Now(),
	}
}

func (e *IngestionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func IngestionEventFromJSON(data []byte) (*IngestionEvent, error) {
	var e IngestionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
