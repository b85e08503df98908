package notifier

import (
	"encoding/json"
	"time"
)

// Record is the unit of work: one requested notification. Records are
// upserted by ID so reprocessing the same id never creates a second entity,
// and they are retained after reaching a terminal status for audit.
type Record struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Metadata  Metadata       `json:"metadata"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Metadata carries the delivery addressing for a record.
type Metadata struct {
	EmailSender    string `json:"emailSender"`
	EmailRecipient string `json:"emailRecipient"`
	Subject        string `json:"subject"`
}

// DedupKey is the queue deduplication key for the record.
func (r Record) DedupKey() (group, dedupID string) {
	return r.Type, r.ID
}

func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalRecord(b []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(b, &r)
	return r, err
}
