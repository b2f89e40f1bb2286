package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// DatasetImportedMessage announces that a new dataset was written to the
// shared store. Consumers reload their snapshot from the store; the message
// carries only a summary.
type DatasetImportedMessage struct {
	ImportID   int64     `json:"import_id"`
	DailyRows  int       `json:"daily_rows"`
	HourlyRows int       `json:"hourly_rows"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDatasetImportedMessage(importID int64, dailyRows, hourlyRows int, start, end string) *DatasetImportedMessage {
	return &DatasetImportedMessage{
		ImportID:   importID,
		DailyRows:  dailyRows,
		HourlyRows: hourlyRows,
		Start:      start,
		End:        end,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetImportedMessageFromJSON decodes a message body. A message without
// daily rows is rejected since no valid import produces one.
func DatasetImportedMessageFromJSON(data []byte) (*DatasetImportedMessage, error) {
	var msg DatasetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.DailyRows <= 0 {
		return nil, errors.New("dataset imported message without daily rows")
	}
	return &msg, nil
}
