package amqp

import (
	"encoding/json"
	"time"

	"grateful/internal/reminder"
)

// ReminderMessage is the payload published when the daily reminder fires.
type ReminderMessage struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewReminderMessage(n reminder.Notification) *ReminderMessage {
	return &ReminderMessage{
		ID:           n.ID,
		Title:        n.Title,
		Body:         n.Body,
		ScheduledFor: n.ScheduledFor,
		Timestamp:    time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
