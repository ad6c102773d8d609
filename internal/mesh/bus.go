// Package mesh fans domain events out to subscribers in this process or,
// with -tags nats, across API instances.
package mesh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicMetricsSubmitted   = "metrics.submitted"
	TopicUsersChanged       = "users.changed"
	TopicDepartmentsChanged = "departments.changed"
)

type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"ts"`
}

// NewEvent marshals payload into an event for topic.
func NewEvent(topic string, payload any) (Event, error) {
	e := Event{ID: uuid.NewString(), Topic: topic, Timestamp: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = b
	}
	return e, nil
}

type Handler func(ctx context.Context, e Event)

type Bus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(topic string, h Handler) (unsubscribe func(), err error)
	Close() error
}

// MetricsSubmitted is the payload of TopicMetricsSubmitted.
type MetricsSubmitted struct {
	UserID       int64   `json:"user_id"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	RecordIDs    []int64 `json:"record_ids"`
	Date         string  `json:"date"`
}

// EntityChanged is the payload of TopicUsersChanged and TopicDepartmentsChanged.
type EntityChanged struct {
	ID           int64  `json:"id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	Op           string `json:"op"`
}
