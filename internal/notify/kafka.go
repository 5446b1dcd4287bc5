package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"anima/internal/attendance/models"
	id "anima/pkg/domain"
)

// KafkaNotifier produces one record per event, keyed by employee so an
// employee's events stay ordered within a partition.
type KafkaNotifier struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaNotifier(client *kgo.Client, topic string, timeout time.Duration) (*KafkaNotifier, error) {
	if client == nil {
		return nil, errors.New("kafka client is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	return &KafkaNotifier{client: client, topic: topic, timeout: timeout, now: time.Now}, nil
}

func (n *KafkaNotifier) AttendanceRecorded(ctx context.Context, entry models.LogEntry) error {
	return n.produce(ctx, recordedEvent(entry))
}

func (n *KafkaNotifier) AttendanceFailed(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) error {
	return n.produce(ctx, failedEvent(employeeID, action, reason, n.now().UTC()))
}

func (n *KafkaNotifier) produce(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(event.EmployeeID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s event: %w", event.Type, err)
	}
	return nil
}
