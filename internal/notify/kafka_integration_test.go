//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"anima/internal/attendance/models"
	"anima/internal/notify"
	"anima/internal/platform/config"
	"anima/internal/platform/kafka"
	"anima/internal/platform/logger"
	id "anima/pkg/domain"
	"anima/pkg/testutil/containers"
)

type KafkaNotifierSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	topic    string
	notifier *notify.KafkaNotifier
}

func TestKafkaNotifierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaNotifierSuite))
}

func (s *KafkaNotifierSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redpanda = mgr.GetRedpanda(s.T())
	s.topic = "anima.attendance.test"

	var err error
	s.client, err = kafka.NewClient(config.KafkaConfig{
		Brokers:         []string{s.redpanda.Broker},
		AttendanceTopic: s.topic,
		ProduceTimeout:  5 * time.Second,
	})
	s.Require().NoError(err)
	s.Require().NoError(kafka.EnsureTopic(context.Background(), s.client, s.topic, 1, 1, logger.Discard()))

	s.notifier, err = notify.NewKafkaNotifier(s.client, s.topic, 5*time.Second)
	s.Require().NoError(err)
}

func (s *KafkaNotifierSuite) TearDownSuite() {
	s.client.Close()
}

func (s *KafkaNotifierSuite) TestRecordedEventIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	entry := models.LogEntry{
		ID:         id.LogID(uuid.New()),
		EmployeeID: id.EmployeeID(uuid.New()),
		SiteID:     id.SiteID(uuid.New()),
		Action:     models.ActionCheckIn,
		Timestamp:  time.Now().UTC(),
	}
	s.Require().NoError(s.notifier.AttendanceRecorded(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	for {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "no event consumed before timeout")
		var found *notify.Event
		fetches.EachRecord(func(r *kgo.Record) {
			var event notify.Event
			if json.Unmarshal(r.Value, &event) == nil && event.LogID != nil && *event.LogID == entry.ID {
				s.Equal(entry.EmployeeID.String(), string(r.Key))
				found = &event
			}
		})
		if found != nil {
			s.Equal(notify.EventAttendanceRecorded, found.Type)
			return
		}
	}
}
