//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	id "libris/pkg/domain"
	audit "libris/pkg/platform/audit"
	"libris/pkg/platform/audit/publisher"
	"libris/pkg/testutil/containers"
)

func TestKafkaPublisherProducesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "libris.audit." + uuid.NewString()[:8]

	// Create the topic up front so the consumer does not race topic
	// auto-creation.
	admClient, err := kgo.NewClient(kgo.SeedBrokers(redpanda.Broker))
	require.NoError(t, err)
	defer admClient.Close()
	adm := kadm.NewClient(admClient)
	_, err = adm.CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	pub, err := publisher.NewKafkaPublisher([]string{redpanda.Broker}, topic, nil)
	require.NoError(t, err)

	userID := id.UserID(uuid.New())
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    audit.ActionBorrowBook,
		Subject:   "borrowing_records",
		RecordID:  uuid.NewString(),
		Detail:    map[string]string{"book_id": uuid.NewString()},
	}
	require.NoError(t, pub.Emit(ctx, event))

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, pub.Close(closeCtx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancelFetch := context.WithTimeout(ctx, 15*time.Second)
	defer cancelFetch()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, userID.String(), string(records[0].Key))

	var payload struct {
		UserID   string            `json:"user_id"`
		Action   string            `json:"action"`
		Subject  string            `json:"subject"`
		RecordID string            `json:"record_id"`
		Detail   map[string]string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	require.Equal(t, string(audit.ActionBorrowBook), payload.Action)
	require.Equal(t, event.RecordID, payload.RecordID)
	require.Equal(t, event.Detail, payload.Detail)
}
