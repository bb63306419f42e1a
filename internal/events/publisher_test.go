package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherPublishesToOrgChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), Channel("org-1"))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	pub := NewRedisPublisher(client, nil)
	pub.Publish(context.Background(), "org-1", TypeReminderSent, ReminderSentV1{
		EventID: "ev-1", OrgID: "org-1", Kind: "24h",
	})

	select {
	case msg := <-sub.Channel():
		eventType, orgID, payload, err := DecodeEnvelope([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, TypeReminderSent, eventType)
		assert.Equal(t, "org-1", orgID)

		var body ReminderSentV1
		require.NoError(t, json.Unmarshal(payload, &body))
		assert.Equal(t, "24h", body.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestRedisPublisherSwallowsDeliveryErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close() // force publish errors

	pub := NewRedisPublisher(client, nil)
	// Must not panic or block.
	pub.Publish(context.Background(), "org-1", TypeAppointmentBooked, AppointmentBookedV1{})
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, _, _, err := DecodeEnvelope([]byte("{not json"))
	assert.Error(t, err)
}
