package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
)

func TestWatermillPublisherLogin(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(context.Background(), "warden.login")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubsub)
	require.NoError(t, pub.PublishLogin(context.Background(), "alice", core.LevelPosting))

	select {
	case msg := <-messages:
		var event LoginEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "alice", event.Account)
		assert.Equal(t, "posting", event.Level)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("login event never arrived")
	}
}

func TestWatermillPublisherLogout(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(context.Background(), "warden.logout")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubsub)
	require.NoError(t, pub.PublishLogout(context.Background(), "alice", "refresh-1"))

	select {
	case msg := <-messages:
		var event LogoutEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "alice", event.Account)
		assert.Equal(t, "refresh-1", event.TokenID)
		assert.Equal(t, "refresh-1", msg.UUID)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("logout event never arrived")
	}
}
