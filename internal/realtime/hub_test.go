package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/rosters/internal/logger"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestPublishReachesTeamViewersOnly(t *testing.T) {
	hub, _ := startHub(t)

	watcher := hub.NewClient(nil, 1, 0)
	other := hub.NewClient(nil, 2, 0)
	require.True(t, hub.Register(watcher))
	require.True(t, hub.Register(other))
	require.Eventually(t, func() bool { return hub.ClientCount(1) == 1 && hub.ClientCount(2) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(RosterEvent{Type: EventAccepted, TeamID: 1, UserID: 9, Action: "INTEAM"})

	select {
	case msg := <-watcher.Send:
		var ev RosterEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, RosterEvent{Type: EventAccepted, TeamID: 1, UserID: 9, Action: "INTEAM"}, ev)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Empty(t, other.Send)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	c := hub.NewClient(nil, 3, 0)
	require.True(t, hub.Register(c))
	hub.Unregister(c)

	require.Eventually(t, func() bool { return hub.ClientCount(3) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)

	c := hub.NewClient(nil, 4, 0)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.ClientCount(4) == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer+1; i++ {
		hub.BroadcastToTeam(4, []byte("x"))
	}
	assert.Equal(t, 0, hub.ClientCount(4))
}

func TestStoppedHubRefusesClients(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()

	require.Eventually(t, func() bool {
		return !hub.Register(hub.NewClient(nil, 5, 0))
	}, time.Second, 5*time.Millisecond)
	// must not block
	hub.Unregister(hub.NewClient(nil, 5, 0))
}
