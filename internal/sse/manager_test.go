package sse

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func snapshotEntries(t *testing.T, event Event) []domain.ShelfEntry {
	t.Helper()
	data, ok := event.Data.(ShelfSnapshotEventData)
	require.True(t, ok, "unexpected payload %T", event.Data)
	return data.Entries
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case event := <-c.EventChan:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_DeliversOnlyToOwner(t *testing.T) {
	m := startManager(t)

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewShelfSnapshotEvent("alice", []domain.ShelfEntry{{Book: domain.Book{ID: "b1"}}}))

	event := receive(t, alice)
	assert.Equal(t, EventShelfSnapshot, event.Type)
	assert.Len(t, snapshotEntries(t, event), 1)

	select {
	case event := <-bob.EventChan:
		t.Fatalf("bob received %s meant for alice", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_UnscopedEventsReachEveryone(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect("a")
	require.NoError(t, err)
	b, err := m.Connect("b")
	require.NoError(t, err)

	m.Emit(NewHeartbeatEvent())

	assert.Equal(t, EventHeartbeat, receive(t, a).Type)
	assert.Equal(t, EventHeartbeat, receive(t, b).Type)
}

func TestManager_SlowClientKeepsLatestSnapshot(t *testing.T) {
	m := NewManager(testLogger())
	client, err := m.Connect("owner")
	require.NoError(t, err)

	// Nobody reads the channel; deliver directly to overflow the buffer.
	total := clientBufferSize * 3
	for i := 1; i <= total; i++ {
		entries := make([]domain.ShelfEntry, i)
		m.broadcast(NewShelfSnapshotEvent("owner", entries))
	}

	var last Event
	for len(client.EventChan) > 0 {
		last = <-client.EventChan
	}
	assert.Len(t, snapshotEntries(t, last), total)

	m.Disconnect(client.ID)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_DisconnectClosesChannels(t *testing.T) {
	m := startManager(t)

	client, err := m.Connect("owner")
	require.NoError(t, err)

	m.Disconnect(client.ID)
	m.Disconnect(client.ID)

	_, open := <-client.EventChan
	assert.False(t, open)
	<-client.Done
	assert.Zero(t, m.ClientCount())
}

func TestManager_ShutdownDrainsQueuedEvents(t *testing.T) {
	m := NewManager(testLogger())
	client, err := m.Connect("owner")
	require.NoError(t, err)

	m.Emit(NewShelfSnapshotEvent("owner", nil))
	require.NoError(t, m.Shutdown(context.Background()))

	event, ok := <-client.EventChan
	require.True(t, ok)
	assert.Empty(t, snapshotEntries(t, event))
	assert.NotNil(t, snapshotEntries(t, event))

	_, ok = <-client.EventChan
	assert.False(t, ok, "channel closed after drain")

	// Emit after shutdown is a silent no-op.
	m.Emit(NewHeartbeatEvent())
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ShutdownStopsRunningLoop(t *testing.T) {
	m := NewManager(testLogger())
	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	client, err := m.Connect("owner")
	require.NoError(t, err)

	// Start may not have flagged itself yet; Shutdown handles both orders.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
	<-client.Done
}

func TestManager_Heartbeat(t *testing.T) {
	m := NewManager(testLogger())
	m.SetHeartbeatInterval(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	client, err := m.Connect("owner")
	require.NoError(t, err)
	assert.Equal(t, EventHeartbeat, receive(t, client).Type)
}
