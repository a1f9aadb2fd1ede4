// Package sse implements Server-Sent Events for pushing shelf and profile
// changes to subscribed clients.
package sse

import (
	"time"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/id"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventShelfSnapshot carries an owner's complete, current shelf.
	EventShelfSnapshot EventType = "shelf.snapshot"
	// EventProfileUpdated carries an owner's profile after a change.
	EventProfileUpdated EventType = "profile.updated"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// OwnerID scopes delivery and is never serialized.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	OwnerID   string    `json:"-"`
}

// ShelfSnapshotEventData is the payload of EventShelfSnapshot.
type ShelfSnapshotEventData struct {
	Entries []domain.ShelfEntry `json:"entries"`
}

// ProfileEventData is the payload of EventProfileUpdated.
type ProfileEventData struct {
	Profile *domain.UserProfile `json:"profile"`
}

// ConnectedEventData is the payload of EventConnected.
type ConnectedEventData struct {
	ClientID string `json:"client_id"`
}

// HeartbeatEventData is the payload of EventHeartbeat.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(eventType EventType, ownerID string, data any) Event {
	return Event{
		ID:        id.MustGenerate(id.PrefixEvent),
		Type:      eventType,
		OwnerID:   ownerID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewShelfSnapshotEvent creates a snapshot event for one owner.
// A nil slice is sent as an empty list.
func NewShelfSnapshotEvent(ownerID string, entries []domain.ShelfEntry) Event {
	if entries == nil {
		entries = []domain.ShelfEntry{}
	}
	return newEvent(EventShelfSnapshot, ownerID, ShelfSnapshotEventData{Entries: entries})
}

// NewProfileUpdatedEvent creates a profile event for the profile's owner.
func NewProfileUpdatedEvent(profile *domain.UserProfile) Event {
	return newEvent(EventProfileUpdated, profile.OwnerID, ProfileEventData{Profile: profile})
}

// NewConnectedEvent creates the greeting event for a new client.
func NewConnectedEvent(clientID string) Event {
	return newEvent(EventConnected, "", ConnectedEventData{ClientID: clientID})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
