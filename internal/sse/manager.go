package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	eventQueueSize           = 1000
	clientBufferSize         = 16
)

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// OwnerID receives only events for this owner and unscoped events.
	OwnerID string
}

// Manager manages SSE connections and broadcasts events.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// stopped is closed when the Start loop returns.
	stopped chan struct{}

	shutdownMu sync.RWMutex
	shutdown   bool
	started    bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, eventQueueSize),
		logger:            logger,
		heartbeatInterval: defaultHeartbeatInterval,
		stopped:           make(chan struct{}),
	}
}

// SetHeartbeatInterval overrides the 30s heartbeat. Must be called before Start.
func (m *Manager) SetHeartbeatInterval(d time.Duration) {
	m.heartbeatInterval = d
}

// Start runs the broadcast loop until ctx is done or Shutdown is called.
// Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.shutdownMu.Lock()
	if m.started || m.shutdown {
		m.shutdownMu.Unlock()
		return
	}
	m.started = true
	m.shutdownMu.Unlock()

	defer close(m.stopped)

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, delivers the queued ones and closes all
// clients. It returns early when ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	close(m.events)
	m.shutdownMu.Unlock()

	if !started {
		for event := range m.events {
			m.broadcast(event)
		}
		m.closeAllClients()
		return nil
	}

	select {
	case <-m.stopped:
		m.logger.Info("SSE manager shutdown complete")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
		return ctx.Err()
	}
	return nil
}

// broadcast delivers an event to every client it is scoped to.
func (m *Manager) broadcast(event Event) {
	var delivered, replaced, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if event.OwnerID != "" && event.OwnerID != client.OwnerID {
			filtered++
			continue
		}
		if m.deliver(client, event) {
			replaced++
		}
		delivered++
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("replaced", replaced)))
	}
}

// deliver sends event to client without blocking. When the client's buffer is
// full the oldest pending event is discarded to make room, so the most recent
// snapshot always reaches the client. Reports whether an event was discarded.
func (m *Manager) deliver(client *Client, event Event) bool {
	select {
	case client.EventChan <- event:
		return false
	default:
	}

	select {
	case stale := <-client.EventChan:
		m.logger.Debug("discarded stale event for slow client",
			slog.String("client_id", client.ID),
			slog.String("event_type", string(stale.Type)))
	default:
	}

	select {
	case client.EventChan <- event:
	default:
		m.logger.Warn("dropped event for slow client",
			slog.String("client_id", client.ID),
			slog.String("event_type", string(event.Type)))
	}
	return true
}

// Connect registers a new client that receives events for ownerID.
func (m *Manager) Connect(ownerID string) (*Client, error) {
	clientID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID.String(),
		OwnerID:     ownerID,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", client.ID),
		slog.String("owner_id", ownerID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for broadcasting. Events emitted after Shutdown are
// dropped silently.
func (m *Manager) Emit(event Event) {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(event.Type)),
			slog.String("owner_id", event.OwnerID))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client)

	m.logger.Info("all SSE clients disconnected")
}
