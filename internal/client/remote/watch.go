package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
)

const (
	eventShelfSnapshot = "shelf.snapshot"
	maxFrameSize       = 4 << 20
)

// frame is one parsed Server-Sent Events message.
type frame struct {
	id    string
	event string
	data  string
}

// streamEvent is the JSON carried in a frame's data field.
type streamEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Watch follows the server's shelf event stream and replaces the state with
// every pushed snapshot. It blocks until ctx is done, returning nil, or the
// stream fails. Callers reconnect by calling Watch again.
func (l *Library) Watch(ctx context.Context) error {
	if l.isClosed() {
		return ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/v1/shelf/events", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	l.authorize(req)

	resp, err := l.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return domainerrors.NetworkFailure(err, "connect to event stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Code != "" {
			return env.err(resp.StatusCode)
		}
		return fmt.Errorf("event stream: unexpected status %d", resp.StatusCode)
	}

	err = readFrames(resp.Body, func(f frame) {
		l.handleFrame(f)
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

func (l *Library) handleFrame(f frame) {
	if f.event != eventShelfSnapshot {
		l.logger.Debug("stream event", "type", f.event, "id", f.id)
		return
	}

	var ev streamEvent
	if err := json.Unmarshal([]byte(f.data), &ev); err != nil {
		l.logger.Warn("malformed snapshot event", "id", f.id, "error", err)
		return
	}

	var payload struct {
		Entries []domain.ShelfEntry `json:"entries"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		l.logger.Warn("malformed snapshot payload", "id", f.id, "error", err)
		return
	}
	if payload.Entries == nil {
		payload.Entries = []domain.ShelfEntry{}
	}

	l.state.Set(client.State{Entries: payload.Entries})
}

// readFrames parses an event stream, calling fn for every complete frame.
// Comment lines and unknown fields are ignored.
func readFrames(r io.Reader, fn func(frame)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

	var (
		cur  frame
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 || cur.event != "" {
				cur.data = strings.Join(data, "\n")
				fn(cur)
			}
			cur, data = frame{}, nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			cur.id = value
		case "event":
			cur.event = value
		case "data":
			data = append(data, value)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
