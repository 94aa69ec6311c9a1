// Package diagnostics exposes the merger's telemetry stream to
// external observers: a websocket hub that fans every lifecycle event
// out to however many subscribers are currently connected, and a
// bounded recorder that keeps a recent snapshot per stream in memory.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/protocol"
	"github.com/sensorfusion/multiqueue/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriberBacklog bounds the per-connection outgoing queue. A
// subscriber that falls this far behind is dropped rather than let to
// back-pressure the dispatch loop.
const subscriberBacklog = 256

// Broadcaster fans dispatch-engine telemetry events out to every
// currently-connected websocket client, in the shape the protocol
// package defines. It is the diagnostics analogue of the merger's
// OnEvent hook: call Publish from the same OnEvent callback passed to
// oqueue.New.
type Broadcaster struct {
	logger telemetry.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}

	idCounter uint64
	nowMillis func() int64
}

type subscriber struct {
	conn *websocket.Conn
	out  chan *protocol.Message
}

// NewBroadcaster builds an empty Broadcaster. nowMillis supplies the
// envelope timestamp; pass a fixed clock in tests.
func NewBroadcaster(logger telemetry.Logger, nowMillis func() int64) *Broadcaster {
	return &Broadcaster{
		logger:      logger.WithModule("diagnostics.broadcaster"),
		subscribers: make(map[*subscriber]struct{}),
		nowMillis:   nowMillis,
	}
}

// Publish converts event to a wire message and fans it out to every
// connected subscriber. A subscriber whose outgoing queue is full is
// disconnected rather than blocking the caller, since Publish is
// expected to be called directly from the merger's dispatch loop.
func (b *Broadcaster) Publish(event core.TelemetryEvent) {
	b.idCounter++
	msg := protocol.EventToMessage(event, b.currentID, b.nowMillis())
	if msg == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		select {
		case sub.out <- msg:
		default:
			b.logger.Warn("dropping slow diagnostics subscriber", telemetry.Int("backlog", subscriberBacklog))
			delete(b.subscribers, sub)
			close(sub.out)
		}
	}
}

func (b *Broadcaster) currentID() string {
	return "evt-" + strconv.FormatUint(b.idCounter, 10)
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a subscriber until it disconnects, a write to it
// fails, or it falls too far behind.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", telemetry.Err(err))
		return
	}

	sub := &subscriber{conn: conn, out: make(chan *protocol.Message, subscriberBacklog)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("diagnostics subscriber connected")

	go b.readPump(sub)
	b.writePump(sub)
}

// readPump drains and discards inbound frames so control frames are
// processed and a client disconnect is detected promptly; this hub is
// publish-only.
func (b *Broadcaster) readPump(sub *subscriber) {
	defer b.remove(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writePump(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.out {
		data, err := json.Marshal(msg)
		if err != nil {
			b.logger.Error("failed to marshal diagnostics message", telemetry.Err(err))
			continue
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.remove(sub)
			return
		}
	}
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.out)
	}
}

// SubscriberCount reports how many clients are currently connected,
// mostly useful for tests and health checks.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
