// Package sse implements a Server-Sent Events broker that streams canvas
// mutations to connected viewers.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"inkboard-backend/domain/events"
)

type client struct {
	canvasID string
	ch       chan []byte
}

type publishReq struct {
	canvasID string
	event    events.DomainEvent
}

// Broker fans canvas events out to subscribed SSE clients.
//
// A single internal loop owns the client set, so public methods only
// communicate with it through channels and need no locking.
type Broker struct {
	logger *zap.Logger

	subscribeCh   chan client
	unsubscribeCh chan chan []byte
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its event loop
func NewBroker(logger *zap.Logger) *Broker {
	b := &Broker{
		logger:        logger,
		subscribeCh:   make(chan client),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)

	broadcast := func(req publishReq) {
		payload, err := json.Marshal(req.event)
		if err != nil {
			b.logger.Warn("failed to encode event", zap.Error(err))
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", req.event.GetEventType(), payload))

		for ch, canvasID := range clients {
			if canvasID != req.canvasID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case c := <-b.subscribeCh:
			clients[c.ch] = c.canvasID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.publishCh:
			broadcast(req)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Publish implements ports.EventBus so the broker can sit alongside the
// external bus and mirror every domain event to connected viewers.
func (b *Broker) Publish(ctx context.Context, event events.DomainEvent) error {
	if b.closed.Load() {
		return nil
	}
	select {
	case b.publishCh <- publishReq{canvasID: event.GetAggregateID(), event: event}:
	case <-b.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Subscribe registers a client for one canvas and returns its channel
func (b *Broker) Subscribe(canvasID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- client{canvasID: canvasID, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Close stops the loop and closes every client channel
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

const heartbeatInterval = 30 * time.Second

// ServeCanvas streams events for a single canvas until the client
// disconnects. Heartbeat comments keep intermediaries from closing the
// connection during quiet periods.
func (b *Broker) ServeCanvas(w http.ResponseWriter, r *http.Request, canvasID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(canvasID)
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
