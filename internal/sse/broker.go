// Package sse implements a Server-Sent Events broker that streams one
// scene's layout to browser clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeTick    = "tick"
	TypeSettled = "settled"
	TypeView    = "view"
	TypeReload  = "reload"
	TypeDeleted = "deleted"
)

// DefaultFrameThrottle is the minimum spacing of tick events per client.
const DefaultFrameThrottle = 50 * time.Millisecond

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns mutable state (clients, the pending
// frame and the throttle clock). Public methods talk to it through channels.
// Tick frames are coalesced: while the throttle window is open only the most
// recent frame is kept and it is sent when the window closes.
type Broker struct {
	frameMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	frameCh       chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given frame throttle interval.
func NewBroker(frameThrottle time.Duration) *Broker {
	if frameThrottle <= 0 {
		frameThrottle = DefaultFrameThrottle
	}

	b := &Broker{
		frameMin:      frameThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		frameCh:       make(chan Event, 1),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) []byte {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastFrame time.Time
		latest    []byte // last frame sent, replayed to new clients
		pending   []byte
		timer     *time.Timer
		timerCh   <-chan time.Time
	)

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}
	sendFrame := func(raw []byte) {
		lastFrame = time.Now()
		latest = raw
		send(raw)
	}
	flush := func() {
		if pending != nil {
			sendFrame(pending)
			pending = nil
		}
	}

	for {
		select {
		case <-b.stopCh:
			if timer != nil {
				timer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if latest != nil {
				ch <- latest
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			flush()
			if raw := encode(event); raw != nil {
				send(raw)
			}

		case event := <-b.frameCh:
			raw := encode(event)
			if raw == nil {
				continue
			}
			wait := b.frameMin - time.Since(lastFrame)
			if wait <= 0 {
				pending = nil
				sendFrame(raw)
				continue
			}
			pending = raw
			if timerCh == nil {
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				timerCh = timer.C
			}

		case <-timerCh:
			timerCh = nil
			flush()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The client first
// receives the latest frame, if any.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
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

// Publish sends an event to all connected clients. A frame still waiting in
// the throttle window is delivered first.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFrame queues a tick frame without blocking. An older frame that the
// loop has not picked up yet is replaced. It must be called from a single
// goroutine (the scene's runner).
func (b *Broker) PublishFrame(data any) {
	if b.closed.Load() {
		return
	}
	ev := Event{Type: TypeTick, Data: data}
	select {
	case b.frameCh <- ev:
		return
	default:
	}
	select {
	case <-b.frameCh:
	default:
	}
	select {
	case b.frameCh <- ev:
	default:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/scenes/{id}/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
