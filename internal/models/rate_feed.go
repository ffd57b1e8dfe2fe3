package models

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/sand/lbc-exchange/backend/internal/shared"
)

const (
	// Time allowed to write one update to a subscriber.
	writeWait = 10 * time.Second
	// Updates queued per subscriber before it is considered stalled and dropped.
	subscriberQueueSize = 16
)

// RateUpdate is the message pushed to rate feed subscribers.
type RateUpdate struct {
	Rate      decimal.Decimal `json:"rate"`
	Example   string          `json:"example"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan RateUpdate
}

// RateFeed fans rate changes out to websocket subscribers.
// Each subscriber has its own queue and writer goroutine, Publish never touches the network.
type RateFeed struct {
	subscribers map[*websocket.Conn]*subscriber // WebSocket update subscribers.
	last        RateUpdate
	writeWait   time.Duration
	mu          sync.Mutex
}

func NewRateFeed(initial decimal.Decimal) *RateFeed {
	return &RateFeed{
		subscribers: make(map[*websocket.Conn]*subscriber),
		last:        newRateUpdate(initial),
		writeWait:   writeWait,
	}
}

// AddSubscriber registers conn and queues the latest rate for it.
func (f *RateFeed) AddSubscriber(conn *websocket.Conn) {
	sub := &subscriber{conn: conn, send: make(chan RateUpdate, subscriberQueueSize)}

	f.mu.Lock()
	sub.send <- f.last
	f.subscribers[conn] = sub
	f.mu.Unlock()

	go f.writeLoop(sub)
}

// RemoveSubscriber unregisters conn and closes it. Unknown connections are ignored.
func (f *RateFeed) RemoveSubscriber(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub, ok := f.subscribers[conn]; ok {
		f.drop(sub)
	}
}

// Publish records rate as the latest value and queues it for every subscriber.
// Subscribers whose queue is full are dropped.
func (f *RateFeed) Publish(rate decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = newRateUpdate(rate)
	for _, sub := range f.subscribers {
		select {
		case sub.send <- f.last:
		default:
			f.drop(sub)
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (f *RateFeed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *RateFeed) latest() RateUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// drop must be called with f.mu held.
func (f *RateFeed) drop(sub *subscriber) {
	delete(f.subscribers, sub.conn)
	close(sub.send)
	sub.conn.Close()
}

func (f *RateFeed) writeLoop(sub *subscriber) {
	for update := range sub.send {
		if err := sub.conn.SetWriteDeadline(time.Now().Add(f.writeWait)); err != nil {
			f.RemoveSubscriber(sub.conn)
			return
		}
		if err := sub.conn.WriteJSON(update); err != nil {
			f.RemoveSubscriber(sub.conn)
			return
		}
	}
}

func newRateUpdate(rate decimal.Decimal) RateUpdate {
	return RateUpdate{Rate: rate, Example: shared.RateExample(rate), UpdatedAt: time.Now().UTC()}
}
