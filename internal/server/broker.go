package server

import (
	"encoding/json"
	"sync"
)

const (
	eventGameStarted   = "game_started"
	eventRoundScored   = "round_scored"
	eventRoundAdvanced = "round_advanced"
	eventGameFinished  = "game_finished"
	eventGameReset     = "game_reset"
)

// SSEEvent is the payload published to session subscribers.
type SSEEvent struct {
	Type       string `json:"type"`
	Round      int    `json:"round,omitempty"`
	Points     *int   `json:"points,omitempty"`
	TotalScore int    `json:"totalScore"`
	Rating     string `json:"rating,omitempty"`
}

type brokerMessage struct {
	event string
	data  []byte
}

// Broker is an in-process pub/sub for SSE events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan brokerMessage]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan brokerMessage]struct{}),
	}
}

// Subscribe returns a channel that receives events for the given session.
func (b *Broker) Subscribe(sessionID string) chan brokerMessage {
	ch := make(chan brokerMessage, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan brokerMessage]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(sessionID string, ch chan brokerMessage) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, event SSEEvent) {
	data, _ := json.Marshal(event)
	msg := brokerMessage{event: event.Type, data: data}
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
