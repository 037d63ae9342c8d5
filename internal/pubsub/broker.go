package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker is a simple in-memory pub/sub system keyed by race ID. Each topic
// remembers only its latest message so a new subscriber immediately sees
// the current race state instead of a replayed history.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte
	latest      map[string][]byte
}

// WsMessage is the envelope sent over race websockets.
type WsMessage struct {
	Stream string      `json:"stream"`
	Data   interface{} `json:"data"`
}

var (
	once   sync.Once
	broker *Broker
)

// GetBroker returns the singleton instance of the Broker.
func GetBroker() *Broker {
	once.Do(func() {
		broker = &Broker{
			subscribers: make(map[string][]chan []byte),
			latest:      make(map[string][]byte),
		}
	})
	return broker
}

// Subscribe subscribes to a topic. The subscriber first receives the
// latest cached message, if any, then live messages.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	ch := make(chan []byte, 16)
	if msg, ok := b.latest[topic]; ok {
		ch <- msg
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subscribers[topic]
		for i, sub := range subscribers {
			if sub == ch {
				b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
				close(ch)
				break
			}
		}
		zap.S().Debugf("unsubscribed from topic %s", topic)
	}

	zap.S().Debugf("new subscription to topic %s", topic)
	return ch, unsubscribe
}

// Publish marshals and fans out a message to all subscribers of a topic,
// replacing the cached latest message. A slow subscriber's full channel
// drops the message rather than blocking the publisher.
func (b *Broker) Publish(topic string, stream string, data interface{}) {
	msg, err := json.Marshal(WsMessage{Stream: stream, Data: data})
	if err != nil {
		zap.S().Errorf("failed to marshal pubsub message for topic %s: %v", topic, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[topic] = msg
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}
